package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/esmeralda-med/esmeralda/config"
	"github.com/esmeralda-med/esmeralda/domain"
	"github.com/esmeralda-med/esmeralda/history"
)

const (
	medgemmaHistoryWindow = 10

	medgemmaTemperature = 0.7
	medgemmaMaxTokens   = 1000

	medgemmaFallback   = "Houve um erro ao consultar o modelo clínico. Por favor, tente novamente."
	medgemmaEmptyReply = "O modelo não retornou uma resposta clínica."

	// captionPlaceholder stands in when the captioning call fails, so
	// the turn still completes.
	captionPlaceholder = "descrição automática indisponível"

	// imageNote marks image attachments in text-only history turns.
	imageNote = "[Imagem Anexada]"
)

// MedGemma pairs a text-only clinical model with a separate captioning
// model. When a turn carries an image, the image is captioned first and
// the description is spliced into the outgoing message as a bracketed
// system note; the enriched text then goes to the chat model. Two
// sequential network calls per image turn.
type MedGemma struct {
	captionURL string
	chatURL    string
	model      string
	token      string
	httpClient *http.Client
}

// NewMedGemma creates the captioner-plus-text-model backend.
func NewMedGemma(cfg config.MedGemmaConfig, timeout time.Duration) *MedGemma {
	return &MedGemma{
		captionURL: cfg.CaptionURL,
		chatURL:    cfg.ChatURL,
		model:      cfg.Model,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Backend = (*MedGemma)(nil)

// Name returns the strategy name.
func (m *MedGemma) Name() string { return "medgemma" }

// Send captions the image if present, then performs the chat call.
func (m *MedGemma) Send(ctx context.Context, req TurnRequest) string {
	text := req.Text
	if req.Image != nil && len(req.Image.Data) > 0 {
		caption, err := m.captionImage(ctx, req.Image)
		if err != nil {
			log.Warn().Err(err).Msg("medgemma: captioning failed, using placeholder")
			caption = captionPlaceholder
		}
		note := fmt.Sprintf("[NOTA DO SISTEMA: o usuário anexou uma imagem. Descrição automática: %s]", caption)
		if text == "" {
			text = note
		} else {
			text = text + "\n\n" + note
		}
	}

	reply, err := m.chat(ctx, text, req.History, req.AnchorContext)
	if err != nil {
		log.Error().Err(err).Msg("medgemma: chat request failed")
		return medgemmaFallback
	}
	return reply
}

// captionImage sends the raw image bytes to the captioning model.
func (m *MedGemma) captionImage(ctx context.Context, image *domain.Image) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.captionURL, bytes.NewReader(image.Data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", image.MimeType)
	m.setAuth(httpReq)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption API error [%d]: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	// The captioner replies either with a list of results or a single
	// object; accept both.
	var results []captionResult
	if err := json.Unmarshal(respBody, &results); err == nil && len(results) > 0 && results[0].GeneratedText != "" {
		return results[0].GeneratedText, nil
	}
	var single captionResult
	if err := json.Unmarshal(respBody, &single); err == nil && single.GeneratedText != "" {
		return single.GeneratedText, nil
	}
	return "", fmt.Errorf("caption API returned no generated_text: %s", truncate(string(respBody), 200))
}

// chat performs the text-only chat completion call.
func (m *MedGemma) chat(ctx context.Context, text string, msgs []domain.Message, anchor string) (string, error) {
	turns := history.Format(msgs, anchor, medgemmaHistoryWindow)

	messages := make([]ChatMessage, 0, len(turns)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	for _, turn := range turns {
		role := "assistant"
		if turn.Role == history.RoleUser {
			role = "user"
		}
		content := turn.Text
		if content == "" && turn.Image != nil {
			content = imageNote
		}
		messages = append(messages, ChatMessage{Role: role, Content: content})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: text})

	log.Debug().
		Int("messages", len(messages)).
		Int("prompt_tokens_est", history.EstimateTokens(turns)).
		Msg("medgemma: sending turn")

	temperature := float64(medgemmaTemperature)
	maxTokens := medgemmaMaxTokens
	reqBody := ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.chatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	m.setAuth(httpReq)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return "", fmt.Errorf("chat API error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return "", fmt.Errorf("chat API error [%d]: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message == nil || result.Choices[0].Message.Content == "" {
		log.Warn().Msg("medgemma: empty model output")
		return medgemmaEmptyReply, nil
	}
	return result.Choices[0].Message.Content, nil
}

func (m *MedGemma) setAuth(req *http.Request) {
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}
}
