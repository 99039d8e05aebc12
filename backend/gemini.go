package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/esmeralda-med/esmeralda/config"
	"github.com/esmeralda-med/esmeralda/history"
)

const (
	// geminiHistoryWindow bounds the raw history sent per turn so the
	// context window keeps room for output tokens.
	geminiHistoryWindow = 15

	// Moderate temperature for exploratory questioning, token ceiling
	// sized to keep replies concise.
	geminiTemperature     = 0.7
	geminiMaxOutputTokens = 1000

	geminiFallback   = "Ocorreu um erro ao processar o raciocínio clínico. Por favor, tente novamente."
	geminiEmptyReply = "Não consegui gerar uma resposta clínica no momento."
)

// Gemini sends the formatted history plus the current turn, including
// raw image bytes inline, directly to a hosted multimodal model.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates the direct multimodal backend.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, timeout time.Duration) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

var _ Backend = (*Gemini)(nil)

// Name returns the strategy name.
func (g *Gemini) Name() string { return "gemini" }

// Send performs one stateless generateContent call. History is managed
// locally to keep control of the context-window strategy.
func (g *Gemini) Send(ctx context.Context, req TurnRequest) string {
	turns := history.Format(req.History, req.AnchorContext, geminiHistoryWindow)
	turns = history.Append(turns, req.Text, req.Image)

	log.Debug().
		Int("turns", len(turns)).
		Int("prompt_tokens_est", history.EstimateTokens(turns)).
		Msg("gemini: sending turn")

	resp, err := g.client.Models.GenerateContent(ctx, g.model, toGenaiContents(turns), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(geminiTemperature)),
		MaxOutputTokens:   geminiMaxOutputTokens,
	})
	if err != nil {
		log.Error().Err(err).Msg("gemini: generateContent failed")
		return geminiFallback
	}

	text := resp.Text()
	if text == "" {
		log.Warn().Msg("gemini: empty model output")
		return geminiEmptyReply
	}
	return text
}

func toGenaiContents(turns []history.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		var parts []*genai.Part
		if turn.Image != nil && len(turn.Image.Data) > 0 {
			parts = append(parts, genai.NewPartFromBytes(turn.Image.Data, turn.Image.MimeType))
		}
		if turn.Text != "" {
			parts = append(parts, genai.NewPartFromText(turn.Text))
		}

		role := genai.RoleModel
		if turn.Role == history.RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}
