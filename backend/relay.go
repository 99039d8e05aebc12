package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/esmeralda-med/esmeralda/config"
	"github.com/esmeralda-med/esmeralda/domain"
)

const (
	relayFallback   = "Houve um erro ao consultar o servidor médico. Verifique se o servidor está rodando."
	relayEmptyReply = "O servidor não retornou um campo de texto válido."
)

// Relay forwards the current turn to a self-hosted HTTP endpoint.
//
// It deliberately sends neither prior history nor the anchor context:
// the remote side owns context management for this deployment. Flagged
// in DESIGN.md as preserved behavior, not an endorsement.
type Relay struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// NewRelay creates the relay backend.
func NewRelay(cfg config.RelayConfig, timeout time.Duration) *Relay {
	return &Relay{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userID:     cfg.UserID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Backend = (*Relay)(nil)

// Name returns the strategy name.
func (r *Relay) Name() string { return "relay" }

type relayRequest struct {
	UserID    string  `json:"user_id"`
	Texto     string  `json:"texto"`
	ImagemURL *string `json:"imagem_url"`
}

// relayResponse tolerates schema drift from the remote service: the
// reply is taken from the first populated field, in this order.
type relayResponse struct {
	Resposta string `json:"resposta"`
	Response string `json:"response"`
	Text     string `json:"text"`
}

// Send posts the current turn and extracts the reply text.
func (r *Relay) Send(ctx context.Context, req TurnRequest) string {
	reply, err := r.call(ctx, req.Text, req.Image)
	if err != nil {
		log.Error().Err(err).Msg("relay: request failed")
		return relayFallback
	}
	return reply
}

func (r *Relay) call(ctx context.Context, text string, image *domain.Image) (string, error) {
	payload := relayRequest{
		UserID:    r.userID,
		Texto:     text,
		ImagemURL: dataURI(image),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("ngrok-skip-browser-warning", "true")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay error [%d]: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result relayResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	for _, candidate := range []string{result.Resposta, result.Response, result.Text} {
		if candidate != "" {
			return candidate, nil
		}
	}
	log.Warn().Msg("relay: no known reply field populated")
	return relayEmptyReply, nil
}

// dataURI embeds the image inline as a data: URI, or nil when absent.
func dataURI(image *domain.Image) *string {
	if image == nil || len(image.Data) == 0 {
		return nil
	}
	uri := "data:" + image.MimeType + ";base64," + base64.StdEncoding.EncodeToString(image.Data)
	return &uri
}
