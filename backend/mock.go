package backend

import (
	"context"
	"fmt"
)

// Mock is a network-free backend for development and tests.
type Mock struct{}

// NewMock creates a new mock backend.
func NewMock() *Mock {
	return &Mock{}
}

var _ Backend = (*Mock)(nil)

// Name returns the strategy name.
func (m *Mock) Name() string { return "mock" }

// Send returns a canned reply derived from the request.
func (m *Mock) Send(ctx context.Context, req TurnRequest) string {
	if req.Text == "" && req.Image != nil {
		return "[MOCK] Recebi uma imagem. Esta é uma resposta simulada."
	}
	return fmt.Sprintf("[MOCK] Recebi sua mensagem: %q. Esta é uma resposta simulada.", truncate(req.Text, 100))
}
