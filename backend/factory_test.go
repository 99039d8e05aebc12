package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esmeralda-med/esmeralda/config"
	"github.com/esmeralda-med/esmeralda/domain"
)

func TestFactorySelectsByKind(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		kind string
		name string
	}{
		{config.BackendMock, "mock"},
		{config.BackendRelay, "relay"},
		{config.BackendMedGemma, "medgemma"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			be, err := New(ctx, config.BackendConfig{Kind: tc.kind, Timeout: time.Second})
			require.NoError(t, err)
			assert.Equal(t, tc.name, be.Name())
		})
	}
}

func TestFactoryUnknownKind(t *testing.T) {
	_, err := New(context.Background(), config.BackendConfig{Kind: "gpt9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend kind")
}

func TestMockReply(t *testing.T) {
	mock := NewMock()
	assert.Equal(t, "mock", mock.Name())

	reply := mock.Send(context.Background(), TurnRequest{Text: "dor torácica"})
	assert.Contains(t, reply, "dor torácica")
	assert.Contains(t, reply, "[MOCK]")

	imageReply := mock.Send(context.Background(), TurnRequest{
		Image: &domain.Image{Data: []byte{1}, MimeType: "image/png"},
	})
	assert.Contains(t, imageReply, "imagem")
}
