package history

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esmeralda-med/esmeralda/domain"
)

func makeMessages(n int) []domain.Message {
	msgs := make([]domain.Message, 0, n)
	for i := 1; i <= n; i++ {
		sender := domain.SenderUser
		if i%2 == 0 {
			sender = domain.SenderModel
		}
		msgs = append(msgs, domain.Message{
			MessageID: fmt.Sprintf("m%d", i),
			Sender:    sender,
			Text:      fmt.Sprintf("mensagem %d", i),
		})
	}
	return msgs
}

func TestFormatAnchorFirst(t *testing.T) {
	msgs := makeMessages(4)
	turns := Format(msgs, "Paciente 45 anos, dor torácica", 15)

	require.Len(t, turns, 5)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, AnchorPrefix+"Paciente 45 anos, dor torácica", turns[0].Text)
	assert.True(t, strings.HasPrefix(turns[0].Text, "[DADOS DO CASO INICIAL"))
}

func TestFormatNoAnchor(t *testing.T) {
	turns := Format(makeMessages(3), "", 15)
	require.Len(t, turns, 3)
	assert.Equal(t, "mensagem 1", turns[0].Text)
}

func TestFormatTruncatesToWindow(t *testing.T) {
	// 20 prior messages with a window of 15 keeps messages 6..20, with
	// the anchor still first and messages 1..5 gone.
	msgs := makeMessages(20)
	turns := Format(msgs, "caso inicial", 15)

	require.Len(t, turns, 16)
	assert.Equal(t, AnchorPrefix+"caso inicial", turns[0].Text)
	assert.Equal(t, "mensagem 6", turns[1].Text)
	assert.Equal(t, "mensagem 20", turns[15].Text)
	for _, turn := range turns[1:] {
		for i := 1; i <= 5; i++ {
			assert.NotEqual(t, fmt.Sprintf("mensagem %d", i), turn.Text)
		}
	}
}

func TestFormatIdempotent(t *testing.T) {
	msgs := makeMessages(30)
	first := Format(msgs, "caso", 10)
	second := Format(msgs, "caso", 10)
	assert.Equal(t, first, second)
}

func TestFormatShortHistoryUntouched(t *testing.T) {
	msgs := makeMessages(5)
	turns := Format(msgs, "", 15)
	require.Len(t, turns, 5)
	assert.Equal(t, "mensagem 1", turns[0].Text)
}

func TestFormatRoleMapping(t *testing.T) {
	msgs := []domain.Message{
		{Sender: domain.SenderUser, Text: "pergunta"},
		{Sender: domain.SenderModel, Text: "resposta"},
	}
	turns := Format(msgs, "", 15)
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, RoleModel, turns[1].Role)
}

func TestFormatImageOnlyMessage(t *testing.T) {
	msgs := []domain.Message{
		{Sender: domain.SenderUser, Image: &domain.Image{Data: []byte{1, 2, 3}, MimeType: "image/png"}},
	}
	turns := Format(msgs, "", 15)
	require.Len(t, turns, 1)
	assert.Empty(t, turns[0].Text)
	require.NotNil(t, turns[0].Image)
	assert.Equal(t, "image/png", turns[0].Image.MimeType)
}

func TestAppendCurrentTurnNotTruncated(t *testing.T) {
	msgs := makeMessages(20)
	turns := Format(msgs, "caso", 15)
	turns = Append(turns, "mensagem 21", nil)

	require.Len(t, turns, 17)
	last := turns[len(turns)-1]
	assert.Equal(t, RoleUser, last.Role)
	assert.Equal(t, "mensagem 21", last.Text)
}

func TestEstimateTokensNonZero(t *testing.T) {
	turns := Format(makeMessages(3), "caso inicial com bastante texto", 15)
	assert.Greater(t, EstimateTokens(turns), 0)
}
