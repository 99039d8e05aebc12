package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/esmeralda-med/esmeralda/domain"
	"github.com/esmeralda-med/esmeralda/history"
)

func TestToGenaiContentsRolesAndParts(t *testing.T) {
	turns := []history.Turn{
		{Role: history.RoleUser, Text: history.AnchorPrefix + "caso inicial"},
		{Role: history.RoleUser, Text: "veja", Image: &domain.Image{Data: []byte{1, 2}, MimeType: "image/png"}},
		{Role: history.RoleModel, Text: "o que você observa?"},
	}

	contents := toGenaiContents(turns)
	require.Len(t, contents, 3)

	assert.Equal(t, genai.RoleUser, contents[0].Role)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, history.AnchorPrefix+"caso inicial", contents[0].Parts[0].Text)

	// Image part precedes the text part.
	require.Len(t, contents[1].Parts, 2)
	require.NotNil(t, contents[1].Parts[0].InlineData)
	assert.Equal(t, "image/png", contents[1].Parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2}, contents[1].Parts[0].InlineData.Data)
	assert.Equal(t, "veja", contents[1].Parts[1].Text)

	assert.Equal(t, genai.RoleModel, contents[2].Role)
}

func TestToGenaiContentsImageOnlyTurn(t *testing.T) {
	turns := []history.Turn{
		{Role: history.RoleUser, Image: &domain.Image{Data: []byte{1}, MimeType: "image/jpeg"}},
	}

	contents := toGenaiContents(turns)
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 1)
	require.NotNil(t, contents[0].Parts[0].InlineData)
}
