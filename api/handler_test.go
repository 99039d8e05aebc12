package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esmeralda-med/esmeralda/backend"
	"github.com/esmeralda-med/esmeralda/chat"
	"github.com/esmeralda-med/esmeralda/domain"
	"github.com/esmeralda-med/esmeralda/store"
)

func newTestServer(t *testing.T) (*echo.Echo, *chat.Service) {
	t.Helper()
	svc := chat.NewService(store.NewMemoryStore(), backend.NewMock(), nil)
	e := echo.New()
	NewHandler(svc, nil).RegisterRoutes(e)
	return e, svc
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(t, e, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateAndListSessions(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)
	assert.Equal(t, domain.PlaceholderTitle, created["title"])
	assert.NotEmpty(t, created["session_id"])

	rec = doJSON(t, e, http.MethodGet, "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	sessions := body["sessions"].([]interface{})
	assert.Len(t, sessions, 1)
}

func TestGetSessionNotFound(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(t, e, http.MethodGet, "/v1/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitTurnRoundTrip(t *testing.T) {
	e, svc := newTestServer(t)

	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	rec := doJSON(t, e, http.MethodPost, "/v1/sessions/"+session.SessionID+"/turns",
		TurnRequest{Text: "Paciente 45 anos, dor torácica"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, "Paciente 45 anos, dor torácica", sess["anchor_context"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	model := messages[1].(map[string]interface{})
	assert.Equal(t, string(domain.SenderModel), model["sender"])
}

func TestSubmitTurnWithImage(t *testing.T) {
	e, svc := newTestServer(t)

	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	rec := doJSON(t, e, http.MethodPost, "/v1/sessions/"+session.SessionID+"/turns",
		TurnRequest{
			Text:      "Raio-X",
			ImageData: base64.StdEncoding.EncodeToString([]byte{0x89, 0x50}),
			MimeType:  "image/png",
		})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, "Raio-X [Imagem Anexada]", sess["anchor_context"])
}

func TestSubmitTurnValidation(t *testing.T) {
	e, svc := newTestServer(t)

	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	rec := doJSON(t, e, http.MethodPost, "/v1/sessions/"+session.SessionID+"/turns", TurnRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/sessions/"+session.SessionID+"/turns",
		TurnRequest{ImageData: "not-base64!!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/sessions/missing/turns", TurnRequest{Text: "oi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSessionMessagesPagination(t *testing.T) {
	e, svc := newTestServer(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := svc.SubmitTurn(ctx, session.SessionID, fmt.Sprintf("mensagem %d", i), nil)
		require.NoError(t, err)
	}

	// 3 turns produced 6 messages; limit=4 keeps the most recent 4.
	rec := doJSON(t, e, http.MethodGet, "/v1/sessions/"+session.SessionID+"/messages?limit=4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	messages := body["messages"].([]interface{})
	assert.Len(t, messages, 4)
	assert.Equal(t, true, body["has_more"])

	first := messages[0].(map[string]interface{})
	assert.Equal(t, "mensagem 1", first["text"])

	// Page back with the oldest returned message as the cursor.
	cursor := first["message_id"].(string)
	rec = doJSON(t, e, http.MethodGet,
		"/v1/sessions/"+session.SessionID+"/messages?limit=4&before="+cursor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	older := body["messages"].([]interface{})
	require.Len(t, older, 2)
	assert.Equal(t, false, body["has_more"])
	oldest := older[0].(map[string]interface{})
	assert.Equal(t, "mensagem 0", oldest["text"])
}

func TestDeleteSessionEndpoint(t *testing.T) {
	e, svc := newTestServer(t)

	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	rec := doJSON(t, e, http.MethodDelete, "/v1/sessions/"+session.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, session.SessionID, body["deleted"])
	replacement := body["replacement"].(map[string]interface{})
	assert.NotEqual(t, session.SessionID, replacement["session_id"])

	rec = doJSON(t, e, http.MethodDelete, "/v1/sessions/"+session.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketRequiresSessionID(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(t, e, http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
