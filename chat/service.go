// Package chat orchestrates one request/response cycle per turn:
// append the user message, freeze the anchor on the first message,
// call the active backend, fold the reply back into the session.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/esmeralda-med/esmeralda/backend"
	"github.com/esmeralda-med/esmeralda/domain"
	"github.com/esmeralda-med/esmeralda/store"
)

const (
	titleMaxLen = 30

	// anchorImageNote is appended to the anchor context when the first
	// message carried an image.
	anchorImageNote = " [Imagem Anexada]"
)

var (
	// ErrEmptyTurn is returned when a turn has neither text nor image.
	ErrEmptyTurn = errors.New("turn has neither text nor image")
	// ErrTurnInFlight is returned when the session already has a
	// pending turn. Submission is a no-op, never queued.
	ErrTurnInFlight = errors.New("a turn is already in flight for this session")
)

// Notifier pushes session updates to connected presentation clients.
// The websocket hub satisfies it.
type Notifier interface {
	BroadcastJSON(sessionID string, v interface{}) error
}

// Update is the event published as a turn progresses. Phase pending
// carries the optimistic state (user message visible, reply
// outstanding); phase settled carries the final state.
type Update struct {
	Type     string           `json:"type"`
	Phase    string           `json:"phase"`
	Session  domain.Session   `json:"session"`
	Messages []domain.Message `json:"messages"`
	Turn     domain.Turn      `json:"turn"`
}

// SubmitResult is the settled outcome of a turn.
type SubmitResult struct {
	Session      *domain.Session  `json:"session"`
	Messages     []domain.Message `json:"messages"`
	Turn         *domain.Turn     `json:"turn"`
	UserMessage  *domain.Message  `json:"user_message"`
	ModelMessage *domain.Message  `json:"model_message"`
}

// Service is the turn controller.
type Service struct {
	store    store.Store
	backend  backend.Backend
	notifier Notifier
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*domain.Turn
}

// NewService creates a turn controller. notifier may be nil.
func NewService(st store.Store, be backend.Backend, notifier Notifier) *Service {
	return &Service{
		store:    st,
		backend:  be,
		notifier: notifier,
		now:      time.Now,
		pending:  make(map[string]*domain.Turn),
	}
}

// CreateSession creates an empty session with the placeholder title.
func (s *Service) CreateSession(ctx context.Context) (*domain.Session, error) {
	session := &domain.Session{
		SessionID: uuid.New().String(),
		Title:     domain.PlaceholderTitle,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	log.Info().Str("session_id", session.SessionID).Msg("session created")
	return session, nil
}

// EnsureSession guarantees at least one session exists, creating an
// empty one when the store is empty. Returns the newest session.
func (s *Service) EnsureSession(ctx context.Context) (*domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) > 0 {
		return &sessions[0], nil
	}
	return s.CreateSession(ctx)
}

// ListSessions returns sessions newest first.
func (s *Service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	return s.store.ListSessions(ctx)
}

// Session returns a session without its messages.
func (s *Service) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// GetSession returns a session with its full message log.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, []domain.Message, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.store.GetMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, nil, err
	}
	return session, messages, nil
}

// DeleteSession removes a session. Deleting the last session
// immediately creates a fresh empty one, which is returned; otherwise
// the replacement is nil.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sessionID).Msg("session deleted")

	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) > 0 {
		return nil, nil
	}
	return s.CreateSession(ctx)
}

// SubmitTurn runs one full turn cycle. It rejects empty submissions
// and concurrent submissions for the same session, appends the user
// message (freezing anchor and title on the session's first message),
// publishes the optimistic update, calls the backend with the history
// as it stood before this turn, and always appends exactly one model
// message — the backend guarantees a reply string, fallback or not.
func (s *Service) SubmitTurn(ctx context.Context, sessionID, text string, image *domain.Image) (*SubmitResult, error) {
	hasImage := image != nil && len(image.Data) > 0
	if text == "" && !hasImage {
		return nil, ErrEmptyTurn
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turn, err := s.beginTurn(sessionID)
	if err != nil {
		return nil, err
	}
	defer s.endTurn(sessionID)

	// History before the current message; this is what the backend
	// receives as prior context.
	prior, err := s.store.GetMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}

	userMsg := &domain.Message{
		MessageID: uuid.New().String(),
		SessionID: sessionID,
		Sender:    domain.SenderUser,
		Text:      text,
		CreatedAt: s.now(),
	}
	if hasImage {
		userMsg.Image = image
	}

	if len(prior) == 0 {
		s.freezeAnchor(session, text, hasImage)
		if err := s.store.UpdateSession(ctx, session); err != nil {
			return nil, err
		}
	}

	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	s.publish(ctx, "pending", session, *turn)

	reply := s.backend.Send(ctx, backend.TurnRequest{
		Text:          text,
		History:       prior,
		AnchorContext: session.AnchorContext,
		Image:         image,
	})

	modelMsg := &domain.Message{
		MessageID: uuid.New().String(),
		SessionID: sessionID,
		Sender:    domain.SenderModel,
		Text:      reply,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendMessage(ctx, modelMsg); err != nil {
		// The session may have been deleted mid-turn; the turn still
		// settles, there is just nothing left to show it in.
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to append model message")
	}

	settledAt := s.now()
	turn.Status = domain.TurnSettled
	turn.SettledAt = &settledAt

	s.publish(ctx, "settled", session, *turn)

	messages, err := s.store.GetMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		Session:      session,
		Messages:     messages,
		Turn:         turn,
		UserMessage:  userMsg,
		ModelMessage: modelMsg,
	}, nil
}

// PendingTurn returns the session's in-flight turn, if any.
func (s *Service) PendingTurn(sessionID string) *domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, ok := s.pending[sessionID]
	if !ok {
		return nil
	}
	copied := *turn
	return &copied
}

// beginTurn reserves the session's single turn slot.
func (s *Service) beginTurn(sessionID string) (*domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.pending[sessionID]; busy {
		return nil, ErrTurnInFlight
	}
	turn := &domain.Turn{
		TurnID:    uuid.New().String(),
		SessionID: sessionID,
		Status:    domain.TurnPending,
		StartedAt: s.now(),
	}
	s.pending[sessionID] = turn
	return turn, nil
}

func (s *Service) endTurn(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, sessionID)
}

// freezeAnchor fixes the session's anchor context and title from its
// first message. Neither is ever recomputed afterwards.
func (s *Service) freezeAnchor(session *domain.Session, text string, hasImage bool) {
	anchor := text
	if hasImage {
		anchor += anchorImageNote
	}
	session.AnchorContext = anchor

	if title := deriveTitle(text); title != "" {
		session.Title = title
	}
}

func (s *Service) publish(ctx context.Context, phase string, session *domain.Session, turn domain.Turn) {
	if s.notifier == nil {
		return
	}
	messages, err := s.store.GetMessages(ctx, session.SessionID, 0)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load messages for update")
		return
	}
	update := Update{
		Type:     "session_update",
		Phase:    phase,
		Session:  *session,
		Messages: messages,
		Turn:     turn,
	}
	if err := s.notifier.BroadcastJSON(session.SessionID, update); err != nil {
		log.Warn().Err(err).Msg("failed to broadcast session update")
	}
}

// deriveTitle truncates the first user text to the title length,
// counting runes.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxLen {
		return text
	}
	return string(runes[:titleMaxLen]) + "..."
}
