// Package chat is the interaction controller: it turns user actions into
// session state changes and asks the model collaborator for answers.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pkt.systems/pslog"

	"github.com/matiasleandrokruk/cleverq/internal/domain/session"
	"github.com/matiasleandrokruk/cleverq/internal/infra/llm"
)

// MaxInputChars is the longest question accepted, counted in characters.
const MaxInputChars = 300

// ProviderRouter picks the collaborator for a request.
type ProviderRouter interface {
	Route(ctx context.Context) (llm.LLMProvider, error)
}

// Service serializes all actions of one session and persists the result
// through a session.Store.
type Service struct {
	store  session.Store
	router ProviderRouter
	locks  *keyedMutex
	now    func() time.Time
}

// SubmitResult describes the outcome of a successful (or skipped) submission.
type SubmitResult struct {
	Skipped  bool              `json:"skipped"`
	Tab      string            `json:"tab,omitempty"`
	Exchange *session.Exchange `json:"exchange,omitempty"`
	Tokens   int               `json:"tokens,omitempty"`
}

// NewService creates a controller persisting through store and asking the
// provider chosen by router.
func NewService(store session.Store, router ProviderRouter) *Service {
	return &Service{store: store, router: router, locks: newKeyedMutex(), now: time.Now}
}

// Submit sends rawInput to the collaborator and records the exchange on the
// current tab. Blank input is a no-op: the collaborator is not called.
// A failed call leaves the stored session untouched.
func (s *Service) Submit(ctx context.Context, sessionID, rawInput string) (*SubmitResult, error) {
	if strings.TrimSpace(rawInput) == "" {
		return &SubmitResult{Skipped: true}, nil
	}
	if utf8.RuneCountInString(rawInput) > MaxInputChars {
		return nil, fmt.Errorf("%w: %d > %d characters", ErrInputTooLong, utf8.RuneCountInString(rawInput), MaxInputChars)
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tab := st.CurrentTab()

	log := pslog.Ctx(ctx).With("session", sessionID, "tab", tab, "input_len", utf8.RuneCountInString(rawInput))

	provider, err := s.router.Route(ctx)
	if err != nil {
		log.Error("no model provider", "err", err)
		return nil, &GenerationError{Err: err}
	}
	meta := provider.ModelInfo()
	log = log.With("provider", meta.Provider, "model", meta.ID)

	start := s.now()
	resp, err := provider.ChatCompletion(ctx, llm.UserPrompt(rawInput))
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = llm.ErrEmptyCompletion
	}
	if err != nil {
		log.Warn("generation failed", "err", err, "duration", s.now().Sub(start))
		return nil, &GenerationError{Provider: meta.Provider, Err: err}
	}

	if err := st.RecordExchange(tab, rawInput, resp.Content); err != nil {
		return nil, err
	}
	st.SetPendingInput("")
	if err := s.store.Save(ctx, sessionID, st); err != nil {
		return nil, fmt.Errorf("save exchange: %w", err)
	}
	log.Info("exchange recorded", "tokens", resp.Tokens, "duration", s.now().Sub(start))

	return &SubmitResult{
		Tab:      tab,
		Exchange: &session.Exchange{Question: rawInput, Response: resp.Content},
		Tokens:   resp.Tokens,
	}, nil
}

// CreateTab adds a tab and makes it current. Empty or existing names are a no-op
// reported as created=false.
func (s *Service) CreateTab(ctx context.Context, sessionID, name string) (bool, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !st.CreateTab(name) {
		return false, nil
	}
	if err := s.store.Save(ctx, sessionID, st); err != nil {
		return false, fmt.Errorf("save tab: %w", err)
	}
	pslog.Ctx(ctx).Debug("tab created", "session", sessionID, "tab", st.CurrentTab())
	return true, nil
}

// SelectTab switches the current tab; unknown names return session.ErrUnknownTab.
func (s *Service) SelectTab(ctx context.Context, sessionID, name string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := st.SelectTab(name); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sessionID, st); err != nil {
		return fmt.Errorf("save tab selection: %w", err)
	}
	return nil
}

// State returns a private copy of the session. An unknown session reads as a
// fresh state that is not stored until the first change.
func (s *Service) State(ctx context.Context, sessionID string) (*session.State, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	return s.load(ctx, sessionID)
}

// End discards the session; the next action starts from a fresh state.
func (s *Service) End(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	pslog.Ctx(ctx).Info("session ended", "session", sessionID)
	return nil
}

// load returns the stored state or a fresh unsaved one. Starting a session is
// also when expired ones are swept.
func (s *Service) load(ctx context.Context, sessionID string) (*session.State, error) {
	st, err := s.store.Load(ctx, sessionID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, session.ErrSessionNotFound) {
		return nil, fmt.Errorf("load session: %w", err)
	}

	log := pslog.Ctx(ctx)
	if dropped, sweepErr := s.store.Sweep(ctx); sweepErr != nil {
		log.Warn("session sweep failed", "err", sweepErr)
	} else if dropped > 0 {
		log.Info("expired sessions swept", "count", dropped)
	}

	log.Debug("session started", "session", sessionID)
	return session.New(), nil
}
