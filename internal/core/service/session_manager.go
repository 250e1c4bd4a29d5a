package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/core/ports"
	"github.com/agadir/task-manager/internal/core/validation"
	"github.com/agadir/task-manager/internal/infrastructure/metrics"
)

// SessionManager owns the client's belief about who is signed in and keeps
// it in sync with the credential store. Create one per process and pass it
// to whatever needs it.
type SessionManager struct {
	store  ports.CredentialStore
	auth   ports.AuthAPI
	logger zerolog.Logger

	mu    sync.Mutex
	state domain.SessionState
	user  *domain.User
	token string
	// validating is set while CheckAuth runs, the only loading phase.
	validating bool
	listeners  []func(domain.Session)
}

func NewSessionManager(store ports.CredentialStore, auth ports.AuthAPI, logger zerolog.Logger) *SessionManager {
	return &SessionManager{
		store:  store,
		auth:   auth,
		logger: logger.With().Str("component", "session").Logger(),
		state:  domain.SessionUnknown,
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// Listeners run synchronously on the goroutine that caused the change.
func (m *SessionManager) Subscribe(fn func(domain.Session)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Session returns a snapshot of the current session.
func (m *SessionManager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// CheckAuth restores a persisted session. With both a token and a user on
// disk the session turns Authenticated at once, then the profile is
// re-fetched: success refreshes the cached user, any failure logs out.
// IsLoading holds until CheckAuth returns and never again afterwards.
func (m *SessionManager) CheckAuth(ctx context.Context) domain.Session {
	done := m.beginValidation()
	m.validate(ctx)
	done()
	return m.Session()
}

func (m *SessionManager) validate(ctx context.Context) {
	m.transition(domain.SessionChecking, nil, "")

	token, user, ok := m.loadPersisted(ctx)
	if !ok {
		m.transition(domain.SessionAnonymous, nil, "")
		return
	}
	m.transition(domain.SessionAuthenticated, user, token)

	profile, err := m.auth.Profile(ctx)
	if err != nil {
		m.logger.Info().Err(err).Msg("stored session rejected, logging out")
		m.clear(ctx)
		return
	}

	if err := m.store.SaveUser(ctx, *profile); err != nil {
		m.logger.Warn().Err(err).Msg("could not persist refreshed profile")
	}
	m.setUser(profile)
}

func (m *SessionManager) loadPersisted(ctx context.Context) (string, *domain.User, bool) {
	token, err := m.store.GetToken(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			m.logger.Error().Err(err).Msg("reading stored token failed")
		}
		return "", nil, false
	}
	user, err := m.store.GetUser(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			m.logger.Error().Err(err).Msg("reading stored user failed")
		}
		return "", nil, false
	}
	if token == "" {
		return "", nil, false
	}
	return token, user, true
}

// Login validates the form, authenticates, persists the credentials and
// turns the session Authenticated. On any failure the session is left as it
// was and the returned error carries a human-readable message.
func (m *SessionManager) Login(ctx context.Context, form validation.LoginForm) error {
	form.Email = strings.TrimSpace(form.Email)
	if err := validation.ValidateLogin(form); err != nil {
		return err
	}

	res, err := m.auth.Login(ctx, ports.LoginInput{Email: form.Email, Password: form.Password})
	if err != nil {
		m.logger.Info().Err(err).Str("email", form.Email).Msg("login failed")
		return err
	}
	return m.establish(ctx, res)
}

// Register validates the form, creates the account and signs it in.
func (m *SessionManager) Register(ctx context.Context, form validation.RegisterForm) error {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if err := validation.ValidateRegister(form); err != nil {
		return err
	}

	res, err := m.auth.Register(ctx, ports.RegisterInput{Name: form.Name, Email: form.Email, Password: form.Password})
	if err != nil {
		m.logger.Info().Err(err).Str("email", form.Email).Msg("registration failed")
		return err
	}
	return m.establish(ctx, res)
}

// establish persists a fresh session. A session that cannot be persisted is
// not entered; anything half-written is removed.
func (m *SessionManager) establish(ctx context.Context, res *ports.AuthResult) error {
	if err := m.store.SaveToken(ctx, res.Token); err != nil {
		m.logger.Error().Err(err).Msg("persisting token failed")
		return fmt.Errorf("could not save session: %w", err)
	}
	if err := m.store.SaveUser(ctx, res.User); err != nil {
		m.logger.Error().Err(err).Msg("persisting user failed")
		if rmErr := m.store.RemoveToken(ctx); rmErr != nil {
			m.logger.Warn().Err(rmErr).Msg("removing orphaned token failed")
		}
		return fmt.Errorf("could not save session: %w", err)
	}

	user := res.User
	m.transition(domain.SessionAuthenticated, &user, res.Token)
	m.logger.Info().Int64("user_id", user.ID).Msg("signed in")
	return nil
}

// Logout clears the stored credentials and turns the session Anonymous. It
// always succeeds locally; storage failures are only logged.
func (m *SessionManager) Logout(ctx context.Context) {
	m.clear(ctx)
	m.logger.Info().Msg("signed out")
}

// HandleUnauthorized logs out after the service rejected the token. It is a
// no-op unless the session is currently Authenticated.
func (m *SessionManager) HandleUnauthorized(ctx context.Context) {
	if m.Session().State != domain.SessionAuthenticated {
		return
	}
	m.logger.Warn().Msg("token rejected by the service, forcing logout")
	m.clear(ctx)
}

// UpdateUserProfile replaces the cached user locally. Nothing is sent to
// the service.
func (m *SessionManager) UpdateUserProfile(ctx context.Context, user domain.User) error {
	if !m.Session().IsAuthenticated {
		return domain.ErrNotAuthenticated
	}
	if err := m.store.SaveUser(ctx, user); err != nil {
		m.logger.Error().Err(err).Msg("persisting profile failed")
		return fmt.Errorf("could not save profile: %w", err)
	}
	m.setUser(&user)
	return nil
}

// RefreshProfile re-fetches the signed-in user from the service and
// persists it. The session is left alone when the call fails.
func (m *SessionManager) RefreshProfile(ctx context.Context) (*domain.User, error) {
	if !m.Session().IsAuthenticated {
		return nil, domain.ErrNotAuthenticated
	}

	profile, err := m.auth.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveUser(ctx, *profile); err != nil {
		m.logger.Warn().Err(err).Msg("could not persist refreshed profile")
	}
	m.setUser(profile)
	u := *profile
	return &u, nil
}

func (m *SessionManager) clear(ctx context.Context) {
	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Error().Err(err).Msg("clearing stored credentials failed")
	}
	m.transition(domain.SessionAnonymous, nil, "")
}

// setUser swaps the cached user without changing state. Listeners are
// notified so dependants see the new profile.
func (m *SessionManager) setUser(user *domain.User) {
	m.mu.Lock()
	if m.state != domain.SessionAuthenticated {
		m.mu.Unlock()
		return
	}
	u := *user
	m.user = &u
	snap, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, snap)
}

func (m *SessionManager) transition(state domain.SessionState, user *domain.User, token string) {
	m.mu.Lock()
	m.state = state
	m.token = token
	m.user = nil
	if user != nil {
		u := *user
		m.user = &u
	}
	snap, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	metrics.SessionTransitionsTotal.WithLabelValues(string(state)).Inc()
	m.logger.Debug().Str("state", string(state)).Msg("session transition")
	notify(listeners, snap)
}

// beginValidation marks the startup pass; the returned func ends it and
// notifies listeners of the settled session.
func (m *SessionManager) beginValidation() func() {
	m.mu.Lock()
	m.validating = true
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.validating = false
		snap, listeners := m.snapshotLocked(), m.listenersLocked()
		m.mu.Unlock()
		notify(listeners, snap)
	}
}

func (m *SessionManager) snapshotLocked() domain.Session {
	s := domain.Session{
		State:     m.state,
		Token:     m.token,
		IsLoading: m.validating || m.state == domain.SessionUnknown || m.state == domain.SessionChecking,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	s.IsAuthenticated = m.state == domain.SessionAuthenticated && s.User != nil && s.Token != ""
	return s
}

func (m *SessionManager) listenersLocked() []func(domain.Session) {
	return slices.Clone(m.listeners)
}

func notify(listeners []func(domain.Session), s domain.Session) {
	for _, fn := range listeners {
		fn(s)
	}
}
