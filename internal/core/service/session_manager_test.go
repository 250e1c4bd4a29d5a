package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/core/ports"
	"github.com/agadir/task-manager/internal/core/validation"
)

func ptr[T any](v T) *T { return &v }

func storedSession(token string, user domain.User) *stubStore {
	return &stubStore{token: ptr(token), user: &user}
}

func TestSessionManager_InitialState(t *testing.T) {
	m := NewSessionManager(&stubStore{}, &stubAuth{}, zerolog.Nop())
	s := m.Session()
	if s.State != domain.SessionUnknown || s.IsAuthenticated || !s.IsLoading {
		t.Fatalf("unexpected initial session %+v", s)
	}
}

func TestCheckAuth_NothingStored(t *testing.T) {
	auth := &stubAuth{}
	m := NewSessionManager(&stubStore{}, auth, zerolog.Nop())

	s := m.CheckAuth(context.Background())
	if s.State != domain.SessionAnonymous || s.IsAuthenticated || s.IsLoading {
		t.Fatalf("expected settled anonymous session, got %+v", s)
	}
	if auth.calls != 0 {
		t.Fatalf("no profile call expected without a stored token, got %d", auth.calls)
	}
}

func TestCheckAuth_TokenWithoutUserIsAnonymous(t *testing.T) {
	store := &stubStore{token: ptr("tok")}
	m := NewSessionManager(store, &stubAuth{}, zerolog.Nop())

	if s := m.CheckAuth(context.Background()); s.State != domain.SessionAnonymous {
		t.Fatalf("expected anonymous, got %s", s.State)
	}
}

func TestCheckAuth_ValidTokenRefreshesUser(t *testing.T) {
	store := storedSession("tok", domain.User{ID: 1, Name: "Old", Email: "a@b.co"})
	auth := &stubAuth{profileFn: func() (*domain.User, error) {
		return &domain.User{ID: 1, Name: "New", Email: "a@b.co"}, nil
	}}
	m := NewSessionManager(store, auth, zerolog.Nop())

	var seen []domain.SessionState
	m.Subscribe(func(s domain.Session) { seen = append(seen, s.State) })

	s := m.CheckAuth(context.Background())
	if !s.IsAuthenticated || s.Token != "tok" || s.User.Name != "New" {
		t.Fatalf("unexpected session %+v", s)
	}
	if store.user.Name != "New" {
		t.Fatalf("refreshed user not persisted: %+v", store.user)
	}
	if len(seen) < 2 || seen[0] != domain.SessionChecking || seen[1] != domain.SessionAuthenticated {
		t.Fatalf("unexpected transitions %v", seen)
	}
}

func TestCheckAuth_RejectedTokenLogsOut(t *testing.T) {
	store := storedSession("expired", domain.User{ID: 1, Name: "Ana"})
	auth := &stubAuth{profileFn: func() (*domain.User, error) {
		return nil, &domain.APIError{Kind: domain.ErrUnauthenticated, Status: 401, Message: "token expired"}
	}}
	m := NewSessionManager(store, auth, zerolog.Nop())

	s := m.CheckAuth(context.Background())
	if s.State != domain.SessionAnonymous || s.IsAuthenticated || s.User != nil || s.Token != "" {
		t.Fatalf("expected anonymous session, got %+v", s)
	}
	if !store.empty() {
		t.Fatal("credential store must be empty after a rejected token")
	}
}

func TestCheckAuth_StorageFailureIsAnonymous(t *testing.T) {
	store := &stubStore{readErr: domain.ErrStorage}
	m := NewSessionManager(store, &stubAuth{}, zerolog.Nop())

	if s := m.CheckAuth(context.Background()); s.State != domain.SessionAnonymous {
		t.Fatalf("expected anonymous, got %s", s.State)
	}
}

func TestLogin_Success(t *testing.T) {
	store := &stubStore{}
	var sent ports.LoginInput
	auth := &stubAuth{loginFn: func(in ports.LoginInput) (*ports.AuthResult, error) {
		sent = in
		return &ports.AuthResult{User: domain.User{ID: 9, Name: "Ana", Email: in.Email}, Token: "jwt"}, nil
	}}
	m := NewSessionManager(store, auth, zerolog.Nop())
	m.CheckAuth(context.Background())

	err := m.Login(context.Background(), validation.LoginForm{Email: "  ana@example.com ", Password: "Secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sent.Email != "ana@example.com" {
		t.Errorf("email must be trimmed, got %q", sent.Email)
	}
	s := m.Session()
	if !s.IsAuthenticated || s.UserID() != 9 || s.Token != "jwt" {
		t.Fatalf("unexpected session %+v", s)
	}
	if *store.token != "jwt" || store.user.ID != 9 {
		t.Fatalf("credentials not persisted")
	}
}

func TestLogin_InvalidFormNeverCallsService(t *testing.T) {
	auth := &stubAuth{}
	m := NewSessionManager(&stubStore{}, auth, zerolog.Nop())

	err := m.Login(context.Background(), validation.LoginForm{Email: "not-an-email"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if auth.calls != 0 {
		t.Fatalf("service must not be called for invalid input")
	}
}

func TestLogin_RejectedStaysAnonymous(t *testing.T) {
	auth := &stubAuth{loginFn: func(ports.LoginInput) (*ports.AuthResult, error) {
		return nil, &domain.APIError{Kind: domain.ErrUnauthenticated, Status: 401, Message: "invalid credentials"}
	}}
	m := NewSessionManager(&stubStore{}, auth, zerolog.Nop())
	m.CheckAuth(context.Background())

	err := m.Login(context.Background(), validation.LoginForm{Email: "a@b.co", Password: "x"})
	if err == nil || err.Error() != "invalid credentials" {
		t.Fatalf("expected server message, got %v", err)
	}
	if s := m.Session(); s.State != domain.SessionAnonymous {
		t.Fatalf("expected anonymous, got %s", s.State)
	}
}

func TestLogin_PersistFailureIsReported(t *testing.T) {
	store := &stubStore{saveErr: domain.ErrStorage}
	auth := &stubAuth{loginFn: func(ports.LoginInput) (*ports.AuthResult, error) {
		return &ports.AuthResult{User: domain.User{ID: 1}, Token: "jwt"}, nil
	}}
	m := NewSessionManager(store, auth, zerolog.Nop())
	m.CheckAuth(context.Background())

	err := m.Login(context.Background(), validation.LoginForm{Email: "a@b.co", Password: "x"})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if m.Session().IsAuthenticated {
		t.Fatal("a session that could not be saved must not be entered")
	}
}

func TestRegister(t *testing.T) {
	store := &stubStore{}
	auth := &stubAuth{registerFn: func(in ports.RegisterInput) (*ports.AuthResult, error) {
		return &ports.AuthResult{User: domain.User{ID: 2, Name: in.Name, Email: in.Email}, Token: "new"}, nil
	}}
	m := NewSessionManager(store, auth, zerolog.Nop())

	bad := validation.RegisterForm{Name: "Ana", Email: "ana@example.com", Password: "Secret1", ConfirmPassword: "Secret2"}
	if err := m.Register(context.Background(), bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for mismatched confirmation, got %v", err)
	}
	if auth.calls != 0 {
		t.Fatal("service must not be called for invalid input")
	}

	good := validation.RegisterForm{Name: " Ana ", Email: "ana@example.com", Password: "Secret1", ConfirmPassword: "Secret1"}
	if err := m.Register(context.Background(), good); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s := m.Session()
	if !s.IsAuthenticated || s.User.Name != "Ana" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	store := storedSession("tok", domain.User{ID: 1})
	auth := &stubAuth{profileFn: func() (*domain.User, error) { return &domain.User{ID: 1}, nil }}
	m := NewSessionManager(store, auth, zerolog.Nop())
	m.CheckAuth(context.Background())

	m.Logout(context.Background())

	s := m.Session()
	if s.State != domain.SessionAnonymous || s.IsAuthenticated {
		t.Fatalf("expected anonymous, got %+v", s)
	}
	if !store.empty() || store.clears != 1 {
		t.Fatalf("expected one ClearAll, got %d", store.clears)
	}
}

func TestHandleUnauthorized(t *testing.T) {
	store := storedSession("tok", domain.User{ID: 1})
	auth := &stubAuth{profileFn: func() (*domain.User, error) { return &domain.User{ID: 1}, nil }}
	m := NewSessionManager(store, auth, zerolog.Nop())

	m.HandleUnauthorized(context.Background())
	if store.clears != 0 {
		t.Fatal("must be a no-op before the session is authenticated")
	}

	m.CheckAuth(context.Background())
	m.HandleUnauthorized(context.Background())
	if m.Session().State != domain.SessionAnonymous || !store.empty() {
		t.Fatal("expected forced logout")
	}
}

func TestUpdateUserProfile_LocalOnly(t *testing.T) {
	store := storedSession("tok", domain.User{ID: 1, Name: "Ana"})
	auth := &stubAuth{profileFn: func() (*domain.User, error) { return &domain.User{ID: 1, Name: "Ana"}, nil }}
	m := NewSessionManager(store, auth, zerolog.Nop())
	m.CheckAuth(context.Background())
	calls := auth.calls

	if err := m.UpdateUserProfile(context.Background(), domain.User{ID: 1, Name: "Ana Maria"}); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	if auth.calls != calls {
		t.Fatal("profile update must not call the service")
	}
	if m.Session().User.Name != "Ana Maria" || store.user.Name != "Ana Maria" {
		t.Fatal("profile not updated")
	}
}

func TestUpdateUserProfile_RequiresSession(t *testing.T) {
	m := NewSessionManager(&stubStore{}, &stubAuth{}, zerolog.Nop())
	if err := m.UpdateUserProfile(context.Background(), domain.User{ID: 1}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestRefreshProfile(t *testing.T) {
	store := storedSession("tok", domain.User{ID: 1, Name: "Ana"})
	name := "Ana"
	auth := &stubAuth{profileFn: func() (*domain.User, error) { return &domain.User{ID: 1, Name: name}, nil }}
	m := NewSessionManager(store, auth, zerolog.Nop())
	m.CheckAuth(context.Background())

	name = "Renamed"
	u, err := m.RefreshProfile(context.Background())
	if err != nil || u.Name != "Renamed" {
		t.Fatalf("unexpected refresh result %+v (%v)", u, err)
	}
	if m.Session().User.Name != "Renamed" {
		t.Fatal("session user not refreshed")
	}
}

func TestSession_IsLoadingOnlyDuringStartupCheck(t *testing.T) {
	store := storedSession("tok", domain.User{ID: 1, Name: "Ana", Email: "a@b.co"})
	var duringProfile, duringLogin, duringRegister domain.Session
	var m *SessionManager

	auth := &stubAuth{
		profileFn: func() (*domain.User, error) {
			duringProfile = m.Session()
			return &domain.User{ID: 1, Name: "Ana", Email: "a@b.co"}, nil
		},
		loginFn: func(ports.LoginInput) (*ports.AuthResult, error) {
			duringLogin = m.Session()
			return &ports.AuthResult{Token: "t2", User: domain.User{ID: 1, Name: "Ana"}}, nil
		},
		registerFn: func(ports.RegisterInput) (*ports.AuthResult, error) {
			duringRegister = m.Session()
			return &ports.AuthResult{Token: "t3", User: domain.User{ID: 2, Name: "Bob"}}, nil
		},
	}
	m = NewSessionManager(store, auth, zerolog.Nop())

	if s := m.CheckAuth(context.Background()); s.IsLoading {
		t.Fatalf("session still loading after CheckAuth: %+v", s)
	}
	if !duringProfile.IsLoading || duringProfile.State != domain.SessionAuthenticated {
		t.Fatalf("expected loading while the stored token is validated, got %+v", duringProfile)
	}

	m.Logout(context.Background())
	if m.Session().IsLoading {
		t.Fatal("logout must not mark the session loading")
	}

	if err := m.Login(context.Background(), validation.LoginForm{Email: "a@b.co", Password: "x"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if duringLogin.IsLoading {
		t.Fatalf("login after startup must not mark the session loading: %+v", duringLogin)
	}

	m.Logout(context.Background())
	form := validation.RegisterForm{Name: "Bob", Email: "bob@b.co", Password: "Secret1", ConfirmPassword: "Secret1"}
	if err := m.Register(context.Background(), form); err != nil {
		t.Fatalf("register: %v", err)
	}
	if duringRegister.IsLoading {
		t.Fatalf("register after startup must not mark the session loading: %+v", duringRegister)
	}
}
