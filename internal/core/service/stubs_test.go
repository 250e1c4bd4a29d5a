package service

import (
	"context"
	"sync"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

// stubStore is an in-memory credential store with switchable failures.
type stubStore struct {
	mu      sync.Mutex
	token   *string
	user    *domain.User
	saveErr error
	readErr error
	clears  int
}

func (s *stubStore) SaveToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.token = &token
	return nil
}

func (s *stubStore) GetToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return "", s.readErr
	}
	if s.token == nil {
		return "", domain.ErrKeyNotFound
	}
	return *s.token, nil
}

func (s *stubStore) RemoveToken(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

func (s *stubStore) SaveUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.user = &u
	return nil
}

func (s *stubStore) GetUser(context.Context) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.user == nil {
		return nil, domain.ErrKeyNotFound
	}
	u := *s.user
	return &u, nil
}

func (s *stubStore) RemoveUser(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	return nil
}

func (s *stubStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.token, s.user = nil, nil
	return nil
}

func (s *stubStore) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token == nil && s.user == nil
}

// stubAuth answers with func fields; nil funcs fail the test by panicking.
type stubAuth struct {
	registerFn func(ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ports.LoginInput) (*ports.AuthResult, error)
	profileFn  func() (*domain.User, error)
	calls      int
}

func (a *stubAuth) Register(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	a.calls++
	return a.registerFn(in)
}

func (a *stubAuth) Login(_ context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	a.calls++
	return a.loginFn(in)
}

func (a *stubAuth) Profile(context.Context) (*domain.User, error) {
	a.calls++
	return a.profileFn()
}

// stubTaskAPI keeps a server-side task table and counts calls per operation.
type stubTaskAPI struct {
	mu       sync.Mutex
	tasks    map[int64]domain.Task
	nextID   int64
	err      error
	statsErr error
	calls    map[string]int
	lastList domain.Filter
	// gate, when set, blocks the named operation until it is closed.
	gate map[string]chan struct{}
}

func newStubTaskAPI(tasks ...domain.Task) *stubTaskAPI {
	api := &stubTaskAPI{tasks: map[int64]domain.Task{}, nextID: 100, calls: map[string]int{}, gate: map[string]chan struct{}{}}
	for _, t := range tasks {
		api.tasks[t.ID] = t
	}
	return api
}

func (s *stubTaskAPI) enter(op string) error {
	s.mu.Lock()
	s.calls[op]++
	gate := s.gate[op]
	err := s.err
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (s *stubTaskAPI) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *stubTaskAPI) ListTasks(_ context.Context, f domain.Filter) ([]domain.Task, error) {
	if err := s.enter("list"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = f
	out := []domain.Task{}
	for id := int64(0); id <= s.nextID; id++ {
		t, ok := s.tasks[id]
		if !ok {
			continue
		}
		if st := f.Status(); st != "" && t.Status != st {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *stubTaskAPI) GetTask(_ context.Context, id int64) (*domain.Task, error) {
	if err := s.enter("get"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, &domain.APIError{Kind: domain.ErrNotFound, Status: 404, Message: "task not found"}
	}
	return &t, nil
}

func (s *stubTaskAPI) CreateTask(_ context.Context, in domain.NewTask) (*domain.Task, error) {
	if err := s.enter("create"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := domain.Task{ID: s.nextID, Title: in.Title, Description: in.Description, DueDate: in.DueDate, Status: domain.StatusPending}
	s.tasks[t.ID] = t
	return &t, nil
}

func (s *stubTaskAPI) UpdateTask(_ context.Context, id int64, in domain.TaskUpdate) (*domain.Task, error) {
	if err := s.enter("update"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, &domain.APIError{Kind: domain.ErrNotFound, Status: 404, Message: "task not found"}
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	s.tasks[id] = t
	return &t, nil
}

func (s *stubTaskAPI) DeleteTask(_ context.Context, id int64) error {
	if err := s.enter("delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return &domain.APIError{Kind: domain.ErrNotFound, Status: 404, Message: "task not found"}
	}
	delete(s.tasks, id)
	return nil
}

func (s *stubTaskAPI) MarkDone(_ context.Context, id int64) (*domain.Task, error) {
	if err := s.enter("done"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, &domain.APIError{Kind: domain.ErrNotFound, Status: 404, Message: "task not found"}
	}
	t.Status = domain.StatusDone
	s.tasks[id] = t
	return &t, nil
}

func (s *stubTaskAPI) Stats(context.Context) (*domain.TaskStats, error) {
	s.mu.Lock()
	s.calls["stats"]++
	err := s.statsErr
	if err == nil {
		err = s.err
	}
	var st domain.TaskStats
	for _, t := range s.tasks {
		st.Total++
		if t.IsDone() {
			st.Done++
		} else {
			st.Pending++
		}
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &st, nil
}
