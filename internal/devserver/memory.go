package devserver

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/agadir/task-manager/internal/core/domain"
)

type storedTask struct {
	owner int64
	task  domain.Task
}

// MemoryRepository keeps everything in process memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	accounts   map[int64]Account
	byEmail    map[string]int64
	tasks      map[int64]storedTask
	nextUserID int64
	nextTaskID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[int64]Account),
		byEmail:  make(map[string]int64),
		tasks:    make(map[int64]storedTask),
	}
}

func (r *MemoryRepository) CreateUser(_ context.Context, acc *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(acc.Email)
	if _, exists := r.byEmail[key]; exists {
		return ErrUserExists
	}
	r.nextUserID++
	acc.ID = r.nextUserID
	r.accounts[acc.ID] = *acc
	r.byEmail[key] = acc.ID
	return nil
}

func (r *MemoryRepository) FindUserByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	acc := r.accounts[id]
	return &acc, nil
}

func (r *MemoryRepository) FindUserByID(_ context.Context, id int64) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &acc, nil
}

func (r *MemoryRepository) InsertTask(_ context.Context, userID int64, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTaskID++
	t.ID = r.nextTaskID
	r.tasks[t.ID] = storedTask{owner: userID, task: *t}
	return nil
}

func (r *MemoryRepository) FindTasks(_ context.Context, userID int64, status domain.TaskStatus) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Task{}
	for _, st := range r.tasks {
		if st.owner != userID {
			continue
		}
		if status != "" && st.task.Status != status {
			continue
		}
		out = append(out, st.task)
	}
	slices.SortFunc(out, func(a, b domain.Task) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *MemoryRepository) FindTask(_ context.Context, userID, id int64) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.tasks[id]
	if !ok || st.owner != userID {
		return nil, ErrTaskNotFound
	}
	t := st.task
	return &t, nil
}

func (r *MemoryRepository) ReplaceTask(_ context.Context, userID int64, t domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.tasks[t.ID]
	if !ok || st.owner != userID {
		return ErrTaskNotFound
	}
	r.tasks[t.ID] = storedTask{owner: userID, task: t}
	return nil
}

func (r *MemoryRepository) DeleteTask(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.tasks[id]
	if !ok || st.owner != userID {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
