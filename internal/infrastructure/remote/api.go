// Package remote is the façade over the task service REST API. Each method
// performs exactly one request and never touches local state.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/core/ports"
	"github.com/agadir/task-manager/internal/infrastructure/httpclient"
)

// Doer sends one request. *httpclient.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req httpclient.Request, out any) error
}

// API implements ports.AuthAPI and ports.TaskAPI.
type API struct {
	doer Doer
}

var (
	_ ports.AuthAPI = (*API)(nil)
	_ ports.TaskAPI = (*API)(nil)
)

func New(doer Doer) *API {
	return &API{doer: doer}
}

// envelope is the success body shape: {"success": true, "data": {...}}.
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type authData struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type userData struct {
	User *domain.User `json:"user"`
}

type tasksData struct {
	Tasks []domain.Task `json:"tasks"`
}

type taskData struct {
	Task *domain.Task `json:"task"`
}

type statsData struct {
	Stats *domain.TaskStats `json:"stats"`
}

func (a *API) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	const fallback = "registration failed"
	data, err := call[authData](ctx, a.doer, httpclient.Request{
		Operation:   "register",
		Method:      http.MethodPost,
		Path:        "/auth/register",
		Body:        in,
		Credentials: true,
	}, fallback)
	if err != nil {
		return nil, err
	}
	return authResult(data, fallback)
}

func (a *API) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	const fallback = "login failed"
	data, err := call[authData](ctx, a.doer, httpclient.Request{
		Operation:   "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Body:        in,
		Credentials: true,
	}, fallback)
	if err != nil {
		return nil, err
	}
	return authResult(data, fallback)
}

func (a *API) Profile(ctx context.Context) (*domain.User, error) {
	const fallback = "failed to fetch profile"
	data, err := call[userData](ctx, a.doer, httpclient.Request{
		Operation: "profile",
		Method:    http.MethodGet,
		Path:      "/auth/me",
	}, fallback)
	if err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, malformed(fallback)
	}
	return data.User, nil
}

// ListTasks sends ?status= only for the pending and done filters.
func (a *API) ListTasks(ctx context.Context, filter domain.Filter) ([]domain.Task, error) {
	var query url.Values
	if status := filter.Status(); status != "" {
		query = url.Values{"status": {string(status)}}
	}
	data, err := call[tasksData](ctx, a.doer, httpclient.Request{
		Operation: "list_tasks",
		Method:    http.MethodGet,
		Path:      "/tasks",
		Query:     query,
	}, "failed to load tasks")
	if err != nil {
		return nil, err
	}
	if data.Tasks == nil {
		return []domain.Task{}, nil
	}
	return data.Tasks, nil
}

func (a *API) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	return a.taskCall(ctx, httpclient.Request{
		Operation: "get_task",
		Method:    http.MethodGet,
		Path:      taskPath(id),
	}, "failed to load task")
}

func (a *API) CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	return a.taskCall(ctx, httpclient.Request{
		Operation: "create_task",
		Method:    http.MethodPost,
		Path:      "/tasks",
		Body:      in,
	}, "failed to create task")
}

func (a *API) UpdateTask(ctx context.Context, id int64, in domain.TaskUpdate) (*domain.Task, error) {
	return a.taskCall(ctx, httpclient.Request{
		Operation: "update_task",
		Method:    http.MethodPut,
		Path:      taskPath(id),
		Body:      in,
	}, "failed to update task")
}

func (a *API) DeleteTask(ctx context.Context, id int64) error {
	_, err := call[struct{}](ctx, a.doer, httpclient.Request{
		Operation: "delete_task",
		Method:    http.MethodDelete,
		Path:      taskPath(id),
	}, "failed to delete task")
	return err
}

// MarkDone asks the service to force the task status to done.
func (a *API) MarkDone(ctx context.Context, id int64) (*domain.Task, error) {
	return a.taskCall(ctx, httpclient.Request{
		Operation: "mark_done",
		Method:    http.MethodPatch,
		Path:      taskPath(id) + "/done",
	}, "failed to update task status")
}

func (a *API) Stats(ctx context.Context) (*domain.TaskStats, error) {
	const fallback = "failed to load statistics"
	data, err := call[statsData](ctx, a.doer, httpclient.Request{
		Operation: "task_stats",
		Method:    http.MethodGet,
		Path:      "/tasks/stats",
	}, fallback)
	if err != nil {
		return nil, err
	}
	if data.Stats == nil {
		return nil, malformed(fallback)
	}
	return data.Stats, nil
}

func (a *API) taskCall(ctx context.Context, req httpclient.Request, fallback string) (*domain.Task, error) {
	data, err := call[taskData](ctx, a.doer, req, fallback)
	if err != nil {
		return nil, err
	}
	if data.Task == nil {
		return nil, malformed(fallback)
	}
	return data.Task, nil
}

func call[T any](ctx context.Context, doer Doer, req httpclient.Request, fallback string) (T, error) {
	var env envelope[T]
	if err := doer.Do(ctx, req, &env); err != nil {
		return env.Data, withFallback(err, fallback)
	}
	return env.Data, nil
}

// withFallback gives errors without a server message the operation's
// default message.
func withFallback(err error, fallback string) error {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		return &domain.APIError{Kind: domain.ErrRequest, Message: fmt.Sprintf("%s: %v", fallback, err)}
	}
	if apiErr.Message != "" {
		return apiErr
	}
	out := *apiErr
	out.Message = fallback
	return &out
}

func authResult(data authData, fallback string) (*ports.AuthResult, error) {
	if data.User == nil || data.Token == "" {
		return nil, malformed(fallback)
	}
	return &ports.AuthResult{User: *data.User, Token: data.Token}, nil
}

func malformed(fallback string) error {
	return &domain.APIError{Kind: domain.ErrServer, Message: fallback + ": malformed response"}
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}
