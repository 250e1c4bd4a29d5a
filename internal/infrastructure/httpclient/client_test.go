package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/infrastructure/config"
)

type stubTokens struct {
	token string
	err   error
	calls int
}

func (s *stubTokens) GetToken(context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenSource, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.APIConfig{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second}, tokens, zerolog.Nop(), opts...)
}

func TestDo_AttachesTokenAndHeaders(t *testing.T) {
	var got *http.Request
	var gotBody map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":{"value":42}}`)
	}, &stubTokens{token: "abc"})

	var out struct {
		Data struct {
			Value int `json:"value"`
		} `json:"data"`
	}
	err := c.Do(context.Background(), Request{
		Operation: "probe",
		Method:    http.MethodPost,
		Path:      "/tasks",
		Query:     url.Values{"status": {"pending"}},
		Body:      map[string]string{"title": "x"},
	}, &out)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if got.URL.Path != "/api/tasks" || got.URL.Query().Get("status") != "pending" {
		t.Errorf("unexpected url %s", got.URL)
	}
	if got.Header.Get("Authorization") != "Bearer abc" {
		t.Errorf("unexpected Authorization %q", got.Header.Get("Authorization"))
	}
	if got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected Content-Type %q", got.Header.Get("Content-Type"))
	}
	if got.Header.Get(headerRequestID) == "" {
		t.Error("expected a request id")
	}
	if gotBody["title"] != "x" {
		t.Errorf("body not forwarded: %v", gotBody)
	}
	if out.Data.Value != 42 {
		t.Errorf("response not decoded: %+v", out)
	}
}

func TestDo_NoTokenSendsNoAuthorization(t *testing.T) {
	for name, tokens := range map[string]*stubTokens{
		"absent":        {err: domain.ErrKeyNotFound},
		"storage error": {err: domain.ErrStorage},
	} {
		t.Run(name, func(t *testing.T) {
			var auth string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
			}, tokens)

			if err := c.Do(context.Background(), Request{Operation: "probe", Path: "/auth/me"}, nil); err != nil {
				t.Fatalf("Do: %v", err)
			}
			if auth != "" {
				t.Errorf("expected no Authorization header, got %q", auth)
			}
			if tokens.calls != 1 {
				t.Errorf("expected one token lookup, got %d", tokens.calls)
			}
		})
	}
}

func TestDo_ClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, domain.ErrValidation},
		{http.StatusUnprocessableEntity, domain.ErrValidation},
		{http.StatusUnauthorized, domain.ErrUnauthenticated},
		{http.StatusForbidden, domain.ErrRequest},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrConflict},
		{http.StatusInternalServerError, domain.ErrServer},
		{http.StatusBadGateway, domain.ErrServer},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, `{"success":false,"message":"nope","field":"title"}`)
		}, &stubTokens{})

		err := c.Do(context.Background(), Request{Operation: "probe", Path: "/x"}, nil)
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
			continue
		}
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: expected *domain.APIError, got %T", tc.status, err)
		}
		if apiErr.Status != tc.status || apiErr.Message != "nope" {
			t.Errorf("status %d: unexpected error %+v", tc.status, apiErr)
		}
		if apiErr.Fields["field"] != "title" {
			t.Errorf("status %d: server fields not kept: %v", tc.status, apiErr.Fields)
		}
		if _, ok := apiErr.Fields["success"]; ok {
			t.Errorf("status %d: envelope flag must not leak into fields", tc.status)
		}
	}
}

func TestDo_ErrorFieldFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"task not found"}`)
	}, &stubTokens{})

	err := c.Do(context.Background(), Request{Operation: "probe", Path: "/tasks/9"}, nil)
	if err == nil || err.Error() != "task not found" {
		t.Fatalf("expected message from error field, got %v", err)
	}
}

func TestDo_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	}, &stubTokens{})

	err := c.Do(context.Background(), Request{Operation: "probe", Path: "/x"}, nil)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "" || !errors.Is(err, domain.ErrServer) {
		t.Fatalf("expected bare server error, got %#v", err)
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := New(config.APIConfig{BaseURL: base, Timeout: time.Second}, &stubTokens{}, zerolog.Nop())
	err := c.Do(context.Background(), Request{Operation: "probe", Path: "/x"}, nil)
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestDo_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, &stubTokens{}, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	defer close(release)

	err := c.Do(context.Background(), Request{Operation: "probe", Path: "/slow"}, nil)
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected ErrNetwork on timeout, got %v", err)
	}
}

func TestDo_NeverRetries(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, &stubTokens{})

	_ = c.Do(context.Background(), Request{Operation: "probe", Path: "/x"}, nil)
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", hits.Load())
	}
}

func TestDo_UnauthorizedHook(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"token expired"}`)
	}

	// Without a hook the 401 is only returned.
	plain := newTestClient(t, handler, &stubTokens{token: "old"})
	if err := plain.Do(context.Background(), Request{Operation: "probe", Path: "/auth/me"}, nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	var fired int
	hooked := newTestClient(t, handler, &stubTokens{token: "old"}, WithUnauthorizedHandler(func(context.Context) { fired++ }))
	_ = hooked.Do(context.Background(), Request{Operation: "probe", Path: "/auth/me"}, nil)
	if fired != 1 {
		t.Fatalf("expected hook to fire once, got %d", fired)
	}
}

func TestDo_UndecodableSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}, &stubTokens{})

	var out map[string]any
	if err := c.Do(context.Background(), Request{Operation: "probe", Path: "/x"}, &out); !errors.Is(err, domain.ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
}

func TestDo_UnauthorizedHookSkippedForCredentials(t *testing.T) {
	var fired int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, &stubTokens{token: "still-valid"}, WithUnauthorizedHandler(func(context.Context) { fired++ }))

	err := c.Do(context.Background(), Request{Operation: "login", Method: http.MethodPost, Path: "/auth/login", Credentials: true}, nil)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if fired != 0 {
		t.Fatalf("a rejected login must not end the current session")
	}
}
