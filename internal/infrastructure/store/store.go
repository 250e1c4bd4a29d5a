// Package store persists the session credentials (bearer token and user
// profile) across process restarts.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agadir/task-manager/internal/core/domain"
	"github.com/agadir/task-manager/internal/infrastructure/config"
	"github.com/agadir/task-manager/internal/infrastructure/metrics"
)

// Backend is the key-value primitive the credential store is built on.
// Get returns domain.ErrKeyNotFound for absent keys. Delete removes all
// keys in one batch and ignores keys that do not exist.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// CredentialStore implements ports.CredentialStore over a Backend.
type CredentialStore struct {
	kv       Backend
	tokenKey string
	userKey  string
}

// New returns a CredentialStore whose keys live under namespace.
func New(kv Backend, namespace string) *CredentialStore {
	return &CredentialStore{
		kv:       kv,
		tokenKey: namespace + ":token",
		userKey:  namespace + ":user",
	}
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (*CredentialStore, error) {
	var (
		kv  Backend
		err error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		kv = NewMemory()
	case config.BackendSQLite:
		kv, err = OpenSQLite(cfg.SQLitePath)
	case config.BackendRedis:
		kv, err = ConnectRedis(ctx, RedisConfig{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	log.Debug().Str("backend", cfg.Backend).Str("namespace", cfg.Namespace).Msg("credential store opened")
	return New(kv, cfg.Namespace), nil
}

// Close releases the backend.
func (s *CredentialStore) Close() error {
	return s.kv.Close()
}

func (s *CredentialStore) SaveToken(ctx context.Context, token string) error {
	if err := s.kv.Set(ctx, s.tokenKey, token); err != nil {
		return fail("save_token", err)
	}
	return nil
}

// GetToken returns domain.ErrKeyNotFound when no token has been saved.
func (s *CredentialStore) GetToken(ctx context.Context) (string, error) {
	token, err := s.kv.Get(ctx, s.tokenKey)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return "", err
		}
		return "", fail("get_token", err)
	}
	return token, nil
}

func (s *CredentialStore) RemoveToken(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.tokenKey); err != nil {
		return fail("remove_token", err)
	}
	return nil
}

func (s *CredentialStore) SaveUser(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fail("save_user", err)
	}
	if err := s.kv.Set(ctx, s.userKey, string(raw)); err != nil {
		return fail("save_user", err)
	}
	return nil
}

// GetUser returns domain.ErrKeyNotFound when no user has been saved, and a
// storage error when the stored value cannot be decoded.
func (s *CredentialStore) GetUser(ctx context.Context) (*domain.User, error) {
	raw, err := s.kv.Get(ctx, s.userKey)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil, err
		}
		return nil, fail("get_user", err)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fail("get_user", fmt.Errorf("decode user: %w", err))
	}
	return &user, nil
}

func (s *CredentialStore) RemoveUser(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.userKey); err != nil {
		return fail("remove_user", err)
	}
	return nil
}

// ClearAll removes the token and the user in a single backend batch.
func (s *CredentialStore) ClearAll(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.tokenKey, s.userKey); err != nil {
		return fail("clear_all", err)
	}
	return nil
}

func fail(op string, err error) error {
	metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
