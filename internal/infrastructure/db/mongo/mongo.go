// Package mongo stores the development task service data in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Config selects the server and database.
type Config struct {
	URI      string
	Database string
	// Timeout bounds connecting and index creation. Zero means 10s.
	Timeout time.Duration
}

// Open connects, pings, and returns a Repository with its indexes in place.
// The returned func disconnects the client.
func Open(ctx context.Context, cfg Config) (*Repository, func(context.Context) error, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = connectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetAppName("taskapi-dev"))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := NewRepository(client.Database(cfg.Database))
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return repo, client.Disconnect, nil
}
