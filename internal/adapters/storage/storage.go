// Package storage holds the pieces shared by every collection store: the
// Mongo client bootstrap and the atomic batch-write contract.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MaxBatchOps is the store's hard atomic-batch limit. A batch call with more
// operations fails as a whole; callers must chunk.
const MaxBatchOps = 500

// ErrBatchTooLarge is returned when a batch call exceeds MaxBatchOps.
var ErrBatchTooLarge = errors.New("batch exceeds the 500 operation limit")

// UpdateOp is one partial document update inside a batch. Fields are set,
// Unset paths are removed; untouched fields keep their stored values.
type UpdateOp struct {
	ID     string
	Fields map[string]any
	Unset  []string
}

// Connect opens a Mongo client and verifies the deployment is reachable.
// PRE: uri is a valid mongodb:// connection string
// POST: Returns a connected client or an error after the dial timeout
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo unreachable: %w", err)
	}
	return client, nil
}
