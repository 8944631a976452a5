package storage

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrStorageUnavailable is returned by a chain with no reachable backend.
var ErrStorageUnavailable = errors.New("no storage backend available")

// Backend stores document bytes and returns their content identifier.
type Backend interface {
	Name() string
	Store(ctx context.Context, data []byte, filename string) (string, error)
}

// Result reports where a document landed. Simulated is true when only the
// deterministic fallback served, meaning the bytes were not actually
// persisted anywhere.
type Result struct {
	CID       string
	Backend   string
	Simulated bool
}

// Chain tries each backend in order and falls through on failure. Wiring a
// DeterministicBackend last makes Store infallible, at the cost of the
// Simulated flag on the result.
type Chain struct {
	backends []Backend
	logger   *zap.Logger
}

func NewChain(logger *zap.Logger, backends ...Backend) *Chain {
	return &Chain{
		backends: backends,
		logger:   logger.With(zap.String("component", "storage_chain")),
	}
}

func (c *Chain) Store(ctx context.Context, data []byte, filename string) (Result, error) {
	var lastErr error
	for _, backend := range c.backends {
		cid, err := backend.Store(ctx, data, filename)
		if err != nil {
			c.logger.Warn("storage backend failed, falling through",
				zap.String("backend", backend.Name()),
				zap.Error(err))
			lastErr = err
			continue
		}
		_, simulated := backend.(*DeterministicBackend)
		return Result{CID: cid, Backend: backend.Name(), Simulated: simulated}, nil
	}

	if lastErr != nil {
		return Result{}, errors.Join(ErrStorageUnavailable, lastErr)
	}
	return Result{}, ErrStorageUnavailable
}
