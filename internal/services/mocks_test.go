package services

import (
	"context"
	"errors"
	"sync"

	"github.com/swasthwrap/healthvault/internal/audit"
	"github.com/swasthwrap/healthvault/internal/ledger"
	"github.com/swasthwrap/healthvault/internal/storage"
)

// Compile-time checks that the mocks satisfy the contracts they stand in for.
var (
	_ BlobStore       = (*mockBlobStore)(nil)
	_ ledger.Anchor   = (*mockAnchor)(nil)
	_ audit.Publisher = (*mockPublisher)(nil)
)

type mockBlobStore struct {
	StoreFunc func(ctx context.Context, data []byte, filename string) (storage.Result, error)
}

func (m *mockBlobStore) Store(ctx context.Context, data []byte, filename string) (storage.Result, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, data, filename)
	}
	return storage.Result{}, errors.New("StoreFunc not implemented in mock")
}

type mockAnchor struct {
	AnchorFunc func(ctx context.Context, req ledger.AnchorRequest) (ledger.Receipt, error)
}

func (m *mockAnchor) AnchorRecord(ctx context.Context, req ledger.AnchorRequest) (ledger.Receipt, error) {
	if m.AnchorFunc != nil {
		return m.AnchorFunc(ctx, req)
	}
	return ledger.Receipt{}, errors.New("AnchorFunc not implemented in mock")
}

// mockPublisher records published events; PublishIntake is called from a
// goroutine, so access is guarded.
type mockPublisher struct {
	mu     sync.Mutex
	events []audit.IntakeEvent
}

func (m *mockPublisher) PublishIntake(_ context.Context, event audit.IntakeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
