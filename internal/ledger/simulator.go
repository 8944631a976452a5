package ledger

import (
	"context"
	"encoding/hex"
	"math/rand"
	"sync"
)

// Simulator fabricates plausible anchoring receipts when no ledger RPC is
// configured or the real call failed. It never fails.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ Anchor = (*Simulator)(nil)

func NewSimulator(rng *rand.Rand) *Simulator {
	return &Simulator{rng: rng}
}

func (s *Simulator) AnchorRecord(_ context.Context, _ AnchorRequest) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txHash := make([]byte, 32)
	s.rng.Read(txHash)

	return Receipt{
		RecordID:        100000 + s.rng.Int63n(900000),
		TransactionHash: "0x" + hex.EncodeToString(txHash),
		BlockNumber:     15000000 + s.rng.Int63n(1000000),
		GasUsed:         21000 + s.rng.Int63n(50000),
		Confirmations:   12 + s.rng.Intn(20),
		Simulated:       true,
	}, nil
}
