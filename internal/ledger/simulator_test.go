package ledger

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimulatorReceiptRanges(t *testing.T) {
	sim := NewSimulator(rand.New(rand.NewSource(1)))

	for i := 0; i < 500; i++ {
		receipt, err := sim.AnchorRecord(context.Background(), AnchorRequest{})
		assert.NoError(t, err)

		assert.GreaterOrEqual(t, receipt.RecordID, int64(100000))
		assert.LessOrEqual(t, receipt.RecordID, int64(999999))
		assert.True(t, strings.HasPrefix(receipt.TransactionHash, "0x"))
		assert.Len(t, receipt.TransactionHash, 66)
		assert.GreaterOrEqual(t, receipt.GasUsed, int64(21000))
		assert.Less(t, receipt.GasUsed, int64(71000))
		assert.GreaterOrEqual(t, receipt.BlockNumber, int64(15000000))
		assert.GreaterOrEqual(t, receipt.Confirmations, 12)
		assert.Less(t, receipt.Confirmations, 32)
		assert.True(t, receipt.Simulated)
	}
}

func TestSimulatorFixedSeedReproducible(t *testing.T) {
	a := NewSimulator(rand.New(rand.NewSource(99)))
	b := NewSimulator(rand.New(rand.NewSource(99)))

	ra, _ := a.AnchorRecord(context.Background(), AnchorRequest{})
	rb, _ := b.AnchorRecord(context.Background(), AnchorRequest{})
	assert.Equal(t, ra, rb)
}
