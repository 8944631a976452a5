package services

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/credential"
	"github.com/swasthwrap/healthvault/internal/ledger"
	"github.com/swasthwrap/healthvault/internal/records"
	"github.com/swasthwrap/healthvault/internal/scoring"
	"github.com/swasthwrap/healthvault/internal/storage"
	"github.com/swasthwrap/healthvault/pkg/metrics"
)

const testAddress = "0x742d35C67d391d7f1e43cC2C87bB977b66c9b007"

func testIntakeConfig() IntakeConfig {
	return IntakeConfig{
		Network:         "baseSepolia",
		NetworkLabel:    "Base Sepolia",
		GatewayURL:      "https://ipfs.io/ipfs/",
		ExplorerURL:     "https://sepolia.basescan.org",
		PublicURL:       "http://localhost:8000",
		ContractAddress: "0x1234567890123456789012345678901234567890",
	}
}

func newTestIntakeService(t *testing.T, store records.Store, blobs BlobStore, anchor ledger.Anchor) (*IntakeService, *mockPublisher) {
	t.Helper()

	if blobs == nil {
		blobs = storage.NewChain(zap.NewNop(), storage.NewDeterministicBackend())
	}
	publisher := &mockPublisher{}
	svc := NewIntakeService(
		store,
		blobs,
		anchor,
		ledger.NewSimulator(rand.New(rand.NewSource(42))),
		credential.NewBuilder("did:ethr:baseSepolia:0xissuer", "Test Issuer"),
		scoring.NewScorer(rand.New(rand.NewSource(1))),
		publisher,
		testIntakeConfig(),
		zap.NewNop(),
		metrics.NewMetricsCollector(),
	)
	return svc, publisher
}

func validIntakeRequest() *IntakeRequest {
	return &IntakeRequest{
		FileName:    "blood_test.pdf",
		MimeType:    "application/pdf",
		Content:     bytes.Repeat([]byte("report"), 8192),
		UserAddress: testAddress,
		RecordType:  records.TypeLabReport,
		ProviderID:  "aiims-delhi",
		PatientName: "Test Patient",
	}
}

func TestProcessSuccess(t *testing.T) {
	store := records.NewMemoryStore()
	svc, _ := newTestIntakeService(t, store, nil, nil)

	result, err := svc.Process(context.Background(), validIntakeRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.DocumentCID, "bafk"))
	assert.Equal(t, "did:ethr:baseSepolia:"+strings.ToLower(testAddress), result.UserDID)
	assert.Equal(t, "aiims-delhi", result.Provider.ID)
	assert.GreaterOrEqual(t, result.Verification.Score, 75)
	assert.LessOrEqual(t, result.Verification.Score, 100)
	assert.Contains(t, []string{"verified", "pending"}, result.Verification.Status)
	assert.True(t, result.Verification.Checks.FileIntegrity)
	assert.True(t, result.Verification.Checks.ProviderValid)
	assert.True(t, result.Blockchain.Simulated)
	assert.Equal(t, "deterministic", result.Storage.Backend)
	assert.True(t, result.Storage.Simulated)
	assert.Contains(t, result.URLs.ExplorerTx, "https://sepolia.basescan.org/tx/0x")
	assert.Equal(t, "https://ipfs.io/ipfs/"+result.DocumentCID, result.URLs.IPFSGateway)

	require.NotNil(t, result.VerifiableCredential)
	assert.Equal(t, result.UserDID, result.VerifiableCredential.Subject.ID)

	// Both lookup keys resolve to the same record.
	byID, err := store.GetByID(context.Background(), result.RecordID)
	require.NoError(t, err)
	byCID, err := store.GetByCID(context.Background(), result.DocumentCID)
	require.NoError(t, err)
	assert.Equal(t, byID.RecordID, byCID.RecordID)
	assert.Equal(t, byID.DocumentHash, records.HashContent(validIntakeRequest().Content))
}

func TestProcessValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IntakeRequest)
		want   error
	}{
		{"missing file", func(r *IntakeRequest) { r.Content = nil }, ErrMissingFile},
		{"missing address", func(r *IntakeRequest) { r.UserAddress = "" }, ErrMissingUserAddress},
		{"malformed address", func(r *IntakeRequest) { r.UserAddress = "0x123" }, ErrInvalidUserAddress},
		{"missing record type", func(r *IntakeRequest) { r.RecordType = "" }, ErrMissingRecordType},
		{"unknown record type", func(r *IntakeRequest) { r.RecordType = "horoscope" }, ErrInvalidRecordType},
		{"missing provider", func(r *IntakeRequest) { r.ProviderID = "" }, ErrMissingProviderID},
		{"oversized file", func(r *IntakeRequest) { r.Content = make([]byte, maxFileSize+1) }, ErrFileTooLarge},
		{"unsupported mime type", func(r *IntakeRequest) { r.MimeType = "text/html" }, ErrUnsupportedType},
		{"unknown provider", func(r *IntakeRequest) { r.ProviderID = "fake-clinic" }, ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := records.NewMemoryStore()
			svc, _ := newTestIntakeService(t, store, nil, nil)

			req := validIntakeRequest()
			tt.mutate(req)

			_, err := svc.Process(context.Background(), req)
			require.ErrorIs(t, err, tt.want)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))

			count, err := store.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count, "rejected upload must not be indexed")
		})
	}
}

func TestProcessUnknownProviderMessage(t *testing.T) {
	svc, _ := newTestIntakeService(t, records.NewMemoryStore(), nil, nil)

	req := validIntakeRequest()
	req.ProviderID = "fake-clinic"
	_, err := svc.Process(context.Background(), req)
	require.EqualError(t, err, "Invalid provider ID")
}

func TestProcessScoreWithinBounds(t *testing.T) {
	svc, _ := newTestIntakeService(t, records.NewMemoryStore(), nil, nil)

	for _, providerID := range []string{"apollo-delhi", "aiims-delhi", "fortis-mumbai", "max-noida"} {
		req := validIntakeRequest()
		req.ProviderID = providerID
		req.Content = append(req.Content, []byte(providerID)...)

		result, err := svc.Process(context.Background(), req)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Verification.Score, 75, providerID)
		assert.LessOrEqual(t, result.Verification.Score, 100, providerID)
	}
}

func TestProcessDuplicateContentReturnsExistingRecord(t *testing.T) {
	store := records.NewMemoryStore()
	svc, _ := newTestIntakeService(t, store, nil, nil)

	first, err := svc.Process(context.Background(), validIntakeRequest())
	require.NoError(t, err)

	second, err := svc.Process(context.Background(), validIntakeRequest())
	require.NoError(t, err)

	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Equal(t, first.DocumentCID, second.DocumentCID)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcessAnchorFallbackToSimulator(t *testing.T) {
	anchor := &mockAnchor{
		AnchorFunc: func(context.Context, ledger.AnchorRequest) (ledger.Receipt, error) {
			return ledger.Receipt{}, errors.New("rpc endpoint unreachable")
		},
	}
	svc, _ := newTestIntakeService(t, records.NewMemoryStore(), nil, anchor)

	result, err := svc.Process(context.Background(), validIntakeRequest())
	require.NoError(t, err)
	assert.True(t, result.Blockchain.Simulated)
	assert.NotEmpty(t, result.Blockchain.TransactionHash)
	assert.GreaterOrEqual(t, result.Blockchain.GasUsed, int64(21000))
}

func TestProcessRealAnchorReceipt(t *testing.T) {
	receipt := ledger.Receipt{
		RecordID:        777001,
		TransactionHash: "0xabc123",
		BlockNumber:     18000000,
		GasUsed:         31337,
		Confirmations:   25,
	}
	anchor := &mockAnchor{
		AnchorFunc: func(_ context.Context, req ledger.AnchorRequest) (ledger.Receipt, error) {
			assert.NotEmpty(t, req.DocumentCID)
			assert.NotEmpty(t, req.DocumentHash)
			return receipt, nil
		},
	}
	blobs := &mockBlobStore{
		StoreFunc: func(_ context.Context, data []byte, _ string) (storage.Result, error) {
			cid, err := storage.DeriveCID(data)
			if err != nil {
				return storage.Result{}, err
			}
			return storage.Result{CID: cid, Backend: "pinning"}, nil
		},
	}
	svc, _ := newTestIntakeService(t, records.NewMemoryStore(), blobs, anchor)

	result, err := svc.Process(context.Background(), validIntakeRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(777001), result.RecordID)
	assert.Equal(t, "0xabc123", result.Blockchain.TransactionHash)
	assert.False(t, result.Blockchain.Simulated)
	assert.Equal(t, "pinning", result.Storage.Backend)
	assert.False(t, result.Storage.Simulated)
}

func TestProcessSimulatedAnchorKeepsRealStorageFlag(t *testing.T) {
	// A pinned document with a simulated ledger receipt must not be
	// reported as simulated storage.
	anchor := &mockAnchor{
		AnchorFunc: func(context.Context, ledger.AnchorRequest) (ledger.Receipt, error) {
			return ledger.Receipt{}, errors.New("rpc endpoint unreachable")
		},
	}
	blobs := &mockBlobStore{
		StoreFunc: func(_ context.Context, data []byte, _ string) (storage.Result, error) {
			cid, err := storage.DeriveCID(data)
			if err != nil {
				return storage.Result{}, err
			}
			return storage.Result{CID: cid, Backend: "pinning"}, nil
		},
	}
	store := records.NewMemoryStore()
	svc, _ := newTestIntakeService(t, store, blobs, anchor)

	result, err := svc.Process(context.Background(), validIntakeRequest())
	require.NoError(t, err)
	assert.True(t, result.Blockchain.Simulated)
	assert.False(t, result.Storage.Simulated)
	assert.Equal(t, "pinning", result.Storage.Backend)

	stored, err := store.GetByID(context.Background(), result.RecordID)
	require.NoError(t, err)
	assert.True(t, stored.Simulated)
	assert.True(t, stored.LedgerSimulated)
	assert.False(t, stored.StorageSimulated)
}

func TestProcessRerollsOnRecordIDCollision(t *testing.T) {
	store := records.NewMemoryStore()

	// Occupy the id the anchor will hand out for a different document.
	occupant := &records.MedicalRecord{
		RecordID:     777001,
		DocumentCID:  "bafkoccupant",
		DocumentHash: records.HashContent([]byte("other content")),
		IsValid:      true,
	}
	require.NoError(t, store.Put(context.Background(), occupant))

	anchor := &mockAnchor{
		AnchorFunc: func(context.Context, ledger.AnchorRequest) (ledger.Receipt, error) {
			return ledger.Receipt{RecordID: 777001, TransactionHash: "0xabc123"}, nil
		},
	}
	svc, _ := newTestIntakeService(t, store, nil, anchor)

	result, err := svc.Process(context.Background(), validIntakeRequest())
	require.NoError(t, err)
	assert.NotEqual(t, int64(777001), result.RecordID)
	assert.True(t, result.Blockchain.Simulated, "re-rolled receipt comes from the simulator")

	// The occupant is untouched and the new record is indexed beside it.
	kept, err := store.GetByID(context.Background(), 777001)
	require.NoError(t, err)
	assert.Equal(t, "bafkoccupant", kept.DocumentCID)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProcessStorageFailure(t *testing.T) {
	blobs := &mockBlobStore{
		StoreFunc: func(context.Context, []byte, string) (storage.Result, error) {
			return storage.Result{}, storage.ErrStorageUnavailable
		},
	}
	store := records.NewMemoryStore()
	svc, _ := newTestIntakeService(t, store, blobs, nil)

	_, err := svc.Process(context.Background(), validIntakeRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProcessPublishesAuditEvent(t *testing.T) {
	svc, publisher := newTestIntakeService(t, records.NewMemoryStore(), nil, nil)

	_, err := svc.Process(context.Background(), validIntakeRequest())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return publisher.count() == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestProcessMetadataDefaults(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestIntakeService(t, records.NewMemoryStore(), nil, nil)
	svc.WithClock(func() time.Time { return fixed })

	req := validIntakeRequest()
	req.PatientName = ""
	req.DateOfService = ""

	result, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", result.Metadata.PatientName)
	assert.Equal(t, "2025-03-14", result.Metadata.DateOfService)
	assert.Equal(t, "India", result.Metadata.UploadLocation)
	assert.NotEmpty(t, result.Metadata.MetadataHash)
}
