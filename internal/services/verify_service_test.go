package services

import (
	"context"
	"encoding/base64"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/records"
	"github.com/swasthwrap/healthvault/pkg/metrics"
)

func testVerifyConfig() VerifyConfig {
	return VerifyConfig{
		NetworkLabel:    "Base Sepolia",
		ContractAddress: "0x1234567890123456789012345678901234567890",
		ExplorerURL:     "https://sepolia.basescan.org",
		GatewayURL:      "https://ipfs.io/ipfs/",
		PublicURL:       "http://localhost:8000",
	}
}

func newTestVerifyService(t *testing.T, seed int64) (*VerifyService, records.Store) {
	t.Helper()

	store := records.NewMemoryStore()
	for _, record := range records.DemoRecords() {
		require.NoError(t, store.Put(context.Background(), record))
	}
	svc := NewVerifyService(store, rand.New(rand.NewSource(seed)), testVerifyConfig(), zap.NewNop(), metrics.NewMetricsCollector())
	return svc, store
}

func TestVerifyMissingIdentifier(t *testing.T) {
	svc, _ := newTestVerifyService(t, 1)

	_, err := svc.Verify(context.Background(), &VerifyRequest{})
	require.EqualError(t, err, "Document CID or Record ID required")
}

func TestVerifyByRecordID(t *testing.T) {
	svc, _ := newTestVerifyService(t, 1)

	resp, err := svc.Verify(context.Background(), &VerifyRequest{RecordID: "123456"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.True(t, resp.Verification.Checks.RecordExists)
	assert.True(t, resp.Verification.Checks.HashMatch, "no file data means no strict comparison")
	assert.True(t, resp.Verification.Checks.ProviderValid)
	assert.True(t, resp.Verification.Checks.FormatValid)
	assert.True(t, resp.Verification.Checks.TimestampValid)

	require.NotNil(t, resp.Verification.Document)
	assert.Equal(t, int64(123456), resp.Verification.Document.RecordID)
	assert.Equal(t, "apollo-delhi", resp.Verification.Document.Provider.ID)
	assert.True(t, strings.HasPrefix(resp.Verification.VerificationID, "VER-"))
	assert.Contains(t, resp.URLs.IPFSGateway, resp.Verification.Document.DocumentCID)
}

func TestVerifyByCIDResolvesSameRecord(t *testing.T) {
	svcByID, _ := newTestVerifyService(t, 7)
	svcByCID, _ := newTestVerifyService(t, 7)

	byID, err := svcByID.Verify(context.Background(), &VerifyRequest{RecordID: "234567"})
	require.NoError(t, err)
	byCID, err := svcByCID.Verify(context.Background(), &VerifyRequest{DocumentCID: "QmYFbmhdvpDfWyaTzWj8vWu5k3z2a4Y9U6QjJ4jKN8hGpE"})
	require.NoError(t, err)

	require.NotNil(t, byID.Verification.Document)
	require.NotNil(t, byCID.Verification.Document)
	assert.Equal(t, byID.Verification.Document.RecordID, byCID.Verification.Document.RecordID)
	// Same seed, same record: the probabilistic checks line up too.
	assert.Equal(t, byID.Verification.Checks, byCID.Verification.Checks)
	assert.Equal(t, byID.Verification.Score, byCID.Verification.Score)
}

func TestVerifyScoreIsTrustWeighted(t *testing.T) {
	svc, _ := newTestVerifyService(t, 3)

	resp, err := svc.Verify(context.Background(), &VerifyRequest{RecordID: "234567"})
	require.NoError(t, err)

	// aiims-delhi has trust 100, so score is passed × 10.
	assert.Equal(t, resp.Verification.Checks.passed()*10, resp.Verification.Score)
	assert.GreaterOrEqual(t, resp.Verification.Score, 50, "five checks are deterministic for this fixture")
	assert.LessOrEqual(t, resp.Verification.Score, 100)
}

func TestVerifyLowTrustProviderNeverVerified(t *testing.T) {
	// fortis-mumbai: trust 45 and unverified, so even a perfect probe run
	// caps the score at 9×100×45/1000 = 40.
	for seed := int64(0); seed < 20; seed++ {
		svc, _ := newTestVerifyService(t, seed)
		resp, err := svc.Verify(context.Background(), &VerifyRequest{RecordID: "345678"})
		require.NoError(t, err)

		assert.False(t, resp.Verification.Checks.ProviderValid)
		assert.LessOrEqual(t, resp.Verification.Score, 40)
		assert.Equal(t, "flagged", resp.Verification.Status)
		assert.Contains(t, resp.Verification.Warnings, "Healthcare provider is not verified in our system")
		assert.Contains(t, resp.Verification.Warnings, "Healthcare provider has low trust score")
	}
}

func TestVerifyHashMatch(t *testing.T) {
	store := records.NewMemoryStore()
	content := []byte("the exact bytes that were uploaded")
	record := &records.MedicalRecord{
		RecordID:     900001,
		DocumentCID:  "bafktestcid900001",
		DocumentHash: records.HashContent(content),
		Provider:     records.DemoRecords()[0].Provider,
		RecordType:   records.TypeLabReport,
		Timestamp:    time.Now().Add(-time.Hour),
		IsValid:      true,
	}
	require.NoError(t, store.Put(context.Background(), record))
	svc := NewVerifyService(store, rand.New(rand.NewSource(5)), testVerifyConfig(), zap.NewNop(), metrics.NewMetricsCollector())

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		RecordID: "900001",
		FileData: base64.StdEncoding.EncodeToString(content),
	})
	require.NoError(t, err)
	assert.True(t, resp.Verification.Checks.HashMatch)
	assert.True(t, resp.Verification.Technical.HashMatched)
	assert.Equal(t, record.DocumentHash, resp.Verification.Technical.CalculatedHash)
}

func TestVerifyHashMismatch(t *testing.T) {
	svc, _ := newTestVerifyService(t, 5)

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		RecordID: "123456",
		FileData: base64.StdEncoding.EncodeToString([]byte("tampered content")),
	})
	require.NoError(t, err)
	assert.False(t, resp.Verification.Checks.HashMatch)
	assert.False(t, resp.Verification.Technical.HashMatched)
	assert.NotEqual(t, resp.Verification.Technical.CalculatedHash, resp.Verification.Technical.ExpectedHash)
}

func TestVerifyInvalidBase64IsIgnored(t *testing.T) {
	svc, _ := newTestVerifyService(t, 5)

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		RecordID: "123456",
		FileData: "!!! not base64 !!!",
	})
	require.NoError(t, err)
	assert.True(t, resp.Verification.Checks.HashMatch)
	assert.Empty(t, resp.Verification.Technical.CalculatedHash)
}

func TestVerifyUnknownRecord(t *testing.T) {
	svc, _ := newTestVerifyService(t, 9)

	resp, err := svc.Verify(context.Background(), &VerifyRequest{DocumentCID: "QmDoesNotExistAnywhere"})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "error", resp.Verification.Status)
	assert.Zero(t, resp.Verification.Score)
	assert.Equal(t, VerificationChecks{}, resp.Verification.Checks)
	assert.Nil(t, resp.Verification.Document)
	assert.Contains(t, resp.Verification.Warnings, "Document not found in our verification database")
	assert.Contains(t, resp.Verification.Recommendations, "Contact the issuing healthcare provider directly")
	assert.Equal(t, "high", resp.Verification.Metadata.RiskLevel)
}

func TestVerifyMalformedRecordIDFallsBackToCID(t *testing.T) {
	svc, _ := newTestVerifyService(t, 11)

	resp, err := svc.Verify(context.Background(), &VerifyRequest{
		RecordID:    "not-a-number",
		DocumentCID: "QmWATWQ7fVPP2EFGu71UkfnqhYXDYH566qy47CnAQP2bDB",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Verification.Document)
	assert.Equal(t, int64(123456), resp.Verification.Document.RecordID)
}

func TestVerifyReportTimestamps(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestVerifyService(t, 13)
	svc.WithClock(func() time.Time { return fixed })

	resp, err := svc.Verify(context.Background(), &VerifyRequest{RecordID: "456789"})
	require.NoError(t, err)

	assert.Equal(t, fixed.Format(time.RFC3339), resp.Verification.Timestamp)
	assert.Equal(t, fixed.Add(30*24*time.Hour).Format(time.RFC3339), resp.Verification.Metadata.NextVerificationDue)
	assert.Equal(t, "blockchain_consensus", resp.Verification.Metadata.VerificationMethod)
	assert.True(t, strings.HasPrefix(resp.Verification.VerificationID, "VER-"+strconv.FormatInt(fixed.UnixMilli(), 10)))
}
