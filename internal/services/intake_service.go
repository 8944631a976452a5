package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/audit"
	"github.com/swasthwrap/healthvault/internal/credential"
	"github.com/swasthwrap/healthvault/internal/identity"
	"github.com/swasthwrap/healthvault/internal/ledger"
	"github.com/swasthwrap/healthvault/internal/records"
	"github.com/swasthwrap/healthvault/internal/registry"
	"github.com/swasthwrap/healthvault/internal/scoring"
	"github.com/swasthwrap/healthvault/internal/storage"
	"github.com/swasthwrap/healthvault/pkg/metrics"
)

const (
	maxFileSize = 10 * 1024 * 1024

	// maxIDRerolls bounds receipt redraws on a record id collision.
	maxIDRerolls = 3
)

var allowedMimeTypes = map[string]bool{
	"application/pdf":   true,
	"image/jpeg":        true,
	"image/png":         true,
	"image/jpg":         true,
	"application/dicom": true,
}

// BlobStore is the slice of the storage chain the intake pipeline needs.
type BlobStore interface {
	Store(ctx context.Context, data []byte, filename string) (storage.Result, error)
}

// IntakeRequest is a parsed upload form.
type IntakeRequest struct {
	FileName      string
	MimeType      string
	Content       []byte
	UserAddress   string
	RecordType    string
	ProviderID    string
	PatientName   string
	DateOfService string
	Notes         string
}

// IntakeConfig carries the environment-dependent labels baked into intake
// responses.
type IntakeConfig struct {
	Network         string
	NetworkLabel    string
	GatewayURL      string
	ExplorerURL     string
	PublicURL       string
	ContractAddress string
}

type IntakeChecks struct {
	FileIntegrity bool `json:"fileIntegrity"`
	FormatValid   bool `json:"formatValid"`
	SizeValid     bool `json:"sizeValid"`
	HashMatch     bool `json:"hashMatch"`
	ProviderValid bool `json:"providerValid"`
}

type IntakeVerification struct {
	Score  int          `json:"score"`
	Status string       `json:"status"`
	Checks IntakeChecks `json:"checks"`
}

type BlockchainSummary struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     int64  `json:"blockNumber"`
	GasUsed         int64  `json:"gasUsed"`
	Confirmations   int    `json:"confirmations"`
	Network         string `json:"network"`
	Simulated       bool   `json:"simulated"`
}

type StorageSummary struct {
	Backend   string `json:"backend"`
	Simulated bool   `json:"simulated"`
}

type IntakeURLs struct {
	ExplorerTx    string `json:"baseScanUrl"`
	IPFSGateway   string `json:"ipfsGateway"`
	CredentialURL string `json:"credentialUrl"`
}

// IntakeResult is the data envelope returned for a successful upload.
type IntakeResult struct {
	RecordID             int64                            `json:"recordId"`
	DocumentCID          string                           `json:"documentCID"`
	UserDID              string                           `json:"userDID"`
	RecordType           string                           `json:"recordType"`
	Provider             registry.Provider                `json:"provider"`
	VerifiableCredential *credential.VerifiableCredential `json:"verifiableCredential"`
	Metadata             records.Metadata                 `json:"metadata"`
	Timestamp            string                           `json:"timestamp"`
	Blockchain           BlockchainSummary                `json:"blockchain"`
	Verification         IntakeVerification               `json:"verification"`
	Storage              StorageSummary                   `json:"storage"`
	URLs                 IntakeURLs                       `json:"urls"`
}

// IntakeService runs the document intake pipeline: validate, hash, store,
// build a credential, anchor, score, index.
type IntakeService struct {
	store     records.Store
	blobs     BlobStore
	anchor    ledger.Anchor
	simulator ledger.Anchor
	builder   *credential.Builder
	scorer    *scoring.Scorer
	publisher audit.Publisher
	cfg       IntakeConfig
	logger    *zap.Logger
	metrics   *metrics.MetricsCollector
	now       func() time.Time
}

// NewIntakeService wires the pipeline. anchor may be nil when no ledger RPC
// is configured; every anchoring then goes through the simulator.
func NewIntakeService(
	store records.Store,
	blobs BlobStore,
	anchor ledger.Anchor,
	simulator ledger.Anchor,
	builder *credential.Builder,
	scorer *scoring.Scorer,
	publisher audit.Publisher,
	cfg IntakeConfig,
	logger *zap.Logger,
	collector *metrics.MetricsCollector,
) *IntakeService {
	return &IntakeService{
		store:     store,
		blobs:     blobs,
		anchor:    anchor,
		simulator: simulator,
		builder:   builder,
		scorer:    scorer,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(zap.String("service", "intake_service")),
		metrics:   collector,
		now:       time.Now,
	}
}

// WithClock fixes the service clock, for tests.
func (s *IntakeService) WithClock(now func() time.Time) *IntakeService {
	s.now = now
	return s
}

func (s *IntakeService) validate(req *IntakeRequest) (registry.Provider, error) {
	if len(req.Content) == 0 {
		return registry.Provider{}, ErrMissingFile
	}
	if req.UserAddress == "" {
		return registry.Provider{}, ErrMissingUserAddress
	}
	if !identity.ValidAddress(req.UserAddress) {
		return registry.Provider{}, ErrInvalidUserAddress
	}
	if req.RecordType == "" {
		return registry.Provider{}, ErrMissingRecordType
	}
	if !records.ValidRecordType(req.RecordType) {
		return registry.Provider{}, ErrInvalidRecordType
	}
	if req.ProviderID == "" {
		return registry.Provider{}, ErrMissingProviderID
	}
	if int64(len(req.Content)) > maxFileSize {
		return registry.Provider{}, ErrFileTooLarge
	}
	if !allowedMimeTypes[req.MimeType] {
		return registry.Provider{}, ErrUnsupportedType
	}
	provider, ok := registry.Lookup(req.ProviderID)
	if !ok {
		return registry.Provider{}, ErrUnknownProvider
	}
	return provider, nil
}

// Process validates the request and runs the pipeline. Validation failures
// return before any side effect; after that the pipeline always completes,
// degrading to simulated storage or anchoring when a backend is down.
func (s *IntakeService) Process(ctx context.Context, req *IntakeRequest) (*IntakeResult, error) {
	start := s.now()

	provider, err := s.validate(req)
	if err != nil {
		s.metrics.IncrementCounter("intake_rejected", nil)
		return nil, err
	}

	documentHash := records.HashContent(req.Content)
	userDID := identity.DID(req.UserAddress, s.cfg.Network)

	stored, err := s.blobs.Store(ctx, req.Content, req.FileName)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	metadata := s.buildMetadata(req, documentHash)
	claim, err := credentialClaim(metadata, provider)
	if err != nil {
		return nil, fmt.Errorf("assembling credential claim: %w", err)
	}

	cred, err := s.builder.Build(stored.CID, userDID, req.RecordType, claim)
	if err != nil {
		return nil, fmt.Errorf("building credential: %w", err)
	}

	anchorReq := ledger.AnchorRequest{
		DocumentCID:  stored.CID,
		DocumentHash: documentHash,
		UserDID:      userDID,
		RecordType:   req.RecordType,
		MetadataHash: metadata.MetadataHash,
	}
	receipt := s.anchorRecord(ctx, anchorReq)

	score := s.scorer.Score(provider.TrustScore, req.RecordType, int64(len(req.Content)))

	record := &records.MedicalRecord{
		RecordID:           receipt.RecordID,
		DocumentCID:        stored.CID,
		DocumentHash:       documentHash,
		UserDID:            userDID,
		UserAddress:        req.UserAddress,
		Provider:           provider,
		RecordType:         req.RecordType,
		Metadata:           metadata,
		Credential:         cred,
		VerificationScore:  score,
		TransactionHash:    receipt.TransactionHash,
		BlockNumber:        receipt.BlockNumber,
		GasUsed:            receipt.GasUsed,
		BlockConfirmations: receipt.Confirmations,
		Simulated:          receipt.Simulated || stored.Simulated,
		LedgerSimulated:    receipt.Simulated,
		StorageSimulated:   stored.Simulated,
		StorageBackend:     stored.Backend,
		IsValid:            true,
		Timestamp:          s.now().UTC(),
	}

	for attempt := 0; ; attempt++ {
		err := s.store.Put(ctx, record)
		if err == nil {
			break
		}
		if errors.Is(err, records.ErrDuplicateCID) {
			// Same content re-uploaded: the CID is already indexed.
			// Return the existing record instead of forking the index.
			existing, lookupErr := s.store.GetByCID(ctx, stored.CID)
			if lookupErr == nil {
				s.logger.Info("duplicate content, returning existing record",
					zap.String("document_cid", stored.CID),
					zap.Int64("record_id", existing.RecordID))
				return s.resultFor(existing), nil
			}
		}
		if errors.Is(err, records.ErrDuplicateID) && attempt < maxIDRerolls {
			// Simulated record ids can collide with an existing record.
			// Draw a fresh receipt instead of evicting the holder.
			s.logger.Warn("record id collision, drawing a new receipt",
				zap.Int64("record_id", record.RecordID))
			receipt, _ = s.simulator.AnchorRecord(ctx, anchorReq)
			record.RecordID = receipt.RecordID
			record.TransactionHash = receipt.TransactionHash
			record.BlockNumber = receipt.BlockNumber
			record.GasUsed = receipt.GasUsed
			record.BlockConfirmations = receipt.Confirmations
			record.Simulated = receipt.Simulated || stored.Simulated
			record.LedgerSimulated = receipt.Simulated
			continue
		}
		return nil, fmt.Errorf("indexing record: %w", err)
	}

	s.publishAudit(record)

	s.metrics.IncrementCounter("records_created", nil)
	s.metrics.ObserveSize("document_size", float64(len(req.Content)))
	s.metrics.ObserveLatency("intake", s.now().Sub(start))

	s.logger.Info("Record created",
		zap.Int64("record_id", record.RecordID),
		zap.String("document_cid", record.DocumentCID),
		zap.String("provider", provider.ID),
		zap.Int("score", score),
		zap.Bool("simulated", record.Simulated))

	return s.resultFor(record), nil
}

func (s *IntakeService) buildMetadata(req *IntakeRequest, documentHash string) records.Metadata {
	patientName := req.PatientName
	if patientName == "" {
		patientName = "Anonymous"
	}
	dateOfService := req.DateOfService
	if dateOfService == "" {
		dateOfService = s.now().UTC().Format("2006-01-02")
	}

	fingerprint, _ := json.Marshal(map[string]interface{}{
		"fileName": req.FileName,
		"fileSize": len(req.Content),
		"mimeType": req.MimeType,
	})

	return records.Metadata{
		FileName:       req.FileName,
		FileSize:       int64(len(req.Content)),
		MimeType:       req.MimeType,
		DocumentHash:   documentHash,
		MetadataHash:   records.HashContent(fingerprint),
		PatientName:    patientName,
		DateOfService:  dateOfService,
		Notes:          req.Notes,
		UploadLocation: "India",
		IPFSGateway:    s.cfg.GatewayURL,
	}
}

func (s *IntakeService) anchorRecord(ctx context.Context, req ledger.AnchorRequest) ledger.Receipt {
	if s.anchor != nil {
		receipt, err := s.anchor.AnchorRecord(ctx, req)
		if err == nil {
			return receipt
		}
		s.logger.Warn("ledger anchoring failed, simulating receipt", zap.Error(err))
		s.metrics.IncrementCounter("anchor_fallback", nil)
	}

	receipt, _ := s.simulator.AnchorRecord(ctx, req)
	return receipt
}

func (s *IntakeService) publishAudit(record *records.MedicalRecord) {
	event := audit.IntakeEvent{
		RecordID:    record.RecordID,
		DocumentCID: record.DocumentCID,
		UserDID:     record.UserDID,
		RecordType:  record.RecordType,
		ProviderID:  record.Provider.ID,
		Score:       record.VerificationScore,
		Simulated:   record.Simulated,
		Timestamp:   record.Timestamp,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.publisher.PublishIntake(ctx, event)
	}()
}

func (s *IntakeService) resultFor(record *records.MedicalRecord) *IntakeResult {
	credentialURL := ""
	if record.Credential != nil {
		credentialURL = fmt.Sprintf("%s/credentials/%s", s.cfg.PublicURL, record.Credential.ID)
	}
	return &IntakeResult{
		RecordID:             record.RecordID,
		DocumentCID:          record.DocumentCID,
		UserDID:              record.UserDID,
		RecordType:           record.RecordType,
		Provider:             record.Provider,
		VerifiableCredential: record.Credential,
		Metadata:             record.Metadata,
		Timestamp:            record.Timestamp.Format(time.RFC3339),
		Blockchain: BlockchainSummary{
			TransactionHash: record.TransactionHash,
			BlockNumber:     record.BlockNumber,
			GasUsed:         record.GasUsed,
			Confirmations:   record.BlockConfirmations,
			Network:         s.cfg.NetworkLabel,
			Simulated:       record.LedgerSimulated,
		},
		Verification: IntakeVerification{
			Score:  record.VerificationScore,
			Status: scoring.StatusFor(record.VerificationScore),
			Checks: IntakeChecks{
				FileIntegrity: true,
				FormatValid:   true,
				SizeValid:     true,
				HashMatch:     true,
				ProviderValid: true,
			},
		},
		Storage: StorageSummary{
			Backend:   record.StorageBackend,
			Simulated: record.StorageSimulated,
		},
		URLs: IntakeURLs{
			ExplorerTx:    fmt.Sprintf("%s/tx/%s", s.cfg.ExplorerURL, record.TransactionHash),
			IPFSGateway:   s.cfg.GatewayURL + record.DocumentCID,
			CredentialURL: credentialURL,
		},
	}
}

func credentialClaim(metadata records.Metadata, provider registry.Provider) (map[string]interface{}, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	claim := make(map[string]interface{})
	if err := json.Unmarshal(raw, &claim); err != nil {
		return nil, err
	}
	claim["provider"] = provider
	return claim, nil
}
