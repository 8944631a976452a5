package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swasthwrap/healthvault/internal/credential"
	"github.com/swasthwrap/healthvault/internal/registry"
)

// recordRow is the persisted shape of a MedicalRecord. Structured blocks
// (metadata, credential, provider snapshot) live in JSON columns.
type recordRow struct {
	RecordID           int64          `gorm:"primaryKey;autoIncrement:false"`
	DocumentCID        string         `gorm:"uniqueIndex;size:128;not null"`
	DocumentHash       string         `gorm:"size:64;not null"`
	UserDID            string         `gorm:"index;size:128"`
	UserAddress        string         `gorm:"size:42"`
	RecordType         string         `gorm:"size:32"`
	Provider           datatypes.JSON `gorm:"not null"`
	Metadata           datatypes.JSON
	Credential         datatypes.JSON
	VerificationScore  int
	TransactionHash    string `gorm:"size:66"`
	BlockNumber        int64
	GasUsed            int64
	BlockConfirmations int
	Simulated          bool
	LedgerSimulated    bool
	StorageSimulated   bool
	StorageBackend     string `gorm:"size:32"`
	IsValid            bool
	Timestamp          time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (recordRow) TableName() string { return "medical_records" }

// GormStore persists records in Postgres. It satisfies the same contract as
// MemoryStore, for deployments where the index must outlive the process.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("migrating medical_records: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Put(ctx context.Context, record *MedicalRecord) error {
	var existing recordRow
	err := s.db.WithContext(ctx).
		Where("document_cid = ? AND record_id <> ?", record.DocumentCID, record.RecordID).
		First(&existing).Error
	if err == nil {
		return ErrDuplicateCID
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	err = s.db.WithContext(ctx).
		Where("record_id = ? AND document_cid <> ?", record.RecordID, record.DocumentCID).
		First(&existing).Error
	if err == nil {
		return ErrDuplicateID
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	row, err := toRow(record)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

func (s *GormStore) GetByID(ctx context.Context, recordID int64) (*MedicalRecord, error) {
	var row recordRow
	if err := s.db.WithContext(ctx).First(&row, "record_id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromRow(&row)
}

func (s *GormStore) GetByCID(ctx context.Context, documentCID string) (*MedicalRecord, error) {
	var row recordRow
	if err := s.db.WithContext(ctx).First(&row, "document_cid = ?", documentCID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromRow(&row)
}

func (s *GormStore) ListByDID(ctx context.Context, userDID string) ([]*MedicalRecord, error) {
	var rows []recordRow
	if err := s.db.WithContext(ctx).
		Where("user_did = ?", userDID).
		Order("timestamp DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*MedicalRecord, 0, len(rows))
	for i := range rows {
		record, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *GormStore) List(ctx context.Context) ([]*MedicalRecord, error) {
	var rows []recordRow
	if err := s.db.WithContext(ctx).Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*MedicalRecord, 0, len(rows))
	for i := range rows {
		record, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *GormStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&recordRow{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *GormStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&recordRow{}).Error
}

func toRow(record *MedicalRecord) (*recordRow, error) {
	providerJSON, err := json.Marshal(record.Provider)
	if err != nil {
		return nil, fmt.Errorf("encoding provider: %w", err)
	}
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	var credentialJSON []byte
	if record.Credential != nil {
		credentialJSON, err = json.Marshal(record.Credential)
		if err != nil {
			return nil, fmt.Errorf("encoding credential: %w", err)
		}
	}

	return &recordRow{
		RecordID:           record.RecordID,
		DocumentCID:        record.DocumentCID,
		DocumentHash:       record.DocumentHash,
		UserDID:            record.UserDID,
		UserAddress:        record.UserAddress,
		RecordType:         record.RecordType,
		Provider:           providerJSON,
		Metadata:           metadataJSON,
		Credential:         credentialJSON,
		VerificationScore:  record.VerificationScore,
		TransactionHash:    record.TransactionHash,
		BlockNumber:        record.BlockNumber,
		GasUsed:            record.GasUsed,
		BlockConfirmations: record.BlockConfirmations,
		Simulated:          record.Simulated,
		LedgerSimulated:    record.LedgerSimulated,
		StorageSimulated:   record.StorageSimulated,
		StorageBackend:     record.StorageBackend,
		IsValid:            record.IsValid,
		Timestamp:          record.Timestamp,
	}, nil
}

func fromRow(row *recordRow) (*MedicalRecord, error) {
	var provider registry.Provider
	if err := json.Unmarshal(row.Provider, &provider); err != nil {
		return nil, fmt.Errorf("decoding provider: %w", err)
	}
	var metadata Metadata
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	var cred *credential.VerifiableCredential
	if len(row.Credential) > 0 {
		cred = &credential.VerifiableCredential{}
		if err := json.Unmarshal(row.Credential, cred); err != nil {
			return nil, fmt.Errorf("decoding credential: %w", err)
		}
	}

	return &MedicalRecord{
		RecordID:           row.RecordID,
		DocumentCID:        row.DocumentCID,
		DocumentHash:       row.DocumentHash,
		UserDID:            row.UserDID,
		UserAddress:        row.UserAddress,
		Provider:           provider,
		RecordType:         row.RecordType,
		Metadata:           metadata,
		Credential:         cred,
		VerificationScore:  row.VerificationScore,
		TransactionHash:    row.TransactionHash,
		BlockNumber:        row.BlockNumber,
		GasUsed:            row.GasUsed,
		BlockConfirmations: row.BlockConfirmations,
		Simulated:          row.Simulated,
		LedgerSimulated:    row.LedgerSimulated,
		StorageSimulated:   row.StorageSimulated,
		StorageBackend:     row.StorageBackend,
		IsValid:            row.IsValid,
		Timestamp:          row.Timestamp,
	}, nil
}
