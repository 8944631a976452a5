package records

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/swasthwrap/healthvault/internal/credential"
	"github.com/swasthwrap/healthvault/internal/registry"
)

// Record types accepted at intake.
const (
	TypeLabReport         = "lab_report"
	TypePrescription      = "prescription"
	TypeMedicalImaging    = "medical_imaging"
	TypeConsultationNotes = "consultation_notes"
	TypeDischargeSummary  = "discharge_summary"
	TypeVaccinationRecord = "vaccination_record"
	TypeOther             = "other"
)

// Metadata is the free-form descriptive block stored with every record and
// embedded into its credential claim.
type Metadata struct {
	FileName       string `json:"fileName"`
	FileSize       int64  `json:"fileSize"`
	MimeType       string `json:"mimeType"`
	DocumentHash   string `json:"documentHash"`
	MetadataHash   string `json:"metadataHash"`
	PatientName    string `json:"patientName"`
	DateOfService  string `json:"dateOfService"`
	Notes          string `json:"notes"`
	UploadLocation string `json:"uploadLocation"`
	IPFSGateway    string `json:"ipfsGateway"`
}

// MedicalRecord is the central entity produced by intake. The provider entry
// is copied by value at creation time; registry changes never reach stored
// records. Records are created once and only read afterwards. Simulated is
// the record-level degradation tag; LedgerSimulated and StorageSimulated say
// which stage degraded.
type MedicalRecord struct {
	RecordID           int64                            `json:"recordId"`
	DocumentCID        string                           `json:"documentCID"`
	DocumentHash       string                           `json:"documentHash"`
	UserDID            string                           `json:"userDID"`
	UserAddress        string                           `json:"userAddress"`
	Provider           registry.Provider                `json:"provider"`
	RecordType         string                           `json:"recordType"`
	Metadata           Metadata                         `json:"metadata"`
	Credential         *credential.VerifiableCredential `json:"verifiableCredential,omitempty"`
	VerificationScore  int                              `json:"verificationScore"`
	TransactionHash    string                           `json:"transactionHash,omitempty"`
	BlockNumber        int64                            `json:"blockNumber,omitempty"`
	GasUsed            int64                            `json:"gasUsed,omitempty"`
	BlockConfirmations int                              `json:"blockConfirmations,omitempty"`
	Simulated          bool                             `json:"simulated"`
	LedgerSimulated    bool                             `json:"ledgerSimulated"`
	StorageSimulated   bool                             `json:"storageSimulated"`
	StorageBackend     string                           `json:"storageBackend,omitempty"`
	IsValid            bool                             `json:"isValid"`
	Timestamp          time.Time                        `json:"timestamp"`
}

// HashContent returns the hex sha256 digest of data. The same content always
// hashes to the same digest; verify uses this to detect tampering.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidRecordType reports whether t is one of the accepted categories.
func ValidRecordType(t string) bool {
	switch t {
	case TypeLabReport, TypePrescription, TypeMedicalImaging,
		TypeConsultationNotes, TypeDischargeSummary, TypeVaccinationRecord, TypeOther:
		return true
	}
	return false
}
