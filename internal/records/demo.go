package records

import (
	"time"

	"github.com/swasthwrap/healthvault/internal/registry"
)

func mustProvider(id string) registry.Provider {
	p, ok := registry.Lookup(id)
	if !ok {
		panic("demo fixture references unknown provider: " + id)
	}
	return p
}

func demoTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic("bad demo timestamp: " + value)
	}
	return t
}

// DemoRecords returns the seed fixtures used for demos and local work.
// The fortis-mumbai entry is intentionally problematic (unverified provider,
// low trust) so the verify flow has something to flag.
func DemoRecords() []*MedicalRecord {
	return []*MedicalRecord{
		{
			RecordID:          123456,
			DocumentCID:       "QmWATWQ7fVPP2EFGu71UkfnqhYXDYH566qy47CnAQP2bDB",
			DocumentHash:      "a1b2c3d4e5f6789012345678901234567890abcdef1234567890abcdef123456",
			UserDID:           "did:ethr:baseSepolia:0x742d35c67d391d7f1e43cc2c87bb977b66c9b007",
			UserAddress:       "0x742d35c67d391d7f1e43cc2c87bb977b66c9b007",
			Provider:          mustProvider("apollo-delhi"),
			RecordType:        TypeLabReport,
			VerificationScore: 96,
			TransactionHash:   "0x567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234",
			GasUsed:           48520,
			Simulated:         true,
			LedgerSimulated:   true,
			StorageSimulated:  true,
			IsValid:           true,
			Timestamp:         demoTime("2024-06-20T10:30:00Z"),
			Metadata: Metadata{
				FileName:      "blood_test_report.pdf",
				FileSize:      245760,
				MimeType:      "application/pdf",
				DocumentHash:  "a1b2c3d4e5f6789012345678901234567890abcdef1234567890abcdef123456",
				PatientName:   "John Doe",
				DateOfService: "2024-06-20",
			},
		},
		{
			RecordID:          234567,
			DocumentCID:       "QmYFbmhdvpDfWyaTzWj8vWu5k3z2a4Y9U6QjJ4jKN8hGpE",
			DocumentHash:      "b2c3d4e5f6789012345678901234567890abcdef1234567890abcdef1234567a",
			UserDID:           "did:ethr:baseSepolia:0x8ba1f109551bd432803012645aac136c24f0686e",
			UserAddress:       "0x8ba1f109551bd432803012645aac136c24f0686e",
			Provider:          mustProvider("aiims-delhi"),
			RecordType:        TypePrescription,
			VerificationScore: 98,
			TransactionHash:   "0x678901abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234",
			GasUsed:           45230,
			Simulated:         true,
			LedgerSimulated:   true,
			StorageSimulated:  true,
			IsValid:           true,
			Timestamp:         demoTime("2024-06-19T14:15:00Z"),
			Metadata: Metadata{
				FileName:      "prescription_antibiotics.pdf",
				FileSize:      123456,
				MimeType:      "application/pdf",
				DocumentHash:  "b2c3d4e5f6789012345678901234567890abcdef1234567890abcdef1234567a",
				PatientName:   "Jane Smith",
				DateOfService: "2024-06-19",
			},
		},
		{
			RecordID:          345678,
			DocumentCID:       "QmZHbmhdvpDfWyaTzWj8vWu5k3z2a4Y9U6QjJ4jKN8hGpF",
			DocumentHash:      "c3d4e5f6789012345678901234567890abcdef1234567890abcdef12345678bc",
			UserDID:           "did:ethr:baseSepolia:0x2546bf417bc4c37c9f875f386c7f58d2f0c27772",
			UserAddress:       "0x2546bf417bc4c37c9f875f386c7f58d2f0c27772",
			Provider:          mustProvider("fortis-mumbai"),
			RecordType:        TypeConsultationNotes,
			VerificationScore: 75,
			TransactionHash:   "0x789012abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234",
			GasUsed:           51870,
			Simulated:         true,
			LedgerSimulated:   true,
			StorageSimulated:  true,
			IsValid:           false,
			Timestamp:         demoTime("2024-06-18T09:45:00Z"),
			Metadata: Metadata{
				FileName:      "consultation_notes.pdf",
				FileSize:      98304,
				MimeType:      "application/pdf",
				DocumentHash:  "c3d4e5f6789012345678901234567890abcdef1234567890abcdef12345678bc",
				PatientName:   "Bob Johnson",
				DateOfService: "2024-06-18",
			},
		},
		{
			RecordID:          456789,
			DocumentCID:       "QmAbCdEfGhIjKlMnOpQrStUvWxYz1234567890AbCdEfGhIj",
			DocumentHash:      "d4e5f6789012345678901234567890abcdef1234567890abcdef123456789abc",
			UserDID:           "did:ethr:baseSepolia:0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5",
			UserAddress:       "0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5",
			Provider:          mustProvider("max-noida"),
			RecordType:        TypeMedicalImaging,
			VerificationScore: 92,
			TransactionHash:   "0x890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567",
			GasUsed:           52340,
			Simulated:         true,
			LedgerSimulated:   true,
			StorageSimulated:  true,
			IsValid:           true,
			Timestamp:         demoTime("2024-06-17T16:20:00Z"),
			Metadata: Metadata{
				FileName:      "chest_xray.dcm",
				FileSize:      2097152,
				MimeType:      "application/dicom",
				DocumentHash:  "d4e5f6789012345678901234567890abcdef1234567890abcdef123456789abc",
				PatientName:   "Alice Brown",
				DateOfService: "2024-06-17",
			},
		},
	}
}
