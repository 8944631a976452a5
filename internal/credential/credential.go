package credential

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Contexts and type tags are fixed for every medical record credential.
var contexts = []string{
	"https://www.w3.org/2018/credentials/v1",
	"https://w3id.org/security/suites/ed25519-2020/v1",
	"https://swasthwrap.com/contexts/medical/v1",
}

var credentialTypes = []string{"VerifiableCredential", "MedicalRecordCredential"}

const validityYears = 10

type Issuer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue"`
}

type Subject struct {
	ID            string                 `json:"id"`
	MedicalRecord map[string]interface{} `json:"medicalRecord"`
}

type VerifiableCredential struct {
	Context        []string `json:"@context"`
	ID             string   `json:"id"`
	Type           []string `json:"type"`
	Issuer         Issuer   `json:"issuer"`
	IssuanceDate   string   `json:"issuanceDate"`
	ExpirationDate string   `json:"expirationDate"`
	Subject        Subject  `json:"credentialSubject"`
	Proof          *Proof   `json:"proof,omitempty"`
}

// Builder assembles medical record credentials. When a signing key is
// present the credential carries a detached Ed25519 proof over its canonical
// JSON form; otherwise the credential is shape-only and unsigned.
type Builder struct {
	issuerDID  string
	issuerName string
	signingKey ed25519.PrivateKey
	now        func() time.Time
}

type Option func(*Builder)

// WithClock fixes the builder's notion of time. Tests use this to pin
// issuance dates and credential ids.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithSigningKey enables proof generation.
func WithSigningKey(key ed25519.PrivateKey) Option {
	return func(b *Builder) { b.signingKey = key }
}

func NewBuilder(issuerDID, issuerName string, opts ...Option) *Builder {
	b := &Builder{
		issuerDID:  issuerDID,
		issuerName: issuerName,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces the credential for a stored document. The medicalRecord
// claim merges the document identity fields with the caller-supplied
// metadata; metadata keys never override the identity fields.
func (b *Builder) Build(documentCID, subjectDID, recordType string, metadata map[string]interface{}) (*VerifiableCredential, error) {
	now := b.now().UTC()

	claim := make(map[string]interface{}, len(metadata)+3)
	for k, v := range metadata {
		claim[k] = v
	}
	claim["documentCID"] = documentCID
	claim["recordType"] = recordType
	claim["timestamp"] = now.Format(time.RFC3339)

	cred := &VerifiableCredential{
		Context:        contexts,
		ID:             fmt.Sprintf("vc:medical:%d:%s", now.UnixMilli(), uuid.New().String()[:8]),
		Type:           credentialTypes,
		Issuer:         Issuer{ID: b.issuerDID, Name: b.issuerName},
		IssuanceDate:   now.Format(time.RFC3339),
		ExpirationDate: now.AddDate(validityYears, 0, 0).Format(time.RFC3339),
		Subject: Subject{
			ID:            subjectDID,
			MedicalRecord: claim,
		},
	}

	if b.signingKey != nil {
		proof, err := sign(cred, b.signingKey, b.issuerDID, now)
		if err != nil {
			return nil, fmt.Errorf("signing credential: %w", err)
		}
		cred.Proof = proof
	}

	return cred, nil
}

func canonicalPayload(cred *VerifiableCredential) ([]byte, error) {
	unsigned := *cred
	unsigned.Proof = nil
	return json.Marshal(&unsigned)
}

func sign(cred *VerifiableCredential, key ed25519.PrivateKey, issuerDID string, now time.Time) (*Proof, error) {
	payload, err := canonicalPayload(cred)
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(key, payload)
	return &Proof{
		Type:               "Ed25519Signature2020",
		Created:            now.Format(time.RFC3339),
		VerificationMethod: issuerDID + "#key-1",
		ProofPurpose:       "assertionMethod",
		ProofValue:         "z" + base64.RawURLEncoding.EncodeToString(sig),
	}, nil
}

// Verify checks the detached proof against the issuer's public key.
func Verify(cred *VerifiableCredential, pub ed25519.PublicKey) error {
	if cred.Proof == nil {
		return errors.New("credential has no proof")
	}
	if len(cred.Proof.ProofValue) < 2 || cred.Proof.ProofValue[0] != 'z' {
		return errors.New("malformed proof value")
	}
	sig, err := base64.RawURLEncoding.DecodeString(cred.Proof.ProofValue[1:])
	if err != nil {
		return fmt.Errorf("decoding proof value: %w", err)
	}
	payload, err := canonicalPayload(cred)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, payload, sig) {
		return errors.New("proof signature mismatch")
	}
	return nil
}

// ParseSigningKey decodes a hex-encoded 32-byte Ed25519 seed.
func ParseSigningKey(hexSeed string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(hexSeed)
	if err != nil {
		return nil, fmt.Errorf("decoding signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
