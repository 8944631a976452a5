package ledger

import "context"

// AnchorRequest carries everything the ledger contract needs to register a
// record.
type AnchorRequest struct {
	DocumentCID  string `json:"documentCID"`
	DocumentHash string `json:"documentHash"`
	UserDID      string `json:"userDID"`
	RecordType   string `json:"recordType"`
	MetadataHash string `json:"metadataHash"`
}

// Receipt is the outcome of anchoring a record. Simulated distinguishes a
// locally generated receipt from a real on-chain one.
type Receipt struct {
	RecordID        int64  `json:"recordId"`
	TransactionHash string `json:"transactionHash"`
	BlockNumber     int64  `json:"blockNumber"`
	GasUsed         int64  `json:"gasUsed"`
	Confirmations   int    `json:"confirmations"`
	Simulated       bool   `json:"simulated"`
}

// Anchor registers a record on a distributed ledger.
type Anchor interface {
	AnchorRecord(ctx context.Context, req AnchorRequest) (Receipt, error)
}
