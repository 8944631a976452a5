package ledger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
)

// ledgerAPI mirrors the HealthLedger JSON-RPC namespace. go-jsonrpc fills in
// the function fields when the client is constructed.
type ledgerAPI struct {
	SubmitRecord func(ctx context.Context, req AnchorRequest) (Receipt, error)
	RecordCount  func(ctx context.Context) (uint64, error)
}

// RPCAnchor anchors records through a ledger gateway speaking JSON-RPC.
type RPCAnchor struct {
	api     ledgerAPI
	closer  jsonrpc.ClientCloser
	timeout time.Duration
}

var _ Anchor = (*RPCAnchor)(nil)

func NewRPCAnchor(ctx context.Context, endpoint, authToken string, timeout time.Duration) (*RPCAnchor, error) {
	header := http.Header{}
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}

	anchor := &RPCAnchor{timeout: timeout}
	closer, err := jsonrpc.NewClient(ctx, endpoint, "HealthLedger", &anchor.api, header)
	if err != nil {
		return nil, fmt.Errorf("connecting to ledger RPC: %w", err)
	}
	anchor.closer = closer
	return anchor, nil
}

func (r *RPCAnchor) AnchorRecord(ctx context.Context, req AnchorRequest) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	receipt, err := r.api.SubmitRecord(ctx, req)
	if err != nil {
		return Receipt{}, fmt.Errorf("submitting record to ledger: %w", err)
	}
	return receipt, nil
}

func (r *RPCAnchor) Close() {
	if r.closer != nil {
		r.closer()
	}
}
