// Package prover defines the external transaction proving collaborator
// and two implementations: Local, a stub that signs with a keystore for
// tests and development, and Remote, which posts the executed
// transaction to a remote proving service over HTTP.
package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"miden-client/core/domain"
	"miden-client/core/errs"
	"miden-client/core/ids"
	"miden-client/keystore"
)

// TransactionProver is the external collaborator the transaction
// lifecycle engine delegates proof generation to.
type TransactionProver interface {
	Prove(ctx context.Context, tx *domain.Transaction) ([]byte, error)
}

// Local proves transactions without a real prover backend, by signing
// the transaction's id (the commitment over its effects) with the
// account's key.
// It exists for tests and local development against a stub node.
type Local struct {
	Keystore keystore.Keystore
}

func (l *Local) Prove(ctx context.Context, tx *domain.Transaction) ([]byte, error) {
	if l.Keystore == nil {
		return nil, fmt.Errorf("prover: local prover requires a keystore")
	}
	digest := ids.Digest(tx.ID)
	sig, err := l.Keystore.Sign(tx.AccountID, digest[:])
	if err != nil {
		return nil, fmt.Errorf("prover: local: %w", err)
	}
	return sig, nil
}

// Remote posts the transaction to a remote proving service and returns
// the proof bytes it produces.
type Remote struct {
	Endpoint string
	Client   *http.Client
	Timeout  time.Duration
}

type remoteProveRequest struct {
	Transaction domain.Transaction `json:"transaction"`
}

type remoteProveResponse struct {
	Proof []byte `json:"proof"`
	Error string `json:"error,omitempty"`
}

func (r *Remote) Prove(ctx context.Context, tx *domain.Transaction) ([]byte, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := r.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(remoteProveRequest{Transaction: *tx})
	if err != nil {
		return nil, fmt.Errorf("prover: remote: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("prover: remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Idempotency-Key lets the proving service dedupe retried proof
	// requests for the same transaction without relying on its own
	// clock or request ordering.
	req.Header.Set("Idempotency-Key", uuid.NewSHA1(uuid.NameSpaceOID, []byte(tx.ID.String())).String())

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.ErrTimeout
		}
		return nil, fmt.Errorf("prover: remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prover: remote: %w: status %d: %s", errs.ErrProverError, resp.StatusCode, string(b))
	}

	var out remoteProveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("prover: remote: decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("prover: remote: %w: %s", errs.ErrProverError, out.Error)
	}
	return out.Proof, nil
}
