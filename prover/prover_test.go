package prover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"miden-client/core/domain"
	"miden-client/core/ids"
	"miden-client/keystore"
)

func TestLocalProveSigns(t *testing.T) {
	ks := keystore.NewMemory()
	var acc ids.AccountID
	acc[0] = 1
	if _, err := ks.NewKeyPair(acc); err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	l := &Local{Keystore: ks}
	tx := &domain.Transaction{AccountID: acc}
	proof, err := l.Prove(context.Background(), tx)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(proof) == 0 {
		t.Fatalf("expected non-empty proof")
	}
}

func TestLocalProveMissingKeystore(t *testing.T) {
	l := &Local{}
	if _, err := l.Prove(context.Background(), &domain.Transaction{}); err == nil {
		t.Fatalf("expected error with nil keystore")
	}
}

func TestRemoteProveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remoteProveResponse{Proof: []byte("proof-bytes")})
	}))
	defer srv.Close()

	r := &Remote{Endpoint: srv.URL}
	proof, err := r.Prove(context.Background(), &domain.Transaction{})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if string(proof) != "proof-bytes" {
		t.Fatalf("proof=%q want %q", proof, "proof-bytes")
	}
}

func TestRemoteProveServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := &Remote{Endpoint: srv.URL}
	if _, err := r.Prove(context.Background(), &domain.Transaction{}); err == nil {
		t.Fatalf("expected error on server failure")
	}
}
