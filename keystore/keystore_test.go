package keystore

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"miden-client/core/ids"
)

func TestMemorySignAndVerify(t *testing.T) {
	m := NewMemory()
	var acc ids.AccountID
	acc[0] = 1
	pub, err := m.NewKeyPair(acc)
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	msg := []byte("hello")
	sig, err := m.Sign(acc, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !ed25519.Verify(pub, msg, sig) {
		t.Fatalf("signature did not verify")
	}
}

func TestMemorySignUnknownAccount(t *testing.T) {
	m := NewMemory()
	var acc ids.AccountID
	if _, err := m.Sign(acc, []byte("x")); err == nil {
		t.Fatalf("expected error signing with unknown account")
	}
}

func TestFileBackedPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.enc")

	fb, err := OpenFileBacked(path, "hunter2", nil)
	if err != nil {
		t.Fatalf("OpenFileBacked: %v", err)
	}
	var acc ids.AccountID
	acc[0] = 7
	pub, err := fb.NewKeyPair(acc)
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}

	reopened, err := OpenFileBacked(path, "hunter2", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	gotPub, err := reopened.PublicKey(acc)
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if !gotPub.Equal(pub) {
		t.Fatalf("public key mismatch after reopen")
	}
}

func TestFileBackedWrongPasswordFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.enc")

	fb, err := OpenFileBacked(path, "correct", nil)
	if err != nil {
		t.Fatalf("OpenFileBacked: %v", err)
	}
	var acc ids.AccountID
	acc[0] = 2
	if _, err := fb.NewKeyPair(acc); err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}

	if _, err := OpenFileBacked(path, "wrong", nil); err == nil {
		t.Fatalf("expected error opening with wrong password")
	}
}

func TestDeriveEd25519FromSeedDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	pub1, _, err := DeriveEd25519FromSeed(seed, 0)
	if err != nil {
		t.Fatalf("DeriveEd25519FromSeed: %v", err)
	}
	pub2, _, err := DeriveEd25519FromSeed(seed, 0)
	if err != nil {
		t.Fatalf("DeriveEd25519FromSeed: %v", err)
	}
	if !pub1.Equal(pub2) {
		t.Fatalf("expected deterministic derivation for same seed/index")
	}
	pub3, _, _ := DeriveEd25519FromSeed(seed, 1)
	if pub1.Equal(pub3) {
		t.Fatalf("expected different keys for different indices")
	}
}
