// Package keystore manages the ed25519 signing keys this client holds
// on behalf of its tracked accounts. NewKeyPair generates a random key
// per account; MnemonicSeed and DeriveEd25519FromSeed separately derive
// keys HD-style from a BIP-39 mnemonic the same way the teacher's
// wallet.go derives keys, swapping its secp256k1/address-chain layout
// for the plain ed25519 keys Miden accounts authenticate with.
package keystore

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/nacl/secretbox"

	"miden-client/core/errs"
	"miden-client/core/ids"
)

const masterHMACKey = "miden client seed"

// Keystore is the external collaborator the client delegates signing
// to; the txengine's prover step never sees raw key material, only a
// signature it requests through this interface.
type Keystore interface {
	Sign(accountID ids.AccountID, message []byte) ([]byte, error)
	PublicKey(accountID ids.AccountID) (ed25519.PublicKey, error)
	NewKeyPair(accountID ids.AccountID) (ed25519.PublicKey, error)
}

type keyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Memory is an in-memory keystore for tests and ephemeral sessions; no
// key material ever touches disk.
type Memory struct {
	keys map[ids.AccountID]keyPair
}

// NewMemory returns an empty in-memory keystore.
func NewMemory() *Memory {
	return &Memory{keys: make(map[ids.AccountID]keyPair)}
}

func (m *Memory) NewKeyPair(accountID ids.AccountID) (ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keystore: generate key: %w", err)
	}
	m.keys[accountID] = keyPair{Public: pub, Private: priv}
	return pub, nil
}

func (m *Memory) Sign(accountID ids.AccountID, message []byte) ([]byte, error) {
	kp, ok := m.keys[accountID]
	if !ok {
		return nil, &errs.KeystoreError{Kind: errs.KeystoreErrorKeyNotFound, Err: fmt.Errorf("no key for account %s", accountID)}
	}
	return ed25519.Sign(kp.Private, message), nil
}

func (m *Memory) PublicKey(accountID ids.AccountID) (ed25519.PublicKey, error) {
	kp, ok := m.keys[accountID]
	if !ok {
		return nil, &errs.KeystoreError{Kind: errs.KeystoreErrorKeyNotFound, Err: fmt.Errorf("no key for account %s", accountID)}
	}
	return kp.Public, nil
}

// FileBacked persists keys to disk, encrypted at rest with a password
// derived secretbox key, so a stolen store file alone cannot sign.
type FileBacked struct {
	path     string
	password string
	logger   *logrus.Logger
	mem      *Memory
}

type encryptedRecord struct {
	Nonce      [24]byte
	Ciphertext []byte
}

// OpenFileBacked loads (or initializes) a file-backed keystore at path,
// decrypting it with password.
func OpenFileBacked(path, password string, logger *logrus.Logger) (*FileBacked, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	fb := &FileBacked{path: path, password: password, logger: logger, mem: NewMemory()}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fb, nil
		}
		return nil, fmt.Errorf("keystore: read %s: %w", path, err)
	}
	if err := fb.decrypt(raw); err != nil {
		return nil, err
	}
	return fb, nil
}

func deriveBoxKey(password string) [32]byte {
	h := hmac.New(sha512.New, []byte(masterHMACKey))
	h.Write([]byte(password))
	sum := h.Sum(nil)
	var key [32]byte
	copy(key[:], sum[:32])
	return key
}

func (fb *FileBacked) decrypt(raw []byte) error {
	var rec encryptedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("keystore: decode: %w", err)
	}
	key := deriveBoxKey(fb.password)
	plain, ok := secretbox.Open(nil, rec.Ciphertext, &rec.Nonce, &key)
	if !ok {
		return &errs.KeystoreError{Kind: errs.KeystoreErrorWrongPassword, Err: fmt.Errorf("keystore: decryption failed")}
	}
	var serialized serializedKeys
	if err := json.Unmarshal(plain, &serialized); err != nil {
		return &errs.KeystoreError{Kind: errs.KeystoreErrorCorrupt, Err: err}
	}
	for _, k := range serialized.Keys {
		fb.mem.keys[k.AccountID] = keyPair{Public: k.Public, Private: k.Private}
	}
	return nil
}

type serializedKey struct {
	AccountID ids.AccountID
	Public    ed25519.PublicKey
	Private   ed25519.PrivateKey
}

type serializedKeys struct {
	Keys []serializedKey
}

func (fb *FileBacked) persist() error {
	serialized := serializedKeys{}
	for accID, kp := range fb.mem.keys {
		serialized.Keys = append(serialized.Keys, serializedKey{AccountID: accID, Public: kp.Public, Private: kp.Private})
	}
	plain, err := json.Marshal(serialized)
	if err != nil {
		return err
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("keystore: nonce: %w", err)
	}
	key := deriveBoxKey(fb.password)
	ciphertext := secretbox.Seal(nil, plain, &nonce, &key)
	out, err := json.Marshal(encryptedRecord{Nonce: nonce, Ciphertext: ciphertext})
	if err != nil {
		return err
	}
	return os.WriteFile(fb.path, out, 0o600)
}

func (fb *FileBacked) NewKeyPair(accountID ids.AccountID) (ed25519.PublicKey, error) {
	pub, err := fb.mem.NewKeyPair(accountID)
	if err != nil {
		return nil, err
	}
	if err := fb.persist(); err != nil {
		return nil, fmt.Errorf("keystore: persist: %w", err)
	}
	return pub, nil
}

func (fb *FileBacked) Sign(accountID ids.AccountID, message []byte) ([]byte, error) {
	return fb.mem.Sign(accountID, message)
}

func (fb *FileBacked) PublicKey(accountID ids.AccountID) (ed25519.PublicKey, error) {
	return fb.mem.PublicKey(accountID)
}

// MnemonicSeed derives a BIP-39 seed from a mnemonic, the same
// primitive the teacher's wallet.go uses before HD key derivation;
// this client uses it only to derive the account's first ed25519 key
// deterministically, not a full SLIP-0010 chain.
func MnemonicSeed(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("keystore: invalid mnemonic")
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}

// NewMnemonic generates a fresh BIP-39 mnemonic of the given entropy
// size (128 or 256 bits).
func NewMnemonic(entropyBits int) (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("keystore: entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// DeriveEd25519FromSeed derives a deterministic ed25519 key pair from a
// seed and account index, following the teacher's SLIP-0010 HMAC
// derivation step rather than a plain hash-and-truncate.
func DeriveEd25519FromSeed(seed []byte, index uint32) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if len(seed) < 16 {
		return nil, nil, fmt.Errorf("keystore: seed too short")
	}
	mac := hmac.New(sha512.New, []byte(masterHMACKey))
	mac.Write(seed)
	idxBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(idxBytes, index)
	mac.Write(idxBytes)
	sum := mac.Sum(nil)
	priv := ed25519.NewKeyFromSeed(sum[:32])
	return priv.Public().(ed25519.PublicKey), priv, nil
}
