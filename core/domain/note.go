package domain

import "miden-client/core/ids"

// NoteType controls note visibility: a public note's details are
// published to the chain, a private note is only known to sender and
// recipient off-chain, and encrypted sits in between.
type NoteType uint8

const (
	NoteTypePublic NoteType = iota
	NoteTypePrivate
	NoteTypeEncrypted
)

// NoteRecipient commits to who may consume a note and under what
// script, without revealing either until consumption.
type NoteRecipient struct {
	ScriptCommitment ids.ScriptCommitment
	SerialNum        ids.Digest
	InputsCommitment ids.Digest
}

func (r NoteRecipient) Digest() ids.Digest {
	return hashFields(r.ScriptCommitment[:], r.SerialNum[:], r.InputsCommitment[:])
}

// NoteMetadata carries the chain-visible envelope of a note: who
// created it, what type it is, and the tag used for off-chain routing.
type NoteMetadata struct {
	Sender ids.AccountID
	Type   NoteType
	Tag    uint32
	// Timelock is the block height before which no one, including the
	// intended recipient, may consume this note; zero means unlocked.
	Timelock ids.BlockNumber
	// ReclaimBlock is the block height at or after which Sender may
	// reclaim this note if it is still unconsumed (the P2IDE pattern);
	// zero means the note carries no reclaim right.
	ReclaimBlock ids.BlockNumber
	AuxData      uint64
}

// Note is the full content of a note, known to whoever holds it
// off-chain; what the chain commits to is only its ID.
type Note struct {
	Recipient NoteRecipient
	Assets    []AssetAmount
	Metadata  NoteMetadata
	// TargetAccount is the account the note's script actually resolves
	// to on consumption. Off-chain holders of the full note already know
	// it (it is one of the private inputs hashed into
	// Recipient.InputsCommitment); the chain itself never sees it in the
	// clear.
	TargetAccount ids.AccountID
}

// ID computes the note's identifier from its recipient and asset
// commitment, matching how the chain names notes.
func (n Note) ID() ids.NoteID {
	assetsDigest := hashFields(func() []byte {
		var b []byte
		for _, a := range n.Assets {
			b = append(b, a.FaucetID[:]...)
			b = append(b, u64Bytes(a.Amount)...)
		}
		return b
	}())
	d := n.Recipient.Digest()
	return ids.NoteID(hashFields(d[:], assetsDigest[:]))
}

// InputNoteState records the local lifecycle of a note this client
// could consume.
type InputNoteState uint8

const (
	InputNoteStateExpected InputNoteState = iota
	InputNoteStateCommitted
	InputNoteStateConsumed
	InputNoteStateProcessingAuthenticated
	InputNoteStateConsumedAuthenticatedLocal
)

// InputNote is a note this client tracks as spendable, along with the
// inclusion proof data needed to authenticate consumption once it is
// committed on-chain.
type InputNote struct {
	Note          Note
	State         InputNoteState
	BlockNum      ids.BlockNumber
	InclusionPath []ids.Digest
	Nullifier     ids.Nullifier
	Seq           uint64
}

// OutputNote is a note this client produced as part of a transaction it
// built, tracked until it is confirmed included in a block.
type OutputNote struct {
	Note     Note
	TxID     ids.TransactionID
	BlockNum ids.BlockNumber
	Seq      uint64
}

// Tag is an off-chain routing filter a client subscribes to in order to
// discover notes it did not itself create, without downloading every
// note on the chain.
type Tag struct {
	Value uint32
	Label string
}
