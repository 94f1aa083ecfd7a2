package domain

import "miden-client/core/ids"

// BlockHeader is the subset of a chain block this client validates and
// folds into its partial Merkle mountain range: it never holds full
// block bodies, only the commitments needed to authenticate notes and
// account states at that height.
type BlockHeader struct {
	BlockNum        ids.BlockNumber
	PrevHash        ids.Digest
	ChainCommitment ids.Digest
	AccountRoot     ids.Digest
	NullifierRoot   ids.Digest
	NoteRoot        ids.Digest
	Timestamp       uint64
}

func (h BlockHeader) Hash() ids.Digest {
	return hashFields(
		u32Bytes(uint32(h.BlockNum)),
		h.PrevHash[:],
		h.ChainCommitment[:],
		h.AccountRoot[:],
		h.NullifierRoot[:],
		h.NoteRoot[:],
		u64Bytes(h.Timestamp),
	)
}
