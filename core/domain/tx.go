package domain

import "miden-client/core/ids"

// TxStatus tracks a transaction through the lifecycle engine's phases.
type TxStatus uint8

const (
	TxStatusBuilding TxStatus = iota
	TxStatusExecuted
	TxStatusProven
	TxStatusSubmitted
	TxStatusApplied
	TxStatusSettled
	TxStatusDiscarded
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusBuilding:
		return "building"
	case TxStatusExecuted:
		return "executed"
	case TxStatusProven:
		return "proven"
	case TxStatusSubmitted:
		return "submitted"
	case TxStatusApplied:
		return "applied"
	case TxStatusSettled:
		return "settled"
	case TxStatusDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// TransactionRequest is the caller's intent: consume some input notes,
// send to some targets, against one account, expiring if not included
// within ExpirationDelta blocks of the reference height.
type TransactionRequest struct {
	AccountID        ids.AccountID
	InputNoteIDs     []ids.NoteID
	OutputNotes      []Note
	ExpirationDelta  uint32
	ScriptCommitment ids.ScriptCommitment
	// ForeignAccountReads lists other accounts whose header this
	// transaction's script reads without mutating (an oracle account, a
	// swap counterparty), so the engine pins their state alongside
	// AccountID's when building.
	ForeignAccountReads []ids.AccountID
	// AdviceMap supplies witness data the transaction's script needs but
	// that cannot be derived from on-chain state alone (Merkle paths,
	// signatures, oracle responses), keyed by the commitment the script
	// looks it up with.
	AdviceMap map[ids.Digest][]byte
	// AllowImbalance opts out of Build's asset balance check, for scripts
	// (faucets minting supply, fee burns) whose net effect is an
	// intentional mint or burn rather than a value-preserving transfer.
	AllowImbalance bool
}

// Transaction is the built, and eventually proven, effect of executing
// a TransactionRequest against an account's current state.
type Transaction struct {
	ID           ids.TransactionID
	AccountID    ids.AccountID
	InitialState ids.Digest
	FinalState   ids.Digest
	InputNotes   []ids.NoteID
	OutputNotes  []Note
	Nullifiers   []ids.Nullifier
	ExpiresAt    ids.BlockNumber
	Proof        []byte
	Status       TxStatus
	DependsOn    []ids.TransactionID
	// BuiltAtHeight is the store's tracked sync height when Build ran,
	// used to detect a transaction that has sat unexecuted long enough
	// that its InitialState may no longer match the account's real tip.
	BuiltAtHeight ids.BlockNumber
}

// ComputeFinalState derives the account state commitment this
// transaction produces: a digest over the state it started from plus
// every note it consumes and creates. Standing in for the real VM
// execution trace, it is still a genuine function of the transaction's
// effects rather than a placeholder, so two transactions with the same
// effects always commit to the same final state.
func (tx Transaction) ComputeFinalState() ids.Digest {
	var b []byte
	b = append(b, tx.InitialState[:]...)
	for _, n := range tx.OutputNotes {
		id := n.ID()
		b = append(b, id[:]...)
	}
	for _, nf := range tx.Nullifiers {
		d := ids.Digest(nf)
		b = append(b, d[:]...)
	}
	return hashFields(b)
}

func (tx Transaction) ComputeID() ids.TransactionID {
	var b []byte
	b = append(b, tx.AccountID[:]...)
	b = append(b, tx.InitialState[:]...)
	b = append(b, tx.FinalState[:]...)
	for _, n := range tx.InputNotes {
		d := ids.Digest(n)
		b = append(b, d[:]...)
	}
	for _, n := range tx.Nullifiers {
		d := ids.Digest(n)
		b = append(b, d[:]...)
	}
	return ids.TransactionID(hashFields(b))
}

// TransactionRecord is what the store persists for a transaction,
// pairing the built transaction with its lifecycle bookkeeping.
type TransactionRecord struct {
	Tx       Transaction
	BlockNum ids.BlockNumber
	Seq      uint64
}
