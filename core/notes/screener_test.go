package notes

import (
	"testing"

	"miden-client/core/domain"
	"miden-client/core/ids"
)

func sampleNote(script ids.ScriptCommitment) domain.InputNote {
	return domain.InputNote{
		Note: domain.Note{
			Recipient: domain.NoteRecipient{ScriptCommitment: script},
		},
		State:    domain.InputNoteStateCommitted,
		BlockNum: 5,
	}
}

func TestClassifyAlreadyConsumed(t *testing.T) {
	s := New(nil)
	n := sampleNote(ids.ScriptCommitment{})
	n.State = domain.InputNoteStateConsumed
	n.Nullifier = ids.Nullifier{1}

	if _, ok := s.Classify(&n, 10).(NotConsumableByKnownAccount); !ok {
		t.Fatalf("expected NotConsumableByKnownAccount for a consumed note")
	}
}

func TestClassifyNotYetConsumableExpected(t *testing.T) {
	s := New(nil)
	n := sampleNote(ids.ScriptCommitment{})
	n.State = domain.InputNoteStateExpected

	if _, ok := s.Classify(&n, 10).(NotConsumableByKnownAccount); !ok {
		t.Fatalf("expected NotConsumableByKnownAccount for an expected note")
	}
}

func TestClassifyUnauthenticatableAboveTip(t *testing.T) {
	s := New(nil)
	n := sampleNote(ids.ScriptCommitment{})
	n.BlockNum = 100

	if _, ok := s.Classify(&n, 10).(NotConsumableByKnownAccount); !ok {
		t.Fatalf("expected NotConsumableByKnownAccount for a note above the tracked tip")
	}
}

func TestClassifyConsumableNowWhenTargetIsTracked(t *testing.T) {
	s := New(nil)
	var script ids.ScriptCommitment
	script[0] = 9
	s.TrackScript(script)
	var acc ids.AccountID
	acc[0] = 1
	s.TrackAccount(acc)

	n := sampleNote(script)
	n.Note.TargetAccount = acc
	status := s.Classify(&n, 10)
	got, ok := status.(ConsumableNow)
	if !ok {
		t.Fatalf("expected ConsumableNow, got %T", status)
	}
	if got.By != acc {
		t.Fatalf("By=%v want %v", got.By, acc)
	}
}

func TestClassifyIgnoresUntrackedTarget(t *testing.T) {
	s := New(nil)
	var script ids.ScriptCommitment
	script[0] = 9
	s.TrackScript(script)
	var acc ids.AccountID
	acc[0] = 1
	s.TrackAccount(acc)

	var stranger ids.AccountID
	stranger[0] = 2
	n := sampleNote(script)
	n.Note.TargetAccount = stranger

	if _, ok := s.Classify(&n, 10).(NotConsumableByKnownAccount); !ok {
		t.Fatalf("expected NotConsumableByKnownAccount when recipient does not resolve to a tracked account")
	}
}

func TestClassifyConsumableAfterTimelock(t *testing.T) {
	s := New(nil)
	var script ids.ScriptCommitment
	script[0] = 9
	s.TrackScript(script)
	var acc ids.AccountID
	acc[0] = 1
	s.TrackAccount(acc)

	n := sampleNote(script)
	n.Note.TargetAccount = acc
	n.Note.Metadata.Timelock = 20

	status := s.Classify(&n, 10)
	got, ok := status.(ConsumableAfter)
	if !ok {
		t.Fatalf("expected ConsumableAfter, got %T", status)
	}
	if got.Height != 20 {
		t.Fatalf("Height=%d want 20", got.Height)
	}

	status = s.Classify(&n, 25)
	if _, ok := status.(ConsumableNow); !ok {
		t.Fatalf("expected ConsumableNow once the timelock height has passed, got %T", status)
	}
}

func TestClassifyReclaimableAfterBySender(t *testing.T) {
	s := New(nil)
	var script ids.ScriptCommitment
	script[0] = 9
	s.TrackScript(script)
	var sender ids.AccountID
	sender[0] = 3
	s.TrackAccount(sender)

	var stranger ids.AccountID
	stranger[0] = 4
	n := sampleNote(script)
	n.Note.TargetAccount = stranger
	n.Note.Metadata.Sender = sender
	n.Note.Metadata.ReclaimBlock = 20

	status := s.Classify(&n, 10)
	if _, ok := status.(NotConsumableByKnownAccount); !ok {
		t.Fatalf("expected NotConsumableByKnownAccount before the reclaim window opens, got %T", status)
	}

	status = s.Classify(&n, 20)
	got, ok := status.(ReclaimableAfter)
	if !ok {
		t.Fatalf("expected ReclaimableAfter once the reclaim window opens, got %T", status)
	}
	if got.By != sender {
		t.Fatalf("By=%v want %v", got.By, sender)
	}
}

func TestSortConsumableOrdersByBlockThenID(t *testing.T) {
	n1 := sampleNote(ids.ScriptCommitment{})
	n1.BlockNum = 2
	n2 := sampleNote(ids.ScriptCommitment{})
	n2.BlockNum = 1

	entries := []ConsumableEntry{
		{Note: &n1, Status: NotConsumableByKnownAccount{}},
		{Note: &n2, Status: NotConsumableByKnownAccount{}},
	}
	SortConsumable(entries)
	if entries[0].Note.BlockNum != 1 {
		t.Fatalf("expected lower block number first after sort")
	}
}

func TestIsRelevantMatchesTag(t *testing.T) {
	s := New(nil)
	n := domain.Note{Metadata: domain.NoteMetadata{Tag: 42}}
	tags := []domain.Tag{{Value: 42}}
	if !s.IsRelevant(&n, tags) {
		t.Fatalf("expected note with matching tag to be relevant")
	}
	if s.IsRelevant(&n, []domain.Tag{{Value: 7}}) {
		t.Fatalf("expected note without matching tag to be irrelevant")
	}
}
