package mmr

import (
	"testing"

	"miden-client/core/ids"
)

func leafAt(i byte) ids.Digest {
	var d ids.Digest
	d[0] = i
	return d
}

func TestForestAddTracksNumLeaves(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := byte(0); i < 5; i++ {
		bn := f.Add(leafAt(i))
		if bn != ids.BlockNumber(i) {
			t.Fatalf("Add returned block %d, want %d", bn, i)
		}
	}
	if f.NumLeaves() != 5 {
		t.Fatalf("NumLeaves=%d want 5", f.NumLeaves())
	}
}

func TestForestOpenMissingBlock(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Add(leafAt(0))
	if _, err := f.Open(ids.BlockNumber(5)); err == nil {
		t.Fatalf("expected ErrMissingBlock for untracked height")
	}
}

func TestForestOpenTrackedBlock(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Add(leafAt(0))
	f.Add(leafAt(1))
	op, err := f.Open(ids.BlockNumber(1))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if op.Leaf != leafAt(1) {
		t.Fatalf("Open leaf mismatch")
	}
}

func TestForestOpenPathAuthenticatesAgainstPeak(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := byte(0); i < 4; i++ {
		f.Add(leafAt(i))
	}
	peaks := f.Peaks()
	if len(peaks) != 1 {
		t.Fatalf("expected a single peak after 4 leaves, got %d", len(peaks))
	}

	for target := ids.BlockNumber(0); target < 4; target++ {
		op, err := f.Open(target)
		if err != nil {
			t.Fatalf("Open(%d): %v", target, err)
		}
		if len(op.Path) != 2 {
			t.Fatalf("Open(%d) path length=%d want 2", target, len(op.Path))
		}
		got := op.Leaf
		pos := uint64(target)
		for _, sibling := range op.Path {
			if pos%2 == 0 {
				got = mergeDigest(got, sibling)
			} else {
				got = mergeDigest(sibling, got)
			}
			pos /= 2
		}
		if got != peaks[op.PeakIdx] {
			t.Fatalf("Open(%d) path does not authenticate against peak %d", target, op.PeakIdx)
		}
	}
}

func TestForestOpenFailsAfterSiblingPruned(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Add(leafAt(0))
	f.Add(leafAt(1))
	f.Untrack(ids.BlockNumber(0))
	if _, err := f.Open(ids.BlockNumber(1)); err == nil {
		t.Fatalf("expected Open to fail once a sibling leaf in the same peak range is pruned")
	}
}

func TestForestPeaksMergeOnPowerOfTwo(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Add(leafAt(0))
	f.Add(leafAt(1))
	if len(f.Peaks()) != 1 {
		t.Fatalf("expected a single merged peak after 2 leaves, got %d", len(f.Peaks()))
	}
	f.Add(leafAt(2))
	if len(f.Peaks()) != 2 {
		t.Fatalf("expected two peaks after 3 leaves, got %d", len(f.Peaks()))
	}
}

func TestForestFoldAppendsInOrder(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	peaks := f.Fold([]ids.Digest{leafAt(0), leafAt(1), leafAt(2), leafAt(3)})
	if f.NumLeaves() != 4 {
		t.Fatalf("NumLeaves=%d want 4", f.NumLeaves())
	}
	if len(peaks) != 1 {
		t.Fatalf("expected single peak after 4 leaves, got %d", len(peaks))
	}
}

func TestForestUntrackRemovesNode(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Add(leafAt(0))
	f.Untrack(ids.BlockNumber(0))
	if _, err := f.Open(ids.BlockNumber(0)); err == nil {
		t.Fatalf("expected error after Untrack")
	}
}

func TestForestPrunableRespectsPeakRangeSharing(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := byte(0); i < 7; i++ {
		f.Add(leafAt(i))
	}
	// Peaks after 7 leaves: [0,3] height 2, [4,5] height 1, [6,6] height 0.
	referenced := map[ids.BlockNumber]bool{5: true}
	prunable := f.Prunable(referenced)

	got := make(map[ids.BlockNumber]bool, len(prunable))
	for _, bn := range prunable {
		got[bn] = true
	}
	for bn := ids.BlockNumber(0); bn < 4; bn++ {
		if !got[bn] {
			t.Fatalf("expected block %d (unreferenced peak range) to be prunable", bn)
		}
	}
	for bn := ids.BlockNumber(4); bn < 6; bn++ {
		if got[bn] {
			t.Fatalf("block %d shares a peak range with referenced block 5, must not be prunable", bn)
		}
	}
	if !got[6] {
		t.Fatalf("expected block 6 (unreferenced singleton peak) to be prunable")
	}
}

func TestForestPrunableEmptyForest(t *testing.T) {
	f, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := f.Prunable(nil); got != nil {
		t.Fatalf("expected nil prunable list for an empty forest, got %v", got)
	}
}
