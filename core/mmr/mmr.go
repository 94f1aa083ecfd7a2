// Package mmr implements the partial Merkle mountain range the client
// keeps to authenticate note and account inclusion proofs without
// storing full block bodies. It generalizes the level-by-level binary
// Merkle tree construction used elsewhere in this codebase to an
// append-only forest of perfect binary trees ("peaks"), so new leaves
// can be folded in without rebuilding the whole structure.
package mmr

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"miden-client/core/ids"
)

// ErrMissingBlock is returned by Open when the caller asks for an
// opening of a block this partial MMR never tracked, or whose peak
// range has had a sibling leaf pruned so the path can no longer be
// reconstructed.
var ErrMissingBlock = errors.New("mmr: block not tracked")

// nodeIndex addresses a node in the MMR's flat array representation,
// counting both leaves and internal peak-merge nodes.
type nodeIndex uint64

// Opening is an inclusion proof for one tracked leaf against the
// forest's current peak list.
type Opening struct {
	BlockNum ids.BlockNumber
	Leaf     ids.Digest
	Path     []ids.Digest
	PeakIdx  int
}

// peak is one authenticated subtree root together with its height, so
// Add can find which peaks are due to merge without recomputing height
// from the leaf count on every call.
type peak struct {
	digest ids.Digest
	height int
}

// Forest is the partial Merkle mountain range itself: the authenticated
// peaks of every complete subtree, plus the subset of leaf digests
// needed to reconstruct openings for tracked leaves. It does not cache
// internal merge-node digests; an Open call recomputes the covering
// peak's subtree bottom-up from its stored leaves, which is why a peak
// range can only be pruned as a whole (see Prunable).
type Forest struct {
	numLeaves    uint64
	peaks        []peak
	trackedNodes map[nodeIndex]ids.Digest
	openings     *lru.Cache[ids.BlockNumber, Opening]
}

// New creates an empty forest. cacheSize bounds the number of
// reconstructed openings kept in memory; a miss simply recomputes.
func New(cacheSize int) (*Forest, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	c, err := lru.New[ids.BlockNumber, Opening](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("mmr: new opening cache: %w", err)
	}
	return &Forest{
		trackedNodes: make(map[nodeIndex]ids.Digest),
		openings:     c,
	}, nil
}

func mergeDigest(left, right ids.Digest) ids.Digest {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return sha256Digest(buf[:])
}

// Add appends a new leaf (a block's chain commitment) to the forest,
// merging peaks of equal height exactly as a binary counter carries,
// and tracks the leaf's node so a later Open can reconstruct its path.
// A merge lengthens the paths of the leaves under the merged peaks, so
// it also clears the opening cache.
func (f *Forest) Add(leaf ids.Digest) ids.BlockNumber {
	blockNum := ids.BlockNumber(f.numLeaves)
	f.trackedNodes[nodeIndex(f.numLeaves)] = leaf

	cur := peak{digest: leaf, height: 0}
	for len(f.peaks) > 0 && f.peaks[len(f.peaks)-1].height == cur.height {
		last := f.peaks[len(f.peaks)-1]
		f.peaks = f.peaks[:len(f.peaks)-1]
		cur = peak{digest: mergeDigest(last.digest, cur.digest), height: cur.height + 1}
	}
	if cur.height > 0 {
		f.openings.Purge()
	}
	f.peaks = append(f.peaks, cur)
	f.numLeaves++
	return blockNum
}

// Peaks returns the current authenticated peak commitments, ordered
// left to right, oldest subtree first.
func (f *Forest) Peaks() []ids.Digest {
	out := make([]ids.Digest, len(f.peaks))
	for i, p := range f.peaks {
		out[i] = p.digest
	}
	return out
}

// NumLeaves is the number of blocks folded into this forest so far.
func (f *Forest) NumLeaves() uint64 { return f.numLeaves }

// locatePeak finds which peak covers the leaf for block, returning the
// peak's index, the first leaf index in its range, and its height (the
// range spans [start, start+2^height)). Peaks are stored left to right
// in strictly decreasing height, covering a contiguous partition of
// [0, numLeaves), so a single left-to-right walk suffices.
func (f *Forest) locatePeak(block ids.BlockNumber) (peakIdx int, start uint64, height int, ok bool) {
	leafIdx := uint64(block)
	if leafIdx >= f.numLeaves {
		return 0, 0, 0, false
	}
	cursor := uint64(0)
	for i, p := range f.peaks {
		size := uint64(1) << p.height
		if leafIdx < cursor+size {
			return i, cursor, p.height, true
		}
		cursor += size
	}
	return 0, 0, 0, false
}

// authPath recomputes the perfect binary subtree spanning
// [start, start+2^height) from its stored leaf digests and returns the
// sibling digest at every level on the path from leafIdx to the peak.
// It fails if any leaf in the range has been pruned, since this forest
// keeps no intermediate merge nodes to fall back on.
func (f *Forest) authPath(start uint64, height int, leafIdx uint64) ([]ids.Digest, error) {
	size := uint64(1) << height
	level := make([]ids.Digest, size)
	for i := uint64(0); i < size; i++ {
		d, ok := f.trackedNodes[nodeIndex(start+i)]
		if !ok {
			return nil, fmt.Errorf("%w: leaf %d pruned, peak range unavailable", ErrMissingBlock, start+i)
		}
		level[i] = d
	}

	pos := leafIdx - start
	path := make([]ids.Digest, 0, height)
	for h := 0; h < height; h++ {
		path = append(path, level[pos^1])
		next := make([]ids.Digest, len(level)/2)
		for i := range next {
			next[i] = mergeDigest(level[2*i], level[2*i+1])
		}
		level = next
		pos /= 2
	}
	return path, nil
}

// Open reconstructs an inclusion opening for a tracked block number: the
// leaf digest plus the authentication path of sibling digests up to the
// peak that currently authenticates it.
func (f *Forest) Open(block ids.BlockNumber) (Opening, error) {
	if cached, ok := f.openings.Get(block); ok {
		return cached, nil
	}
	leaf, ok := f.trackedNodes[nodeIndex(block)]
	if !ok {
		return Opening{}, fmt.Errorf("%w: block %d", ErrMissingBlock, block)
	}
	peakIdx, start, height, ok := f.locatePeak(block)
	if !ok {
		return Opening{}, fmt.Errorf("%w: block %d", ErrMissingBlock, block)
	}
	path, err := f.authPath(start, height, uint64(block))
	if err != nil {
		return Opening{}, err
	}

	op := Opening{BlockNum: block, Leaf: leaf, Path: path, PeakIdx: peakIdx}
	f.openings.Add(block, op)
	return op, nil
}

// Prunable returns the block numbers whose leaf data is safe to drop:
// every leaf belonging to a peak whose entire range is absent from
// referenced. A peak range can only be pruned as a whole, never
// partially - Open recomputes a peak's subtree from all of its leaves,
// so dropping even one makes every other leaf in that range
// unauthenticatable too. Callers must pass every block height still
// backing a non-consumed tracked note or pending transaction.
func (f *Forest) Prunable(referenced map[ids.BlockNumber]bool) []ids.BlockNumber {
	if f.numLeaves == 0 {
		return nil
	}
	var out []ids.BlockNumber
	start := uint64(0)
	for _, p := range f.peaks {
		size := uint64(1) << p.height
		rangeReferenced := false
		for i := uint64(0); i < size; i++ {
			if referenced[ids.BlockNumber(start+i)] {
				rangeReferenced = true
				break
			}
		}
		if !rangeReferenced {
			for i := uint64(0); i < size; i++ {
				out = append(out, ids.BlockNumber(start+i))
			}
		}
		start += size
	}
	return out
}

// Untrack drops a leaf's node data, typically called after Prunable
// identifies it is no longer needed. It clears the opening cache, since
// every other leaf in the same peak range can no longer be opened.
func (f *Forest) Untrack(block ids.BlockNumber) {
	delete(f.trackedNodes, nodeIndex(block))
	f.openings.Purge()
}

// Fold appends a contiguous run of new block commitments received from
// a state sync response, in order, and returns the resulting peak list.
// It is the single entry point the sync engine uses to advance the
// forest; it never reorders or skips leaves, so callers must supply
// commitments starting exactly at NumLeaves().
func (f *Forest) Fold(newBlockCommitments []ids.Digest) []ids.Digest {
	for _, c := range newBlockCommitments {
		f.Add(c)
	}
	return f.Peaks()
}
