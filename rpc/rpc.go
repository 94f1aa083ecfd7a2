// Package rpc defines the node RPC collaborator the sync and
// transaction engines depend on, independent of transport; httprpc and
// grpcrpc are the concrete implementations a client wires in at
// startup.
package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"miden-client/core/domain"
	"miden-client/core/errs"
	"miden-client/core/ids"
	"miden-client/core/sync"
)

// NodeRpcClient is the external collaborator the client talks to for
// chain state and transaction submission.
type NodeRpcClient interface {
	// SyncState fetches one page of state-sync data starting at
	// fromBlock. limit is this client's requested page size; 0 asks the
	// node to use its own default. The node may return fewer rows than
	// limit and set SyncResponse.HasMore/PageLimit to describe its own
	// rpc_limits so the caller can adapt subsequent requests.
	SyncState(ctx context.Context, fromBlock ids.BlockNumber, accountIDs []ids.AccountID, limit uint32) (*sync.SyncResponse, error)
	SubmitTransaction(ctx context.Context, tx *domain.Transaction) error
	GetBlockHeader(ctx context.Context, blockNum ids.BlockNumber) (*domain.BlockHeader, error)
}

// RetryPolicy configures WithRetry's backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy makes up to three attempts in total with a
// half-second backoff after each failed one, matching the cadence of
// the teacher's SyncManager.loop retry sleep.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}

// WithRetry wraps a NodeRpcClient so SyncState calls that fail with an
// Unavailable or RateLimited RPCError are retried according to policy
// before surfacing to the caller; SubmitTransaction and GetBlockHeader
// pass straight through without retry. Grounded on the ticker-driven
// retry loop the teacher's connection pool reaper uses for background
// recovery.
type WithRetry struct {
	Inner  NodeRpcClient
	Policy RetryPolicy
	Logger *logrus.Logger
}

func (w *WithRetry) logger() *logrus.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return logrus.StandardLogger()
}

func (w *WithRetry) policy() RetryPolicy {
	if w.Policy.MaxAttempts <= 0 {
		return DefaultRetryPolicy
	}
	return w.Policy
}

func retryable(err error) bool {
	var rpcErr *errs.RPCError
	if asRPCError(err, &rpcErr) {
		switch rpcErr.Category {
		case errs.RPCCategoryUnavailable, errs.RPCCategoryRateLimited:
			return true
		}
	}
	return false
}

func asRPCError(err error, target **errs.RPCError) bool {
	for err != nil {
		if rpcErr, ok := err.(*errs.RPCError); ok {
			*target = rpcErr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (w *WithRetry) SyncState(ctx context.Context, fromBlock ids.BlockNumber, accountIDs []ids.AccountID, limit uint32) (*sync.SyncResponse, error) {
	policy := w.policy()
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		resp, err := w.Inner.SyncState(ctx, fromBlock, accountIDs, limit)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		w.logger().Warnf("rpc: SyncState attempt %d failed: %v", attempt+1, err)
		select {
		case <-ctx.Done():
			return nil, errs.ErrCancelled
		case <-time.After(policy.Backoff):
		}
	}
	return nil, fmt.Errorf("rpc: SyncState exhausted retries: %w", lastErr)
}

func (w *WithRetry) SubmitTransaction(ctx context.Context, tx *domain.Transaction) error {
	return w.Inner.SubmitTransaction(ctx, tx)
}

func (w *WithRetry) GetBlockHeader(ctx context.Context, blockNum ids.BlockNumber) (*domain.BlockHeader, error) {
	return w.Inner.GetBlockHeader(ctx, blockNum)
}
