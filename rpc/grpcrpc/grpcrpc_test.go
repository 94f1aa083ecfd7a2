package grpcrpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"

	"miden-client/core/domain"
)

type fakeStub struct {
	syncReply   *SyncStateReply
	syncErr     error
	submitErr   error
	headerReply *GetBlockHeaderReply
	headerErr   error
}

func (f *fakeStub) SyncState(ctx context.Context, in *SyncStateRequest, opts ...grpc.CallOption) (*SyncStateReply, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return f.syncReply, nil
}

func (f *fakeStub) SubmitTransaction(ctx context.Context, in *SubmitTransactionRequest, opts ...grpc.CallOption) (*SubmitTransactionReply, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &SubmitTransactionReply{}, nil
}

func (f *fakeStub) GetBlockHeader(ctx context.Context, in *GetBlockHeaderRequest, opts ...grpc.CallOption) (*GetBlockHeaderReply, error) {
	if f.headerErr != nil {
		return nil, f.headerErr
	}
	return f.headerReply, nil
}

func TestClientSyncStateWrapsReply(t *testing.T) {
	c := &Client{stub: &fakeStub{syncReply: &SyncStateReply{ChainTip: 42}}}
	resp, err := c.SyncState(context.Background(), 0, nil, 0)
	if err != nil {
		t.Fatalf("SyncState: %v", err)
	}
	if resp.ChainTip != 42 {
		t.Fatalf("ChainTip=%d want 42", resp.ChainTip)
	}
}

func TestClientSyncStateWrapsError(t *testing.T) {
	c := &Client{stub: &fakeStub{syncErr: errors.New("unavailable")}}
	if _, err := c.SyncState(context.Background(), 0, nil, 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientSubmitTransaction(t *testing.T) {
	c := &Client{stub: &fakeStub{}}
	if err := c.SubmitTransaction(context.Background(), &domain.Transaction{}); err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
}

func TestClientGetBlockHeader(t *testing.T) {
	c := &Client{stub: &fakeStub{headerReply: &GetBlockHeaderReply{Header: []byte("abc")}}}
	h, err := c.GetBlockHeader(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetBlockHeader: %v", err)
	}
	if h.BlockNum != 1 {
		t.Fatalf("BlockNum=%d want 1", h.BlockNum)
	}
}
