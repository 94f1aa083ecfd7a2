// Package httprpc implements rpc.NodeRpcClient over plain HTTP/JSON,
// using gorilla/mux to route the stub server side used in tests, the
// way the teacher's walletserver/routes.go wires its API.
package httprpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"miden-client/core/domain"
	"miden-client/core/errs"
	"miden-client/core/ids"
	"miden-client/core/sync"
)

// Client talks to a Miden node's HTTP sync/submit API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client against baseURL with a default timeout.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

type syncStateRequest struct {
	FromBlock  ids.BlockNumber `json:"from_block"`
	AccountIDs []ids.AccountID `json:"account_ids"`
	Limit      uint32          `json:"limit"`
}

func (c *Client) SyncState(ctx context.Context, fromBlock ids.BlockNumber, accountIDs []ids.AccountID, limit uint32) (*sync.SyncResponse, error) {
	body, err := json.Marshal(syncStateRequest{FromBlock: fromBlock, AccountIDs: accountIDs, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("httprpc: encode request: %w", err)
	}
	var resp sync.SyncResponse
	if err := c.post(ctx, "/sync", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SubmitTransaction(ctx context.Context, tx *domain.Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("httprpc: encode transaction: %w", err)
	}
	return c.post(ctx, "/transactions", body, nil)
}

func (c *Client) GetBlockHeader(ctx context.Context, blockNum ids.BlockNumber) (*domain.BlockHeader, error) {
	var header domain.BlockHeader
	path := fmt.Sprintf("/blocks/%d", blockNum)
	if err := c.get(ctx, path, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httprpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httprpc: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &errs.RPCError{Category: errs.RPCCategoryUnavailable, Method: req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("httprpc: decode response: %w", err)
		}
		return nil
	case http.StatusNotFound:
		return &errs.RPCError{Category: errs.RPCCategoryNotFound, Method: req.URL.Path, Err: errs.ErrNotFound}
	case http.StatusTooManyRequests:
		return &errs.RPCError{Category: errs.RPCCategoryRateLimited, Method: req.URL.Path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case http.StatusServiceUnavailable:
		return &errs.RPCError{Category: errs.RPCCategoryUnavailable, Method: req.URL.Path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &errs.RPCError{Category: errs.RPCCategoryUnauthenticated, Method: req.URL.Path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case http.StatusUpgradeRequired, http.StatusNotAcceptable:
		return &errs.RPCError{Category: errs.RPCCategoryVersionMismatch, Method: req.URL.Path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case http.StatusRequestEntityTooLarge:
		return &errs.RPCError{Category: errs.RPCCategoryLimitExceeded, Method: req.URL.Path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case http.StatusInternalServerError:
		return &errs.RPCError{Category: errs.RPCCategoryInternal, Method: req.URL.Path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return &errs.RPCError{Category: errs.RPCCategoryInvalidArgument, Method: req.URL.Path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}

// NewRouter builds the mux.Router a reference node server would use to
// serve this client's endpoints; provided so tests can stand up a
// minimal in-process server without depending on a real node.
func NewRouter(handler Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/sync", handler.HandleSyncState).Methods(http.MethodPost)
	r.HandleFunc("/transactions", handler.HandleSubmitTransaction).Methods(http.MethodPost)
	r.HandleFunc("/blocks/{height}", handler.HandleGetBlockHeader).Methods(http.MethodGet)
	return r
}

// Handler is implemented by a reference server backing NewRouter.
type Handler interface {
	HandleSyncState(w http.ResponseWriter, r *http.Request)
	HandleSubmitTransaction(w http.ResponseWriter, r *http.Request)
	HandleGetBlockHeader(w http.ResponseWriter, r *http.Request)
}
