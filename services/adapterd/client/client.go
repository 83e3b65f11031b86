// Package client is a thin HTTP client for adapterd.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"venusadapter/services/adapterd/api"
	"venusadapter/services/adapterd/receipts"
	"venusadapter/services/adapterd/sandbox"
)

// Config represents the client configuration.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client talks to a single adapterd instance.
type Client struct {
	base       string
	token      string
	httpClient *http.Client
}

// Error is a non-2xx reply from the daemon.
type Error struct {
	Status int
	Code   string
	Msg    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("adapterd: %d %s", e.Status, e.Msg)
	}
	return fmt.Sprintf("adapterd: %s (%d): %s", e.Code, e.Status, e.Msg)
}

// New constructs a client targeting cfg.URL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("client: url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:       base,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Config(ctx context.Context) (*api.ConfigResponse, error) {
	var out api.ConfigResponse
	return &out, c.do(ctx, http.MethodGet, "/v1/config", nil, &out)
}

func (c *Client) Markets(ctx context.Context) ([]sandbox.MarketView, error) {
	var out []sandbox.MarketView
	return out, c.do(ctx, http.MethodGet, "/v1/markets", nil, &out)
}

func (c *Client) Account(ctx context.Context, addr common.Address) (*sandbox.AccountView, error) {
	var out sandbox.AccountView
	return &out, c.do(ctx, http.MethodGet, "/v1/accounts/"+addr.Hex(), nil, &out)
}

// Receipts lists addr's most recent receipts; limit <= 0 uses the server
// default.
func (c *Client) Receipts(ctx context.Context, addr common.Address, limit int) ([]receipts.Record, error) {
	path := "/v1/accounts/" + addr.Hex() + "/receipts"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []receipts.Record
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) Receipt(ctx context.Context, id string) (*api.OperationResponse, error) {
	var out api.OperationResponse
	return &out, c.do(ctx, http.MethodGet, "/v1/receipts/"+url.PathEscape(id), nil, &out)
}

func (c *Client) Supply(ctx context.Context, req api.SupplyRequest) (*api.OperationResponse, error) {
	return c.operation(ctx, "/v1/supply", req)
}

func (c *Client) SupplyNative(ctx context.Context, req api.SupplyNativeRequest) (*api.OperationResponse, error) {
	return c.operation(ctx, "/v1/supply-native", req)
}

func (c *Client) Withdraw(ctx context.Context, req api.WithdrawRequest) (*api.OperationResponse, error) {
	return c.operation(ctx, "/v1/withdraw", req)
}

func (c *Client) Repay(ctx context.Context, req api.RepayRequest) (*api.OperationResponse, error) {
	return c.operation(ctx, "/v1/repay", req)
}

func (c *Client) RepayNative(ctx context.Context, req api.RepayNativeRequest) (*api.OperationResponse, error) {
	return c.operation(ctx, "/v1/repay-native", req)
}

func (c *Client) RepayAndWithdraw(ctx context.Context, req api.RepayAndWithdrawRequest) (*api.OperationResponse, error) {
	return c.operation(ctx, "/v1/repay-and-withdraw", req)
}

func (c *Client) Approve(ctx context.Context, req api.ApproveRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/sandbox/approve", req, nil)
}

func (c *Client) EnterMarkets(ctx context.Context, req api.EnterMarketsRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/sandbox/enter-markets", req, nil)
}

func (c *Client) Borrow(ctx context.Context, req api.BorrowRequest) (*sandbox.AccountView, error) {
	var out sandbox.AccountView
	return &out, c.do(ctx, http.MethodPost, "/v1/sandbox/borrow", req, &out)
}

func (c *Client) Mine(ctx context.Context, blocks uint64) (uint64, error) {
	var out api.MineResponse
	err := c.do(ctx, http.MethodPost, "/v1/sandbox/mine", api.MineRequest{Blocks: blocks}, &out)
	return out.Block, err
}

func (c *Client) operation(ctx context.Context, path string, req any) (*api.OperationResponse, error) {
	var out api.OperationResponse
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &Error{Status: resp.StatusCode, Msg: strings.TrimSpace(string(data))}
		var decoded api.ErrorResponse
		if json.Unmarshal(data, &decoded) == nil && decoded.Error != "" {
			apiErr.Code, apiErr.Msg = decoded.Code, decoded.Error
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
