package control

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"firestige.xyz/pktgraph/internal/element"
)

var requestSeq atomic.Uint64

// Client is a JSON-RPC client over a Unix domain socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{socketPath: socketPath, timeout: timeout}
}

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// Call sends one request and decodes the result into result, which may be nil.
// A server-side error is returned as *ErrorInfo.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	var d net.Dialer
	dctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	conn, err := d.DialContext(dctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsJSON = data
	}

	reqID := fmt.Sprintf("req-%d", requestSeq.Add(1))
	req := JSONRPCRequest{JSONRPC: jsonrpcVersion, Method: method, Params: paramsJSON, ID: reqID}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return fmt.Errorf("connection closed without response")
	}

	var resp rawResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if id := fmt.Sprintf("%v", resp.ID); id != reqID {
		return fmt.Errorf("response ID mismatch: expected %v, got %v", reqID, id)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}

func (c *Client) HandlerList(ctx context.Context) ([]element.HandlerInfo, error) {
	var out []element.HandlerInfo
	err := c.Call(ctx, MethodHandlerList, nil, &out)
	return out, err
}

func (c *Client) HandlerRead(ctx context.Context, handler string) (string, error) {
	var out string
	err := c.Call(ctx, MethodHandlerRead, HandlerParams{Handler: handler}, &out)
	return out, err
}

func (c *Client) HandlerWrite(ctx context.Context, handler, value string) error {
	return c.Call(ctx, MethodHandlerWrite, HandlerParams{Handler: handler, Value: value}, nil)
}

func (c *Client) GraphStats(ctx context.Context) (StatsResult, error) {
	var out StatsResult
	err := c.Call(ctx, MethodGraphStats, nil, &out)
	return out, err
}
