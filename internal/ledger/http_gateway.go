package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"nft-market-client/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultBackoffMult  = 2.0
	DefaultPollInterval = 1 * time.Second
)

// HTTPGateway implements Gateway against a node's REST API.
type HTTPGateway struct {
	endpoint     string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	pollInterval time.Duration
}

// GatewayOption configures HTTPGateway.
type GatewayOption func(*HTTPGateway)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		g.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts per request.
func WithMaxRetries(n int) GatewayOption {
	return func(g *HTTPGateway) {
		g.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		g.retryDelay = d
	}
}

// WithPollInterval sets the finality-wait poll interval.
func WithPollInterval(d time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		g.pollInterval = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		g.client = client
	}
}

// NewHTTPGateway creates a gateway for the node at endpoint
// (e.g. "https://fullnode.testnet.example.com/v1").
func NewHTTPGateway(endpoint string, opts ...GatewayOption) *HTTPGateway {
	g := &HTTPGateway{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// nodeError is the error body the node returns on 4xx/5xx.
type nodeError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

func (e *nodeError) Error() string {
	return fmt.Sprintf("node error %s: %s", e.ErrorCode, e.Message)
}

// doJSON performs one HTTP exchange with retries and exponential backoff.
// Node-reported errors (4xx bodies) are not retried; transport failures,
// 429 and 5xx are. A nil result skips response decoding. notFoundOK makes
// a 404 return errNotFound without retrying.
var errNotFound = fmt.Errorf("not found")

func (g *HTTPGateway) doJSON(ctx context.Context, method, path string, reqBody, result interface{}, notFoundOK bool) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	delay := g.retryDelay
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &NetworkError{Op: path, Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * g.backoffMult)
			if delay > g.maxDelay {
				delay = g.maxDelay
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.endpoint+path, body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := g.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if result != nil {
				if err := json.Unmarshal(respBody, result); err != nil {
					return fmt.Errorf("unmarshal response: %w", err)
				}
			}
			return nil

		case resp.StatusCode == http.StatusNotFound && notFoundOK:
			return errNotFound

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server status %d: %s", resp.StatusCode, string(respBody))
			continue

		default:
			// Node-reported request errors are final.
			var ne nodeError
			if err := json.Unmarshal(respBody, &ne); err == nil && ne.Message != "" {
				return &ne
			}
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
	}

	return &NetworkError{Op: path, Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
}

// viewRequest is the request body for POST /view.
type viewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []string `json:"arguments"`
}

// View invokes a read-only module function.
func (g *HTTPGateway) View(ctx context.Context, function string, typeArguments, arguments []string) ([]json.RawMessage, error) {
	if typeArguments == nil {
		typeArguments = []string{}
	}
	if arguments == nil {
		arguments = []string{}
	}
	req := viewRequest{
		Function:      function,
		TypeArguments: typeArguments,
		Arguments:     arguments,
	}

	done := observability.TimeGatewayCall("view")
	var result []json.RawMessage
	err := g.doJSON(ctx, http.MethodPost, "/view", req, &result, false)
	done(err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// accountResourceResult is the raw response for GET /accounts/{addr}/resource/{type}.
type accountResourceResult struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AccountResource fetches a named resource under an address.
func (g *HTTPGateway) AccountResource(ctx context.Context, address, resourceType string) (json.RawMessage, error) {
	path := fmt.Sprintf("/accounts/%s/resource/%s", url.PathEscape(address), url.PathEscape(resourceType))

	done := observability.TimeGatewayCall("account_resource")
	var result accountResourceResult
	err := g.doJSON(ctx, http.MethodGet, path, nil, &result, false)
	done(err)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// txByHashResult is the raw response for GET /transactions/by_hash/{hash}.
type txByHashResult struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
	Version  string `json:"version"` // u64 rendered as string
}

// WaitForTransaction polls the node until the transaction leaves the
// pending state. A 404 means the node has not seen the hash yet and is
// treated like pending. The wait is unbounded; cancel via ctx.
func (g *HTTPGateway) WaitForTransaction(ctx context.Context, hash string) (*TransactionResult, error) {
	path := "/transactions/by_hash/" + url.PathEscape(hash)
	done := observability.TimeGatewayCall("wait_for_transaction")

	for {
		var result txByHashResult
		err := g.doJSON(ctx, http.MethodGet, path, nil, &result, true)
		switch {
		case err == errNotFound:
			// Not yet known to this node.
		case err != nil:
			done(err)
			return nil, err
		case result.Type != "pending_transaction":
			res := &TransactionResult{
				Hash:     result.Hash,
				Success:  result.Success,
				VMStatus: result.VMStatus,
			}
			if result.Version != "" {
				if v, perr := strconv.ParseUint(result.Version, 10, 64); perr == nil {
					res.Version = v
				}
			}
			done(nil)
			return res, nil
		}

		select {
		case <-ctx.Done():
			err := &NetworkError{Op: "wait for transaction", Err: ctx.Err()}
			done(err)
			return nil, err
		case <-time.After(g.pollInterval):
		}
	}
}
