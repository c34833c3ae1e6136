package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBridgeTimeout bounds one bridge exchange. Signing can sit on a
// human decision, so it is generous.
const DefaultBridgeTimeout = 5 * time.Minute

// BridgeAgent implements Agent against a local wallet daemon's HTTP
// bridge. The daemon owns the keys, prompts the user, and submits the
// signed transaction itself.
type BridgeAgent struct {
	endpoint string
	client   *http.Client
}

// BridgeOption configures BridgeAgent.
type BridgeOption func(*BridgeAgent)

// WithBridgeTimeout sets the HTTP timeout for bridge requests.
func WithBridgeTimeout(d time.Duration) BridgeOption {
	return func(a *BridgeAgent) {
		a.client.Timeout = d
	}
}

// WithBridgeHTTPClient sets a custom http.Client.
func WithBridgeHTTPClient(client *http.Client) BridgeOption {
	return func(a *BridgeAgent) {
		a.client = client
	}
}

// NewBridgeAgent creates an agent talking to the daemon at endpoint
// (e.g. "http://127.0.0.1:8119").
func NewBridgeAgent(endpoint string, opts ...BridgeOption) *BridgeAgent {
	a := &BridgeAgent{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultBridgeTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// bridgeResponse is the daemon's reply to a signing request.
type bridgeResponse struct {
	Hash     string `json:"hash,omitempty"`
	Rejected bool   `json:"rejected,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SignAndSubmit posts the intent to the daemon and returns the submitted
// transaction hash.
func (a *BridgeAgent) SignAndSubmit(ctx context.Context, payload *EntryFunctionPayload) (TxHandle, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return TxHandle{}, &AgentError{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/sign_and_submit", bytes.NewReader(body))
	if err != nil {
		return TxHandle{}, &AgentError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return TxHandle{}, &AgentError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return TxHandle{}, &AgentError{Err: fmt.Errorf("read response: %w", err)}
	}

	var br bridgeResponse
	if err := json.Unmarshal(respBody, &br); err != nil {
		return TxHandle{}, &AgentError{Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	switch {
	case br.Rejected:
		return TxHandle{}, ErrUserRejected
	case resp.StatusCode != http.StatusOK || br.Error != "":
		return TxHandle{}, &AgentError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, br.Error)}
	case br.Hash == "":
		return TxHandle{}, &AgentError{Err: fmt.Errorf("daemon returned no transaction hash")}
	}

	return TxHandle{Hash: br.Hash}, nil
}
