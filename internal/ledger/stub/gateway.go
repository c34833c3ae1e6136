// Package stub provides an in-memory ledger.Gateway for testing.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"nft-market-client/internal/ledger"
)

// ErrNotConfigured is returned when the stub has no fixture for a request.
var ErrNotConfigured = errors.New("stub: no fixture configured")

// Gateway implements ledger.Gateway from fixture maps. Call counters are
// exported so tests can assert on read coalescing.
type Gateway struct {
	mu sync.Mutex

	// Views maps a fixture key to the positional return values. The key
	// is either the bare function id or function id + "|" + args joined
	// with commas; the argument-specific key wins. ViewErr takes
	// precedence when set for a key.
	Views   map[string][]json.RawMessage
	ViewErr map[string]error

	// Resources maps address+"|"+resourceType to the resource data blob.
	Resources   map[string]json.RawMessage
	ResourceErr error

	// Results maps transaction hash to its finality outcome.
	Results map[string]*ledger.TransactionResult

	ViewCalls     map[string]int
	ResourceCalls int
	WaitCalls     int

	// ViewHook, when set, runs before each View call (e.g. to block until
	// released in coalescing tests).
	ViewHook func(function string)
}

// NewGateway creates an empty stub gateway.
func NewGateway() *Gateway {
	return &Gateway{
		Views:     make(map[string][]json.RawMessage),
		ViewErr:   make(map[string]error),
		Resources: make(map[string]json.RawMessage),
		Results:   make(map[string]*ledger.TransactionResult),
		ViewCalls: make(map[string]int),
	}
}

// SetView configures the return values of a view function from JSON literals.
func (g *Gateway) SetView(function string, values ...string) {
	raw := make([]json.RawMessage, len(values))
	for i, v := range values {
		raw[i] = json.RawMessage(v)
	}
	g.mu.Lock()
	g.Views[function] = raw
	g.mu.Unlock()
}

// SetViewFor configures return values for one specific argument list.
func (g *Gateway) SetViewFor(function string, arguments []string, values ...string) {
	raw := make([]json.RawMessage, len(values))
	for i, v := range values {
		raw[i] = json.RawMessage(v)
	}
	g.mu.Lock()
	g.Views[viewKey(function, arguments)] = raw
	g.mu.Unlock()
}

// SetViewErrFor configures an error for one specific argument list.
func (g *Gateway) SetViewErrFor(function string, arguments []string, err error) {
	g.mu.Lock()
	g.ViewErr[viewKey(function, arguments)] = err
	g.mu.Unlock()
}

func viewKey(function string, arguments []string) string {
	return function + "|" + strings.Join(arguments, ",")
}

// SetResource configures a resource blob from a JSON literal.
func (g *Gateway) SetResource(address, resourceType, data string) {
	g.mu.Lock()
	g.Resources[address+"|"+resourceType] = json.RawMessage(data)
	g.mu.Unlock()
}

// SetResult configures the finality outcome for a transaction hash.
func (g *Gateway) SetResult(hash string, success bool, vmStatus string) {
	g.mu.Lock()
	g.Results[hash] = &ledger.TransactionResult{Hash: hash, Success: success, VMStatus: vmStatus}
	g.mu.Unlock()
}

// View returns the configured values for the function, preferring an
// argument-specific fixture over the bare function fixture.
func (g *Gateway) View(_ context.Context, function string, _, arguments []string) ([]json.RawMessage, error) {
	if g.ViewHook != nil {
		g.ViewHook(function)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ViewCalls[function]++

	key := viewKey(function, arguments)
	if err, ok := g.ViewErr[key]; ok {
		return nil, err
	}
	if err, ok := g.ViewErr[function]; ok {
		return nil, err
	}
	if values, ok := g.Views[key]; ok {
		return values, nil
	}
	if values, ok := g.Views[function]; ok {
		return values, nil
	}
	return nil, ErrNotConfigured
}

// AccountResource returns the configured resource blob.
func (g *Gateway) AccountResource(_ context.Context, address, resourceType string) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ResourceCalls++
	if g.ResourceErr != nil {
		return nil, g.ResourceErr
	}
	data, ok := g.Resources[address+"|"+resourceType]
	if !ok {
		return nil, ErrNotConfigured
	}
	return data, nil
}

// WaitForTransaction returns the configured outcome for the hash.
func (g *Gateway) WaitForTransaction(_ context.Context, hash string) (*ledger.TransactionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.WaitCalls++
	res, ok := g.Results[hash]
	if !ok {
		return nil, ErrNotConfigured
	}
	return res, nil
}
