// Package wallet delegates transaction signing and submission to an
// external wallet agent. Key material never enters this process.
package wallet

import (
	"context"
	"errors"
	"fmt"
)

// ErrUserRejected is returned when the user declines to sign.
var ErrUserRejected = errors.New("wallet: user rejected signing")

// AgentError wraps a failure of the wallet agent itself (unreachable,
// malformed reply), as opposed to a user decision.
type AgentError struct {
	Err error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("wallet agent: %v", e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// PayloadType is the only intent kind the marketplace client submits.
const PayloadType = "entry_function_payload"

// EntryFunctionPayload is a transaction intent: a module entry function
// with an ordered argument list. Numeric arguments are decimal-string
// encoded integers in minor units; the caller converts via codec before
// building the payload.
type EntryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []string `json:"arguments"`
}

// NewEntryFunctionPayload builds a payload for the given function id.
func NewEntryFunctionPayload(function string, arguments ...string) *EntryFunctionPayload {
	if arguments == nil {
		arguments = []string{}
	}
	return &EntryFunctionPayload{
		Type:          PayloadType,
		Function:      function,
		TypeArguments: []string{},
		Arguments:     arguments,
	}
}

// TxHandle identifies a submitted transaction awaiting finality.
type TxHandle struct {
	Hash string
}

// Agent signs and submits transaction intents on the user's behalf.
type Agent interface {
	// SignAndSubmit presents the intent for signing and submits it to the
	// ledger. Returns ErrUserRejected if the user declines, or an
	// *AgentError on agent failure.
	SignAndSubmit(ctx context.Context, payload *EntryFunctionPayload) (TxHandle, error)
}
