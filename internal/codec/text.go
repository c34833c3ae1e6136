// Package codec converts ledger-native encodings (hex byte strings,
// fixed-point minor-unit amounts) to application types. All currency
// conversion at the ledger boundary goes through this package.
package codec

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodeError reports a malformed ledger-side encoding. Callers treat it
// as "field unavailable" and substitute a placeholder rather than aborting
// the whole record.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeHexText interprets a hex string (with or without 0x prefix) as
// UTF-8 text. The node renders vector<u8> fields this way.
func DecodeHexText(s string) (string, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed)%2 != 0 {
		return "", &DecodeError{What: "hex text", Err: fmt.Errorf("odd length %d", len(trimmed))}
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return "", &DecodeError{What: "hex text", Err: err}
	}
	return DecodeByteText(raw)
}

// DecodeByteText interprets a raw byte sequence as UTF-8 text.
func DecodeByteText(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", &DecodeError{What: "byte text", Err: fmt.Errorf("invalid UTF-8 sequence")}
	}
	return string(b), nil
}
