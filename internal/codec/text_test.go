package codec

import (
	"errors"
	"testing"
)

func TestDecodeHexText(t *testing.T) {
	got, err := DecodeHexText("0x537061636520466f78")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Space Fox" {
		t.Errorf("expected %q, got %q", "Space Fox", got)
	}
}

func TestDecodeHexText_NoPrefix(t *testing.T) {
	got, err := DecodeHexText("6e6674")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "nft" {
		t.Errorf("expected %q, got %q", "nft", got)
	}
}

func TestDecodeHexText_OddLength(t *testing.T) {
	_, err := DecodeHexText("0xabc")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestDecodeHexText_NonHex(t *testing.T) {
	_, err := DecodeHexText("0xzz")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestDecodeByteText_InvalidUTF8(t *testing.T) {
	_, err := DecodeByteText([]byte{0xff, 0xfe})
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestDecodeByteText_Empty(t *testing.T) {
	got, err := DecodeByteText(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
