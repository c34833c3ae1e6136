package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBridgeAgent_SignAndSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sign_and_submit" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var payload EntryFunctionPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Type != PayloadType {
			t.Errorf("expected type %s, got %s", PayloadType, payload.Type)
		}
		if len(payload.Arguments) != 2 || payload.Arguments[1] != "300000000" {
			t.Errorf("unexpected arguments %v", payload.Arguments)
		}

		w.Write([]byte(`{"hash":"0xdeadbeef"}`))
	}))
	defer server.Close()

	agent := NewBridgeAgent(server.URL)
	payload := NewEntryFunctionPayload("0x1::marketplace::list_nft_for_sale", "7", "300000000")

	handle, err := agent.SignAndSubmit(context.Background(), payload)
	if err != nil {
		t.Fatalf("SignAndSubmit: %v", err)
	}
	if handle.Hash != "0xdeadbeef" {
		t.Errorf("expected hash 0xdeadbeef, got %s", handle.Hash)
	}
}

func TestBridgeAgent_UserRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rejected":true}`))
	}))
	defer server.Close()

	agent := NewBridgeAgent(server.URL)
	_, err := agent.SignAndSubmit(context.Background(), NewEntryFunctionPayload("0x1::m::f"))
	if !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
}

func TestBridgeAgent_DaemonError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"keystore locked"}`))
	}))
	defer server.Close()

	agent := NewBridgeAgent(server.URL)
	_, err := agent.SignAndSubmit(context.Background(), NewEntryFunctionPayload("0x1::m::f"))

	var agentErr *AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("expected *AgentError, got %v", err)
	}
}

func TestBridgeAgent_Unreachable(t *testing.T) {
	agent := NewBridgeAgent("http://127.0.0.1:1")
	_, err := agent.SignAndSubmit(context.Background(), NewEntryFunctionPayload("0x1::m::f"))

	var agentErr *AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("expected *AgentError, got %v", err)
	}
}
