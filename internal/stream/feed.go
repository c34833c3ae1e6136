// Package stream consumes the marketplace event feed over WebSocket.
// Events tell the client which repository scopes went stale between
// polls; the feed supplements polling, it does not replace it.
package stream

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"nft-market-client/internal/domain"
	"nft-market-client/internal/observability"
)

// Event kinds emitted by the marketplace module.
const (
	EventListed         = "listed"
	EventDelisted       = "delisted"
	EventPurchased      = "purchased"
	EventAuctionCreated = "auction_created"
	EventBidPlaced      = "bid_placed"
	EventFused          = "fused"
)

// Event is one marketplace notification.
type Event struct {
	Kind        string
	NFTID       uint64
	AuctionID   uint64
	Actor       domain.Address
	AmountMinor uint64
}

// rawEvent mirrors the wire shape; u64 values arrive as decimal strings.
type rawEvent struct {
	Type      string `json:"type"`
	NFTID     string `json:"nft_id"`
	AuctionID string `json:"auction_id"`
	Actor     string `json:"actor"`
	Amount    string `json:"amount"`
}

// FeedConfig configures feed connection behavior.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Feed is a reconnecting WebSocket consumer of marketplace events.
type Feed struct {
	endpoint string
	config   FeedConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewFeed creates a feed and starts its reader. The first connection is
// attempted from the reader loop, so a node that is down at startup is
// retried rather than fatal.
func NewFeed(endpoint string, config *FeedConfig, logger *log.Logger) *Feed {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[stream] ", log.LstdFlags)
	}

	f := &Feed{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		// Blocking send ensures no event loss; buffer absorbs burst.
		events: make(chan Event, 1024),
		done:   make(chan struct{}),
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f
}

// Events returns the notification channel. It is closed by Close.
func (f *Feed) Events() <-chan Event { return f.events }

// Close shuts the feed down and closes the event channel.
func (f *Feed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.events)
	return nil
}

func (f *Feed) connect() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	return nil
}

// readLoop owns the connection: it dials, reads until the connection
// breaks, then reconnects with exponential backoff.
func (f *Feed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			if err := f.connect(); err != nil {
				f.logger.Printf("connect %s: %v (retry in %v)", f.endpoint, err, reconnectDelay)
				select {
				case <-f.done:
					return
				case <-time.After(reconnectDelay):
				}
				reconnectDelay *= 2
				if reconnectDelay > f.config.MaxReconnectDelay {
					reconnectDelay = f.config.MaxReconnectDelay
				}
				continue
			}
			reconnectDelay = f.config.ReconnectDelay
			f.logger.Printf("connected to %s", f.endpoint)
			continue
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}
			f.logger.Printf("read: %v, reconnecting", err)
			observability.RecordFeedReconnect()
			f.connMu.Lock()
			f.conn.Close()
			f.conn = nil
			f.connMu.Unlock()
			continue
		}

		event, err := decodeEvent(data)
		if err != nil {
			f.logger.Printf("dropping malformed event: %v", err)
			continue
		}
		observability.RecordFeedEvent(event.Kind)

		// Block until the consumer drains - never drop events.
		select {
		case f.events <- event:
		case <-f.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			f.connMu.Unlock()
		}
	}
}

func decodeEvent(data []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if raw.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}

	event := Event{Kind: raw.Type}
	if raw.Actor != "" {
		addr, err := domain.NormalizeAddress(raw.Actor)
		if err != nil {
			return Event{}, fmt.Errorf("event actor: %w", err)
		}
		event.Actor = addr
	}

	var err error
	if event.NFTID, err = parseOptionalU64(raw.NFTID); err != nil {
		return Event{}, fmt.Errorf("event nft_id: %w", err)
	}
	if event.AuctionID, err = parseOptionalU64(raw.AuctionID); err != nil {
		return Event{}, fmt.Errorf("event auction_id: %w", err)
	}
	if event.AmountMinor, err = parseOptionalU64(raw.Amount); err != nil {
		return Event{}, fmt.Errorf("event amount: %w", err)
	}
	return event, nil
}

func parseOptionalU64(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
