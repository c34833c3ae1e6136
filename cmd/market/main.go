// Package main provides the marketplace client CLI:
// - Read commands: browse, auctions, owned, history
// - Write commands: sell, delist, buy, auction, bid, fuse (via wallet agent)
// - watch (continuous): polling, event feed, Prometheus metrics, status
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"nft-market-client/internal/codec"
	"nft-market-client/internal/contract"
	"nft-market-client/internal/domain"
	"nft-market-client/internal/history"
	historymem "nft-market-client/internal/history/memory"
	historysqlite "nft-market-client/internal/history/sqlite"
	"nft-market-client/internal/ledger"
	"nft-market-client/internal/observability"
	"nft-market-client/internal/poller"
	"nft-market-client/internal/query"
	"nft-market-client/internal/repository"
	"nft-market-client/internal/stream"
	"nft-market-client/internal/txflow"
	"nft-market-client/internal/wallet"
)

const usage = `Usage: market [flags] <command> [args]

Read commands:
  browse [page]              Show NFTs listed for sale
  auctions [page]            Show auctions
  owned                      Show NFTs owned by the configured account
  history                    Show the local transaction history

Write commands (require a running wallet agent):
  sell <nft-id> <price>      List an owned NFT for sale
  delist <nft-id>            Remove a listing
  buy <nft-id>               Purchase a listed NFT
  auction <nft-id> <start-price> <duration>   Start a timed auction
  bid <auction-id> <amount>  Bid on an active auction
  fuse <nft-id> <nft-id>     Burn two owned NFTs, mint a new one

Long-running:
  watch                      Poll, consume the event feed, serve metrics
`

// Client wires the gateway, repositories, and orchestrator for one account.
type Client struct {
	actor    domain.Address
	gateway  ledger.Gateway
	mod      contract.Module
	listings *repository.Listings
	auctions *repository.Auctions
	owned    *repository.Owned
	orch     *txflow.Orchestrator
	store    history.Store
	logger   *log.Logger
	cleanup  func()
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	nodeURL := flag.String("node-url", os.Getenv("MARKET_NODE_URL"), "Ledger node REST endpoint")
	feedURL := flag.String("feed-url", os.Getenv("MARKET_FEED_URL"), "Marketplace event feed WebSocket endpoint")
	marketAddr := flag.String("market-addr", os.Getenv("MARKET_MODULE_ADDRESS"), "Marketplace module address")
	accountAddr := flag.String("account", os.Getenv("MARKET_ACCOUNT"), "Account address to act as")
	agentURL := flag.String("agent-url", envOr("MARKET_AGENT_URL", "http://127.0.0.1:7600"), "Wallet agent endpoint")
	historyPath := flag.String("history-path", os.Getenv("MARKET_HISTORY_PATH"), "SQLite path for transaction history (empty: in-memory)")
	metricsAddr := flag.String("metrics-addr", envOr("MARKET_METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address (watch only)")
	pageSize := flag.Int("page-size", query.DefaultPageSize, "Items per page for browse/auctions")
	rarity := flag.Int("rarity", 0, "Filter browse by rarity tier (1-4, 0: all)")
	search := flag.String("search", "", "Filter browse by name/description substring")
	sortKey := flag.String("sort", "listed_desc", "Browse sort: price_asc, price_desc, listed_asc, listed_desc, rarity_asc, rarity_desc")
	flag.Parse()

	logger := log.New(os.Stdout, "[market] ", log.LstdFlags)

	if flag.NArg() == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	command := flag.Arg(0)
	args := flag.Args()[1:]

	// Validate required flags
	if *nodeURL == "" {
		logger.Fatal("--node-url is required (or MARKET_NODE_URL)")
	}
	if *marketAddr == "" {
		logger.Fatal("--market-addr is required (or MARKET_MODULE_ADDRESS)")
	}
	if *accountAddr == "" {
		logger.Fatal("--account is required (or MARKET_ACCOUNT)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := newClient(ctx, *nodeURL, *marketAddr, *accountAddr, *agentURL, *historyPath, logger)
	if err != nil {
		logger.Fatalf("Failed to create client: %v", err)
	}
	defer client.cleanup()

	switch command {
	case "browse":
		err = client.cmdBrowse(ctx, args, *pageSize, *rarity, *search, *sortKey)
	case "auctions":
		err = client.cmdAuctions(ctx, args, *pageSize)
	case "owned":
		err = client.cmdOwned(ctx)
	case "history":
		err = client.cmdHistory(ctx)
	case "sell":
		err = client.cmdSell(ctx, args)
	case "delist":
		err = client.cmdDelist(ctx, args)
	case "buy":
		err = client.cmdBuy(ctx, args)
	case "auction":
		err = client.cmdAuction(ctx, args)
	case "bid":
		err = client.cmdBid(ctx, args)
	case "fuse":
		err = client.cmdFuse(ctx, args)
	case "watch":
		err = client.cmdWatch(ctx, cancel, *feedURL, *metricsAddr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", command, usage)
		os.Exit(1)
	}

	if err != nil {
		logger.Fatalf("%s: %v", command, err)
	}
}

func newClient(ctx context.Context, nodeURL, marketAddr, accountAddr, agentURL, historyPath string, logger *log.Logger) (*Client, error) {
	moduleAddr, err := domain.NormalizeAddress(marketAddr)
	if err != nil {
		return nil, fmt.Errorf("market address: %w", err)
	}
	actor, err := domain.NormalizeAddress(accountAddr)
	if err != nil {
		return nil, fmt.Errorf("account address: %w", err)
	}

	gateway := ledger.NewHTTPGateway(nodeURL)
	mod := contract.Module{Address: moduleAddr}

	listings := repository.NewListings(gateway, mod, logger)
	auctions := repository.NewAuctions(gateway, mod, logger)
	owned := repository.NewOwned(gateway, mod, actor, logger)

	var store history.Store
	cleanup := func() {}
	if historyPath != "" {
		s, err := historysqlite.NewStore(ctx, historyPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		store = s
		cleanup = func() { s.Close() }
	} else {
		store = historymem.NewStore()
	}

	orch := txflow.New(txflow.Options{
		Agent:    wallet.NewBridgeAgent(agentURL),
		Gateway:  gateway,
		Module:   mod,
		Actor:    actor,
		Listings: listings,
		Auctions: auctions,
		Owned:    owned,
		History:  store,
		Logger:   logger,
	})

	return &Client{
		actor:    actor,
		gateway:  gateway,
		mod:      mod,
		listings: listings,
		auctions: auctions,
		owned:    owned,
		orch:     orch,
		store:    store,
		logger:   logger,
		cleanup:  cleanup,
	}, nil
}

func (c *Client) cmdBrowse(ctx context.Context, args []string, pageSize, rarity int, search, sortKey string) error {
	page, err := pageArg(args)
	if err != nil {
		return err
	}
	if err := c.listings.Refresh(ctx); err != nil {
		return err
	}

	sortOrder, err := parseSort(sortKey)
	if err != nil {
		return err
	}
	params := query.Params{
		Filters:  query.Filters{ForSale: true, Search: search},
		Sort:     sortOrder,
		Page:     page,
		PageSize: pageSize,
	}
	if rarity != 0 {
		tier := domain.RarityTier(rarity)
		if !tier.Valid() {
			return fmt.Errorf("rarity must be 1-4, got %d", rarity)
		}
		params.Filters.Rarity = &tier
	}

	res := query.Apply(c.listings.Snapshot(), params)
	fmt.Printf("Listings (page %d/%d, %d total):\n", res.Page, res.PageCount, res.TotalCount)
	for _, n := range res.Items {
		fmt.Printf("  #%-6d %-24s %-10s %s\n", n.ID, n.Name, n.Rarity.Label(), n.Price.String())
	}
	return nil
}

func (c *Client) cmdAuctions(ctx context.Context, args []string, pageSize int) error {
	page, err := pageArg(args)
	if err != nil {
		return err
	}
	if err := c.auctions.Refresh(ctx); err != nil {
		return err
	}

	items, total := query.AuctionPage(c.auctions.Snapshot(), page, pageSize)
	now := time.Now().Unix()
	fmt.Printf("Auctions (%d total):\n", total)
	for _, a := range items {
		status := "active"
		if a.Ended(now) {
			status = "ended"
		}
		bidder := "-"
		if a.HasBids() {
			bidder = a.HighestBidder.Short()
		}
		fmt.Printf("  #%-6d nft #%-6d %-7s bid %-12s by %-12s ends %s\n",
			a.ID, a.NFTID, status, a.CurrentBid.String(), bidder,
			time.Unix(a.EndTime, 0).Format(time.RFC3339))
	}
	return nil
}

func (c *Client) cmdOwned(ctx context.Context) error {
	if err := c.owned.Refresh(ctx); err != nil {
		return err
	}
	items := c.owned.Snapshot()
	fmt.Printf("Owned by %s (%d):\n", c.actor.Short(), len(items))
	for _, n := range items {
		state := ""
		if n.ForSale {
			state = fmt.Sprintf("  listed at %s", n.Price.String())
		}
		fmt.Printf("  #%-6d %-24s %-10s%s\n", n.ID, n.Name, n.Rarity.Label(), state)
	}
	return nil
}

func (c *Client) cmdHistory(ctx context.Context) error {
	records, err := c.store.GetByActor(ctx, c.actor)
	if err != nil {
		return err
	}
	fmt.Printf("History for %s (%d):\n", c.actor.Short(), len(records))
	for _, r := range records {
		fmt.Printf("  %s  %-20s #%-6d %-12s %-10s %s\n",
			time.UnixMilli(r.CreatedAt).Format(time.RFC3339),
			r.Kind, r.SubjectID, codec.ToMajorUnits(r.AmountMinor).String(), r.Status, r.Hash)
	}
	return nil
}

func (c *Client) cmdSell(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sell <nft-id> <price>")
	}
	id, err := u64Arg(args[0], "nft-id")
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("price %q: %w", args[1], err)
	}
	if err := c.owned.Refresh(ctx); err != nil {
		return err
	}
	receipt, err := c.orch.ListForSale(ctx, id, price)
	if err != nil {
		return err
	}
	c.logger.Printf("listed #%d at %s (tx %s)", id, price.String(), receipt.Hash)
	return nil
}

func (c *Client) cmdDelist(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delist <nft-id>")
	}
	id, err := u64Arg(args[0], "nft-id")
	if err != nil {
		return err
	}
	if err := c.owned.Refresh(ctx); err != nil {
		return err
	}
	receipt, err := c.orch.Delist(ctx, id)
	if err != nil {
		return err
	}
	c.logger.Printf("delisted #%d (tx %s)", id, receipt.Hash)
	return nil
}

func (c *Client) cmdBuy(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: buy <nft-id>")
	}
	id, err := u64Arg(args[0], "nft-id")
	if err != nil {
		return err
	}
	if err := c.listings.Refresh(ctx); err != nil {
		return err
	}
	receipt, err := c.orch.Purchase(ctx, id)
	if err != nil {
		return err
	}
	c.logger.Printf("purchased #%d (tx %s)", id, receipt.Hash)
	return nil
}

func (c *Client) cmdAuction(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: auction <nft-id> <start-price> <duration>")
	}
	id, err := u64Arg(args[0], "nft-id")
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("start-price %q: %w", args[1], err)
	}
	duration, err := time.ParseDuration(args[2])
	if err != nil {
		return fmt.Errorf("duration %q: %w", args[2], err)
	}
	if err := c.owned.Refresh(ctx); err != nil {
		return err
	}
	if err := c.auctions.Refresh(ctx); err != nil {
		return err
	}
	endTime := time.Now().Add(duration).Unix()
	receipt, err := c.orch.CreateAuction(ctx, id, price, endTime)
	if err != nil {
		return err
	}
	c.logger.Printf("auction started for #%d, ends %s (tx %s)",
		id, time.Unix(endTime, 0).Format(time.RFC3339), receipt.Hash)
	return nil
}

func (c *Client) cmdBid(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: bid <auction-id> <amount>")
	}
	id, err := u64Arg(args[0], "auction-id")
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("amount %q: %w", args[1], err)
	}
	if err := c.auctions.Refresh(ctx); err != nil {
		return err
	}
	receipt, err := c.orch.PlaceBid(ctx, id, amount)
	if err != nil {
		return err
	}
	c.logger.Printf("bid %s on auction #%d (tx %s)", amount.String(), id, receipt.Hash)
	return nil
}

func (c *Client) cmdFuse(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: fuse <nft-id> <nft-id>")
	}
	first, err := u64Arg(args[0], "nft-id")
	if err != nil {
		return err
	}
	second, err := u64Arg(args[1], "nft-id")
	if err != nil {
		return err
	}
	if err := c.owned.Refresh(ctx); err != nil {
		return err
	}
	if err := c.auctions.Refresh(ctx); err != nil {
		return err
	}
	receipt, err := c.orch.Fuse(ctx, domain.FusionRequest{FirstID: first, SecondID: second})
	if err != nil {
		return err
	}
	c.logger.Printf("fused #%d + #%d -> #%d (tx %s)", first, second, receipt.NewNFTID, receipt.Hash)
	return nil
}

// cmdWatch runs the continuous mode: polling loops, the event feed, and
// the metrics/status HTTP server, until interrupted.
func (c *Client) cmdWatch(ctx context.Context, cancel context.CancelFunc, feedURL, metricsAddr string) error {
	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		c.logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	scheduler := poller.NewScheduler(c.logger)
	scheduler.Subscribe(ctx, "listings", poller.DefaultListingsInterval, c.listings)
	scheduler.Subscribe(ctx, "auctions", poller.DefaultAuctionsInterval, c.auctions)
	scheduler.Subscribe(ctx, "owned", poller.DefaultOwnedInterval, c.owned)
	defer scheduler.StopAll()

	var feed *stream.Feed
	if feedURL != "" {
		feed = stream.NewFeed(feedURL, nil, c.logger)
		defer feed.Close()
		go c.consumeFeed(ctx, feed)
	} else {
		c.logger.Println("No feed URL configured, relying on polling only")
	}

	go c.startHTTPServer(metricsAddr)

	<-ctx.Done()
	c.logger.Println("Shutdown complete")
	return nil
}

// consumeFeed turns feed events into targeted refreshes so snapshots
// converge faster than the polling cadence.
func (c *Client) consumeFeed(ctx context.Context, feed *stream.Feed) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-feed.Events():
			if !ok {
				return
			}
			c.refreshForEvent(ctx, event)
		}
	}
}

func (c *Client) refreshForEvent(ctx context.Context, event stream.Event) {
	var scopes []poller.Refresher
	switch event.Kind {
	case stream.EventListed, stream.EventDelisted:
		scopes = []poller.Refresher{c.listings}
		if event.Actor == c.actor {
			scopes = append(scopes, c.owned)
		}
	case stream.EventPurchased, stream.EventFused:
		scopes = []poller.Refresher{c.listings, c.owned}
	case stream.EventAuctionCreated, stream.EventBidPlaced:
		scopes = []poller.Refresher{c.auctions}
	default:
		c.logger.Printf("ignoring unknown event kind %q", event.Kind)
		return
	}
	for _, scope := range scopes {
		if err := scope.Refresh(ctx); err != nil {
			c.logger.Printf("event %s: refresh failed: %v", event.Kind, err)
		}
	}
}

// startHTTPServer serves Prometheus metrics and a status endpoint.
func (c *Client) startHTTPServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"account":   string(c.actor),
			"listings":  len(c.listings.Snapshot()),
			"auctions":  len(c.auctions.Snapshot()),
			"owned":     len(c.owned.Snapshot()),
			"flowState": c.orch.State().String(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	c.logger.Printf("Metrics server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		c.logger.Printf("Metrics server error: %v", err)
	}
}

var sortNames = map[string]query.Sort{
	"price_asc":   query.SortPriceAsc,
	"price_desc":  query.SortPriceDesc,
	"listed_asc":  query.SortListedAsc,
	"listed_desc": query.SortListedDesc,
	"rarity_asc":  query.SortRarityAsc,
	"rarity_desc": query.SortRarityDesc,
}

func parseSort(name string) (query.Sort, error) {
	s, ok := sortNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown sort %q", name)
	}
	return s, nil
}

func pageArg(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	page, err := strconv.Atoi(args[0])
	if err != nil || page < 1 {
		return 0, fmt.Errorf("page %q: must be a positive integer", args[0])
	}
	return page, nil
}

func u64Arg(s, name string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, err)
	}
	return v, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
