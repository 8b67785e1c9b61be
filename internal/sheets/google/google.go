package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/storage/memory"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultCacheTTL bounds how stale a sheet snapshot may get.
const DefaultCacheTTL = time.Minute

// Options configures a Sheets client. Credentials come from CredentialsJSON,
// then CredentialsFile, then GOOGLE_APPLICATION_CREDENTIALS.
type Options struct {
	SpreadsheetID     string
	TransactionsSheet string
	BudgetsSheet      string
	// DefaultOwner owns rows whose owner column is empty or missing.
	DefaultOwner    string
	CredentialsJSON string
	CredentialsFile string
	CacheTTL        time.Duration
}

// fetchFunc reads the values of an A1 range.
type fetchFunc func(ctx context.Context, rng string) ([][]any, error)

// Client is a read-only ledger backed by a spreadsheet. Rows are loaded in
// one snapshot and aggregated in memory.
type Client struct {
	fetch             fetchFunc
	transactionsSheet string
	budgetsSheet      string
	defaultOwner      string

	mu                 sync.Mutex
	cached             snapshot
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
	now                func() time.Time
}

type snapshot struct {
	txs     []core.Transaction
	budgets []core.Budget
}

var (
	_ ports.LedgerReader = (*Client)(nil)
	_ ports.BudgetReader = (*Client)(nil)
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.BudgetWriter = (*Client)(nil)
	_ ports.Pinger       = (*Client)(nil)
)

// New creates a Sheets client using Service Account credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	fetch := func(ctx context.Context, rng string) ([][]any, error) {
		resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}
	return newClient(fetch, opts), nil
}

func newClient(fetch fetchFunc, opts Options) *Client {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	txSheet := strings.TrimSpace(opts.TransactionsSheet)
	if txSheet == "" {
		txSheet = "Transactions"
	}
	budgetSheet := strings.TrimSpace(opts.BudgetsSheet)
	if budgetSheet == "" {
		budgetSheet = "Budgets"
	}
	return &Client{
		fetch:              fetch,
		transactionsSheet:  txSheet,
		budgetsSheet:       budgetSheet,
		defaultOwner:       strings.TrimSpace(opts.DefaultOwner),
		cacheValidDuration: ttl,
		now:                time.Now,
	}
}

// newSheetsService initializes a read-only Sheets service.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(opts.CredentialsJSON))
	if len(credentialsJSON) == 0 {
		path := strings.TrimSpace(opts.CredentialsFile)
		if path == "" {
			path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		}
		if path == "" {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsReadonlyScope)
	return service, nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// load returns the current snapshot, refreshing it once the TTL has passed.
func (c *Client) load(ctx context.Context) (snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now().Before(c.cacheExpiresAt) {
		return c.cached, nil
	}

	txValues, err := c.fetch(ctx, c.transactionsSheet+"!A:G")
	if err != nil {
		return snapshot{}, fmt.Errorf("read %s: %w", c.transactionsSheet, err)
	}
	budgetValues, err := c.fetch(ctx, c.budgetsSheet+"!A:F")
	if err != nil {
		return snapshot{}, fmt.Errorf("read %s: %w", c.budgetsSheet, err)
	}

	txs, skippedTx := parseTransactions(txValues, c.defaultOwner)
	budgets, skippedBudgets := parseBudgets(budgetValues, c.defaultOwner)
	if skippedTx+skippedBudgets > 0 {
		slog.WarnContext(ctx, "Skipped malformed sheet rows",
			"transactions", skippedTx,
			"budgets", skippedBudgets)
	}

	c.cached = snapshot{txs: txs, budgets: budgets}
	c.cacheExpiresAt = c.now().Add(c.cacheValidDuration)
	return c.cached, nil
}

// Invalidate forces the next read to reload the sheets.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *Client) Aggregate(ctx context.Context, q ports.AggregateQuery) ([]ports.AggregateRow, error) {
	s, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return memory.Aggregate(s.txs, q), nil
}

func (c *Client) Recent(ctx context.Context, q ports.RecentQuery) ([]core.Transaction, error) {
	s, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return memory.Recent(s.txs, q), nil
}

func (c *Client) BudgetsForMonth(ctx context.Context, ownerID, month string) ([]core.Budget, error) {
	s, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID == ownerID && b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

// Ping reads the transactions header row.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.fetch(ctx, c.transactionsSheet+"!A1:G1")
	return err
}

func (c *Client) RecordTransaction(context.Context, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, core.ErrReadOnlyBackend
}

func (c *Client) DeleteTransaction(context.Context, string, string) error {
	return core.ErrReadOnlyBackend
}

func (c *Client) UpsertBudget(context.Context, core.Budget) (core.Budget, error) {
	return core.Budget{}, core.ErrReadOnlyBackend
}

func (c *Client) DeleteBudget(context.Context, string, string) error {
	return core.ErrReadOnlyBackend
}
