package tradedesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Remote table names.
const (
	TableJournal   = "journal_entries"
	TablePortfolio = "portfolio_items"
	TableTrades    = "trades"
)

// clearSentinel is an id no record can have; "id != sentinel" matches every row.
const clearSentinel = "00000000000000000000000000"

// RemoteOptions configures the remote table strategy.
type RemoteOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient HTTPDoer
	Timeout    time.Duration
}

type remoteBackend struct {
	journal   *remoteTable[JournalEntry]
	portfolio *remoteTable[PortfolioItem]
	trades    *remoteTable[Trade]
}

// NewRemoteBackend talks to PostgREST-style tables under {BaseURL}/rest/v1.
func NewRemoteBackend(opts RemoteOptions) (Backend, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, invalidf("invalid remote url: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, invalidf("invalid remote url scheme: %s", parsed.Scheme)
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, invalidf("remote key is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultDuration(opts.Timeout, 15*time.Second)}
	}
	conn := remoteConn{client: client, baseURL: base + "/rest/v1", apiKey: strings.TrimSpace(opts.APIKey)}
	return &remoteBackend{
		journal:   &remoteTable[JournalEntry]{remoteConn: conn, table: TableJournal, order: "date.desc"},
		portfolio: &remoteTable[PortfolioItem]{remoteConn: conn, table: TablePortfolio},
		trades:    &remoteTable[Trade]{remoteConn: conn, table: TableTrades, order: "date.desc"},
	}, nil
}

func (b *remoteBackend) Name() string                    { return BackendRemote }
func (b *remoteBackend) Journal() Table[JournalEntry]    { return b.journal }
func (b *remoteBackend) Portfolio() Table[PortfolioItem] { return b.portfolio }
func (b *remoteBackend) Trades() Table[Trade]            { return b.trades }
func (b *remoteBackend) Close() error                    { return nil }

type remoteConn struct {
	client  HTTPDoer
	baseURL string
	apiKey  string
}

type remoteTable[T Record] struct {
	remoteConn
	table string
	order string
}

func (t *remoteTable[T]) List(ctx context.Context) ([]T, error) {
	query := url.Values{}
	query.Set("select", "*")
	if t.order != "" {
		query.Set("order", t.order)
	}
	body, err := t.do(ctx, http.MethodGet, query, nil)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, WrapError(ErrCodeStorage, fmt.Sprintf("decode %s", t.table), err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (t *remoteTable[T]) Insert(ctx context.Context, record T) error {
	_, err := t.do(ctx, http.MethodPost, nil, record)
	return err
}

func (t *remoteTable[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	_, err := t.do(ctx, http.MethodPatch, query, fields)
	return err
}

func (t *remoteTable[T]) Delete(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	_, err := t.do(ctx, http.MethodDelete, query, nil)
	return err
}

func (t *remoteTable[T]) DeleteAll(ctx context.Context) error {
	query := url.Values{}
	query.Set("id", "neq."+clearSentinel)
	_, err := t.do(ctx, http.MethodDelete, query, nil)
	return err
}

func (t *remoteTable[T]) do(ctx context.Context, method string, query url.Values, payload any) ([]byte, error) {
	endpoint := t.baseURL + "/" + t.table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, WrapError(ErrCodeInternal, "encode payload", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "build request", err)
	}
	req.Header.Set("apikey", t.apiKey)
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, fmt.Sprintf("%s %s", method, t.table), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, WrapError(ErrCodeStorage, fmt.Sprintf("read %s response", t.table), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(ErrCodeStorage, fmt.Sprintf("%s %s: status %d: %s", method, t.table, resp.StatusCode, truncate(string(body), 200)))
	}
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
