package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
)

type Options struct {
	// BaseURL is the PostgREST root, ending in /rest/v1 for Supabase.
	BaseURL string
	APIKey  string
	Table   string
	Timeout time.Duration

	HTTPClient *http.Client
}

// Client stores prediction records through a PostgREST-compatible API such
// as Supabase.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	table      string
	timeout    time.Duration
	httpClient *http.Client
}

func New(log *logger.Logger, opts Options) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	table := strings.TrimSpace(opts.Table)
	if table == "" {
		table = student.Record{}.TableName()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		log:        log.With("service", "RESTStore", "table", table),
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		table:      table,
		timeout:    timeout,
		httpClient: hc,
	}, nil
}

func (c *Client) Insert(ctx context.Context, row *student.Record) (*student.Record, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	rows, err := c.do(ctx, http.MethodPost, nil, row)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return row, nil
	}
	return rows[0], nil
}

func (c *Client) Update(ctx context.Context, row *student.Record) (*student.Record, error) {
	row.UpdatedAt = time.Now().UTC()
	body, err := updateBody(row)
	if err != nil {
		return nil, err
	}
	q := url.Values{"id": {"eq." + row.ID.String()}}
	rows, err := c.do(ctx, http.MethodPatch, q, body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, student.ErrRecordNotFound
	}
	return rows[0], nil
}

func (c *Client) Get(ctx context.Context, id uuid.UUID) (*student.Record, error) {
	q := url.Values{"select": {"*"}, "id": {"eq." + id.String()}, "limit": {"1"}}
	rows, err := c.do(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, student.ErrRecordNotFound
	}
	return rows[0], nil
}

func (c *Client) List(ctx context.Context) ([]*student.Record, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.desc,id.asc"}}
	return c.do(ctx, http.MethodGet, q, nil)
}

func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	_, err := c.do(ctx, http.MethodGet, q, nil)
	return err
}

// updateBody drops id and created_at so an update never rewrites them.
func updateBody(row *student.Record) (map[string]any, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	delete(m, "id")
	delete(m, "created_at")
	return m, nil
}

func (c *Client) do(ctx context.Context, method string, q url.Values, body any) ([]*student.Record, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + url.PathEscape(c.table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx2, method, u, &buf)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, method)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, c.table, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseHTTPError(resp.StatusCode, raw)
	}
	c.log.Debug("rest call", "method", method, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var maps []map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&maps); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", c.table, err)
	}
	out := make([]*student.Record, 0, len(maps))
	skipped := 0
	for _, m := range maps {
		rec, err := student.RecordFromMap(m)
		if errors.Is(err, student.ErrInvalidID) {
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s row: %w", c.table, err)
		}
		out = append(out, &rec)
	}
	if skipped > 0 {
		c.log.Warn("skipped rows without a uuid id; the table needs the migrated schema", "skipped", skipped, "kept", len(out))
	}
	return out, nil
}

func (c *Client) setHeaders(req *http.Request, method string) {
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
