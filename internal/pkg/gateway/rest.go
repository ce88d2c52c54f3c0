package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"
)

const defaultTimeout = 10 * time.Second

// RESTGateway talks to a PostgREST-compatible table API, the wire surface
// most hosted backend-as-a-service providers expose.
type RESTGateway struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewREST creates a REST gateway for the given base URL.
func NewREST(baseURL, apiKey string, timeout time.Duration) *RESTGateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &RESTGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (g *RESTGateway) Select(ctx context.Context, q Query, dest interface{}) error {
	params := url.Values{}
	params.Set("select", "*")
	if err := encodeFilters(params, q.Filters); err != nil {
		return err
	}
	if len(q.OrderBy) > 0 {
		order := make([]string, 0, len(q.OrderBy))
		for _, col := range q.OrderBy {
			order = append(order, col+".asc")
		}
		params.Set("order", strings.Join(order, ","))
	}

	body, err := g.do(ctx, http.MethodGet, q.Table, params, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}

func (g *RESTGateway) Insert(ctx context.Context, table string, row Row, returned interface{}) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("gateway insert request error: %w", err)
	}

	body, err := g.do(ctx, http.MethodPost, table, nil, payload)
	if err != nil {
		return err
	}
	if returned == nil {
		return nil
	}

	// PostgREST returns the inserted rows as an array
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("gateway insert decode error: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("gateway insert returned no rows for table %s", table)
	}
	return json.Unmarshal(rows[0], returned)
}

func (g *RESTGateway) Delete(ctx context.Context, table string, filters ...Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("gateway: delete from %s without filters", table)
	}
	params := url.Values{}
	if err := encodeFilters(params, filters); err != nil {
		return err
	}
	_, err := g.do(ctx, http.MethodDelete, table, params, nil)
	return err
}

func (g *RESTGateway) Ping(ctx context.Context) error {
	_, err := g.do(ctx, http.MethodGet, "", url.Values{"limit": []string{"1"}}, nil)
	if err != nil {
		return err
	}
	return nil
}

func (g *RESTGateway) do(ctx context.Context, method, table string, params url.Values, payload []byte) ([]byte, error) {
	if strings.TrimSpace(g.baseURL) == "" {
		return nil, fmt.Errorf("gateway config error: base_url is empty")
	}

	endpoint := g.baseURL + "/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewBuffer(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("gateway request error: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}
	if g.apiKey != "" {
		req.Header.Set("apikey", g.apiKey)
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, classifyRequestError(ctx, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if readErr != nil {
			return nil, fmt.Errorf("gateway response read error: %w", readErr)
		}
		return body, nil
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", ErrConflict, strings.TrimSpace(string(body)))
	default:
		if readErr != nil {
			return nil, fmt.Errorf("gateway http error: status=%d body=<failed to read body: %v>", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("gateway http error: status=%d body=%s", resp.StatusCode, string(body))
	}
}

func encodeFilters(params url.Values, filters []Filter) error {
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			params.Set(f.Column, "eq."+encodeValue(f.Value))
		case OpIn:
			values := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				values = append(values, encodeValue(v))
			}
			params.Set(f.Column, "in.("+strings.Join(values, ",")+")")
		default:
			return fmt.Errorf("gateway: unsupported operator %q", f.Op)
		}
	}
	return nil
}

func encodeValue(v interface{}) string {
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01-02")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func classifyRequestError(ctx context.Context, err error) error {
	if isTimeoutError(ctx, err) {
		return fmt.Errorf("%w: timeout: %v", ErrUnavailable, err)
	}
	if isNetworkError(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("gateway request error: %w", err)
}

func isTimeoutError(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
