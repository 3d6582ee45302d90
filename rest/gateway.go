// Package rest implements the HTTP gateway to the blog API: request building,
// auth header injection, envelope unwrapping, and typed error mapping.
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/jackblog/blogkit/config"
	"github.com/jackblog/blogkit/errs"
	"github.com/jackblog/blogkit/schema"
)

// Error bodies are bounded so a misbehaving server cannot balloon memory.
const maxErrorBody = 4 << 10

// Gateway is a thin, uniform client for the blog REST API. It never retries;
// retry policy belongs to the caller.
type Gateway struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewGateway builds a gateway from settings. A nil client gets a default one
// honouring the configured timeout.
func NewGateway(cfg config.Settings, client *http.Client) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	g := &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
	if cfg.RequestRate > 0 {
		burst := cfg.RequestBurst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestRate), burst)
	}
	return g
}

func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, body any, token string, out any) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle request: %w", err)
		}
	}

	endpoint := g.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return errs.New("rest", errs.CodeNetwork,
			errs.WithMessage(fmt.Sprintf("%s %s failed", method, path)),
			errs.WithCause(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		var envelope schema.Envelope
		if json.Unmarshal(raw, &envelope) == nil && strings.TrimSpace(envelope.Message) != "" {
			message = envelope.Message
		}
		return errs.FromStatus("rest", resp.StatusCode, message)
	}

	var envelope schema.Envelope
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(&envelope); err != nil {
		if err == io.EOF && out == nil {
			return nil
		}
		return errs.New("rest", errs.CodeDecode,
			errs.WithHTTP(resp.StatusCode),
			errs.WithMessage(fmt.Sprintf("decode %s %s response", method, path)),
			errs.WithCause(err))
	}
	if !envelope.Success {
		message := envelope.Message
		if strings.TrimSpace(message) == "" {
			message = "request failed"
		}
		return errs.New("rest", errs.CodeServer,
			errs.WithHTTP(resp.StatusCode),
			errs.WithMessage(message))
	}
	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errs.New("rest", errs.CodeDecode,
			errs.WithHTTP(resp.StatusCode),
			errs.WithMessage(fmt.Sprintf("decode %s %s payload", method, path)),
			errs.WithCause(err))
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
