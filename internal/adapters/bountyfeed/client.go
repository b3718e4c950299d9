package bountyfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bounty-webhooks/internal/domain/bounties"
	"bounty-webhooks/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("bounty feed not configured")
	ErrUpstream      = errors.New("bounty feed upstream error")
	ErrMalformed     = errors.New("bounty feed malformed response")
)

const bountiesPath = "/bounties"

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	http *httpclient.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hc, err := httpclient.NewWithBaseURL(cfg.BaseURL, timeout)
	if err != nil {
		return nil, err
	}
	hc.UserAgent = cfg.UserAgent

	return &Client{http: hc}, nil
}

// Fetch trae GET <base>/bounties. Cualquier registro inválido invalida la respuesta
// entera: un ciclo nunca procesa un feed parcial.
func (c *Client) Fetch(ctx context.Context) ([]bounties.Record, error) {
	var items []json.RawMessage
	err := c.http.DoJSON(ctx, http.MethodGet, bountiesPath, nil, nil, &items)
	switch {
	case errors.Is(err, httpclient.ErrDecode):
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	case httpclient.StatusCode(err) != 0:
		return nil, fmt.Errorf("%w: status=%d", ErrUpstream, httpclient.StatusCode(err))
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	// body vacío o "null": DoJSON no decodifica nada
	if items == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformed)
	}

	out := make([]bounties.Record, 0, len(items))
	for i, item := range items {
		rec, err := bounties.ParseRecord(item)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
