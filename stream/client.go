/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Client posts transcripts to an answering service.
type Client struct {
	endpoint string
	http     *http.Client
	logger   zerolog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient targets AskPath under baseURL. The default HTTP client has no
// timeout, since a model may take arbitrarily long to finish a turn.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse answering service url")
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, errors.Errorf("answering service url must be absolute http(s): %q", baseURL)
	}

	c := &Client{
		endpoint: strings.TrimSuffix(u.String(), "/") + AskPath,
		http:     &http.Client{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Open sends the history and returns a Reader over the streamed reply. The
// caller must Close the Reader.
func (c *Client) Open(ctx context.Context, history []Message) (*Reader, error) {
	if history == nil {
		history = []Message{}
	}

	body, err := json.Marshal(AskRequest{History: history})
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	c.logger.Debug().
		Str("component", "stream").
		Str("endpoint", c.endpoint).
		Int("history", len(history)).
		Msg("sending transcript")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "post transcript")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	return NewReader(resp.Body, c.logger), nil
}
