// Package gateway is a typed client of the laundry-booking REST API.
// Every method is a single round trip; nothing is retried here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"laundrmate/internal/config"
	"laundrmate/internal/domain"
	"laundrmate/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

// Client calls the backend on behalf of the current session.
type Client struct {
	baseURL    string
	authScheme string
	httpClient *http.Client
	session    domain.SessionReader
	limiter    *rate.Limiter
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

var (
	_ domain.BookingGateway = (*Client)(nil)
	_ domain.LaundryGateway = (*Client)(nil)
)

// NewClient constructs a client from the api config section.
func NewClient(cfg config.APIConfig, session domain.SessionReader, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authScheme: cfg.AuthScheme,
		httpClient: &http.Client{Timeout: timeout},
		session:    session,
		logger:     logger,
	}
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 5
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}
	return c
}

// UseRedisCache configures optional Redis caching for the public laundry list.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseHTTPClient replaces the transport, e.g. to share one across clients.
func (c *Client) UseHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

type request struct {
	op     string
	method string
	path   string
	body   any
	// auth requires a session and sends its credential.
	auth bool
	// statusChange maps 4xx rejections to ErrInvalidTransition.
	statusChange bool
}

func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	start := time.Now()
	requestID := uuid.NewString()
	defer func() {
		metrics.ObserveRequest(r.op, err, time.Since(start))
		ev := c.logger.Debug()
		if err != nil {
			ev = c.logger.Warn().Err(err)
		}
		ev.Str("op", r.op).Str("method", r.method).Str("path", r.path).
			Str("request_id", requestID).Dur("took", time.Since(start)).Msg("api call")
	}()

	var token string
	if r.auth {
		s := c.session.Current()
		if s == nil || s.Token == "" {
			return domain.Authf("%s: no active session", r.op)
		}
		token = s.Token
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w: %w", r.op, domain.ErrNetwork, err)
		}
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode payload: %w", r.op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", r.op, domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", c.authorization(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", r.op, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.NewAPIError(r.op, resp.StatusCode, errorMessage(resp.Body), r.statusChange)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty 2xx body: success without a record.
			return nil
		}
		return fmt.Errorf("%s: %w: decode response: %w", r.op, domain.ErrNetwork, err)
	}
	return nil
}

func (c *Client) authorization(token string) string {
	switch strings.ToLower(c.authScheme) {
	case "", "none", "raw":
		return token
	}
	return c.authScheme + " " + token
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var wrap struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &wrap) == nil {
		if wrap.Message != "" {
			return wrap.Message
		}
		return wrap.Error
	}
	return strings.TrimSpace(string(data))
}

// listEnvelope accepts a bare JSON array or an object wrapping one.
// Anything else decodes to an empty list.
type listEnvelope[T any] struct {
	Items []T
}

func (l *listEnvelope[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '[':
		return json.Unmarshal(trimmed, &l.Items)
	case '{':
		var wrap map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrap); err != nil {
			return err
		}
		for _, key := range []string{"data", "items", "bookings", "laundries", "rows"} {
			if raw, ok := wrap[key]; ok && len(bytes.TrimSpace(raw)) > 0 && bytes.TrimSpace(raw)[0] == '[' {
				return json.Unmarshal(raw, &l.Items)
			}
		}
	}
	return nil
}
