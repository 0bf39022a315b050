package jenkins_http

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davarch/remote-trigger/internal/domain"
	"go.uber.org/zap"
)

type Client struct {
	log        *zap.Logger
	cred       domain.Credential
	retryLimit int
	hc         *http.Client
}

// New builds a client for one trigger step. retryLimit is the total number
// of attempts a call gets; values below 1 mean a single attempt.
func New(log *zap.Logger, cred domain.Credential, retryLimit int, connectTimeout time.Duration) *Client {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		log:        log,
		cred:       cred,
		retryLimit: retryLimit,
		hc:         &http.Client{Transport: tr},
	}
}

// Factory adapts New to domain.ExecutorFactory.
func Factory(log *zap.Logger, connectTimeout time.Duration) domain.ExecutorFactory {
	return func(cred domain.Credential, retryLimit int) domain.RemoteExecutor {
		return New(log, cred, retryLimit, connectTimeout)
	}
}

// Send performs method on url. An empty body yields (nil, nil) without a
// retry. Transport failures are retried immediately up to the retry limit.
func (c *Client) Send(ctx context.Context, method, url string) (*domain.Payload, error) {
	var out *domain.Payload

	op := func() error {
		payload, err := c.do(ctx, method, url)
		if err != nil {
			return err
		}
		out = payload
		return nil
	}

	attempts := c.retryLimit
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(attempts-1)), ctx)

	attempt := 0
	notify := func(err error, _ time.Duration) {
		attempt++
		c.log.Warn("connection to remote server failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("limit", attempts),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		switch {
		case errors.Is(err, domain.ErrParse):
			return nil, err
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %v", domain.ErrInterrupted, ctx.Err())
		default:
			return nil, fmt.Errorf("%w after %d attempt(s): %v", domain.ErrTransport, attempts, err)
		}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, url string) (*domain.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if !c.cred.Anonymous() {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.cred.String())))
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, resp.Status)
	}

	if len(body) == 0 {
		c.log.Info("remote server returned empty response", zap.String("method", method))
		return nil, nil
	}

	payload, err := domain.ParsePayload(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return payload, nil
}

// statusError describes a failed response without echoing the body, which
// may contain server internals.
func statusError(code int, status string) error {
	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("remote server %s: authentication failed", status)
	case http.StatusForbidden:
		return fmt.Errorf("remote server %s: access denied", status)
	case http.StatusNotFound:
		return fmt.Errorf("remote server %s: resource not found", status)
	default:
		return fmt.Errorf("remote server %s", status)
	}
}
