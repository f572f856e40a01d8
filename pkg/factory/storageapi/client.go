package storageapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	tokendata "github.com/solana-token-factory/factory/pkg/factory/data/token"
	"github.com/solana-token-factory/factory/pkg/metrics"
	"github.com/solana-token-factory/factory/pkg/retry"
	"github.com/solana-token-factory/factory/pkg/retry/backoff"
)

const (
	metricsStructName = "factory.storageapi.client"

	tokensPath       = "/api/tokens"
	tokensCountPath  = tokensPath + "/count"
	promoCodesPath   = "/api/promoCodes"
	usePromoCodePath = promoCodesPath + "/use"

	maxBackoff = 10 * time.Second
)

var (
	ErrRequestFailed = errors.New("storage api request failed")
)

// StatusError is returned when the storage API responds with a non-200 status
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if len(e.Message) == 0 {
		return fmt.Sprintf("received non-200 status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("received non-200 status code: %d: %s", e.StatusCode, e.Message)
}

// isRetriable reports whether a failed request may succeed when sent again
func isRetriable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}

	// Transport errors
	return true
}

// Client talks to the storage API server. It provides promo codes to the
// promo service and records created tokens.
type Client struct {
	log        *logrus.Entry
	baseUrl    string
	httpClient *http.Client
	retrier    retry.Retrier
}

func NewClient(configProvider ConfigProvider) *Client {
	conf := configProvider()
	ctx := context.Background()

	return &Client{
		log:     logrus.StandardLogger().WithField("type", "factory/storageapi"),
		baseUrl: strings.TrimSuffix(conf.baseUrl.Get(ctx), "/"),
		httpClient: &http.Client{
			Timeout: conf.requestTimeout.Get(ctx),
		},
		retrier: retry.NewRetrier(
			retry.RetriableFunc(isRetriable),
			retry.Limit(uint(conf.maxAttempts.Get(ctx))),
			retry.BackoffWithJitter(backoff.BinaryExponential(conf.baseBackoff.Get(ctx)), maxBackoff, 0.1),
		),
	}
}

// SaveToken upserts a token record
func (c *Client) SaveToken(ctx context.Context, record *tokendata.Record) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SaveToken")
	defer tracer.End()

	if err := record.Validate(); err != nil {
		tracer.OnError(err)
		return err
	}

	var resp apiResponse
	err := c.do(ctx, http.MethodPost, tokensPath, newSaveTokenBody(record), &resp)
	if err != nil {
		tracer.OnError(err)
		return err
	}
	return nil
}

// GetRecentTokens returns up to limit of the most recently created tokens.
// Display fields are HTML escaped by the server.
func (c *Client) GetRecentTokens(ctx context.Context, limit uint64) ([]*tokendata.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetRecentTokens")
	defer tracer.End()

	query := url.Values{}
	query.Set("limit", strconv.FormatUint(limit, 10))

	var resp tokensResponse
	err := c.do(ctx, http.MethodGet, tokensPath+"?"+query.Encode(), nil, &resp)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	res := make([]*tokendata.Record, len(resp.Tokens))
	for i, token := range resp.Tokens {
		res[i] = token.toRecord()
	}
	return res, nil
}

// CountTokens returns the total number of recorded tokens
func (c *Client) CountTokens(ctx context.Context) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CountTokens")
	defer tracer.End()

	var resp countResponse
	err := c.do(ctx, http.MethodGet, tokensCountPath, nil, &resp)
	if err != nil {
		tracer.OnError(err)
		return 0, err
	}
	return resp.Count, nil
}

// GetUsable implements promo.Source.GetUsable
func (c *Client) GetUsable(ctx context.Context, code string) (*promodata.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetUsable")
	defer tracer.End()

	query := url.Values{}
	query.Set("code", code)

	var resp promoCodesResponse
	err := c.do(ctx, http.MethodGet, promoCodesPath+"?"+query.Encode(), nil, &resp)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	if !resp.Success || len(resp.PromoCodes) == 0 {
		return nil, promodata.ErrPromoNotFound
	}
	return resp.PromoCodes[0].toRecord(), nil
}

// GetAllUsable implements promo.Source.GetAllUsable
func (c *Client) GetAllUsable(ctx context.Context) ([]*promodata.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetAllUsable")
	defer tracer.End()

	var resp promoCodesResponse
	err := c.do(ctx, http.MethodGet, promoCodesPath, nil, &resp)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	res := make([]*promodata.Record, len(resp.PromoCodes))
	for i, view := range resp.PromoCodes {
		res[i] = view.toRecord()
	}
	return res, nil
}

// MarkUsed implements promo.Source.MarkUsed
func (c *Client) MarkUsed(ctx context.Context, code string) (*uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "MarkUsed")
	defer tracer.End()

	var resp usePromoCodeResponse
	err := c.do(ctx, http.MethodPost, usePromoCodePath, &usePromoCodeBody{Code: code}, &resp)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
		err = toPromoError(statusErr)
	}
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	return resp.RemainingUses, nil
}

func toPromoError(err *StatusError) error {
	message := strings.ToLower(err.Message)
	switch {
	case strings.Contains(message, "expired"):
		return promodata.ErrPromoExpired
	case strings.Contains(message, "maximum uses"):
		return promodata.ErrPromoMaxUsesReached
	case strings.Contains(message, "invalid"):
		return promodata.ErrPromoNotFound
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, resp interface{}) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
	}

	log := c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	})

	attempts, err := c.retrier.Retry(ctx, func() error {
		return c.doOnce(ctx, method, path, encoded, resp)
	})
	if err != nil {
		log.WithError(err).WithField("attempts", attempts).Warn("storage api request failed")
		return errors.Wrapf(err, "%s %s", method, path)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, resp interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(ErrRequestFailed, err.Error())
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if httpResp.StatusCode != http.StatusOK {
		var failure apiResponse
		_ = json.Unmarshal(respBody, &failure)
		return &StatusError{
			StatusCode: httpResp.StatusCode,
			Message:    failure.Error,
		}
	}

	if err := json.Unmarshal(respBody, resp); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
