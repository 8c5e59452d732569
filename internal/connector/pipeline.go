package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"spotbot/internal/metrics"
)

// httpVerb is one of the verbs the uniform pipeline can issue.
type httpVerb string

const (
	verbGet    httpVerb = http.MethodGet
	verbPost   httpVerb = http.MethodPost
	verbPatch  httpVerb = http.MethodPatch
	verbPut    httpVerb = http.MethodPut
	verbDelete httpVerb = http.MethodDelete
)

// signer attaches venue-specific auth headers (and, for query-signed venues
// like BITRUE, mutates the query map itself) ahead of a request.
type signer func(verb httpVerb, path string, query map[string]string, body []byte) (headers map[string]string, signedQuery map[string]string)

// pipeline is the uniform request primitive every concrete connector shares:
// build URL, sign, execute, classify the response by status code, retry
// transient classes up to RETRY_NUM, wrap the whole call in a
// TIME_OUT_PROCESS timeout. Grounded on FMFW_connector.py's `_curl` (status
// branches read in full) generalized across verbs.
type pipeline struct {
	name        string // venue name, for metric labeling
	http        *resty.Client
	retries     int
	timeout     time.Duration // TIME_OUT_PROCESS wrapper
	limiter     *rate.Limiter
	logger      *slog.Logger
}

func newPipeline(name, baseURL string, requestTimeout, processTimeout time.Duration, retries int, limiter *rate.Limiter, logger *slog.Logger) *pipeline {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout)

	return &pipeline{
		name:    name,
		http:    httpClient,
		retries: retries,
		timeout: processTimeout,
		limiter: limiter,
		logger:  logger,
	}
}

// curl performs the uniform pipeline for a single attempt chain. dst, if
// non-nil, receives the decoded JSON body on success.
func (p *pipeline) curl(ctx context.Context, verb httpVerb, path string, sign signer, query map[string]string, body []byte, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil // timed-out call returns absent, per spec §4.1
		}
	}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		headers, signedQuery := map[string]string{}, query
		if sign != nil {
			headers, signedQuery = sign(verb, path, query, body)
		}

		req := p.http.R().SetContext(ctx).SetHeaders(headers)
		if signedQuery != nil {
			req.SetQueryParams(signedQuery)
		}
		if body != nil {
			req.SetBody(body)
		}
		if dst != nil {
			req.SetResult(dst)
		}

		resp, err := req.Execute(string(verb), path)
		if err != nil {
			lastErr = err
			p.logger.Warn("request error, retrying", "path", path, "attempt", attempt, "error", err)
			metrics.ConnectorRetries.WithLabelValues(p.name, path).Inc()
			backoff(ctx, attempt)
			continue
		}

		switch class := classify(resp.StatusCode()); class {
		case classSuccess:
			return nil
		case classRetry:
			p.logger.Warn("transient status, retrying", "path", path, "status", resp.StatusCode(), "attempt", attempt)
			lastErr = fmt.Errorf("status %d", resp.StatusCode())
			metrics.ConnectorRetries.WithLabelValues(p.name, path).Inc()
			backoff(ctx, attempt)
			continue
		case classFatal:
			return fmt.Errorf("fatal status %d on %s: %s", resp.StatusCode(), path, resp.String())
		default:
			return fmt.Errorf("unexpected status %d on %s: %s", resp.StatusCode(), path, resp.String())
		}
	}

	p.logger.Warn("exhausted retries, returning absent", "path", path, "error", lastErr)
	return nil
}

// backoff waits a short, attempt-scaled delay between retries, or returns
// early if ctx (the TIME_OUT_PROCESS wrapper) is already done.
func backoff(ctx context.Context, attempt int) {
	delay := time.Duration(attempt+1) * 50 * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

type statusClass int

const (
	classSuccess statusClass = iota
	classRetry
	classFatal
	classSurface
)

// classify implements spec §4.1's status taxonomy: 200 success;
// 400/404/429/503/504 retry; 401/403/500 fatal; any other non-2xx surfaced.
func classify(status int) statusClass {
	switch {
	case status >= 200 && status < 300:
		return classSuccess
	case status == 400 || status == 404 || status == 429 || status == 503 || status == 504:
		return classRetry
	case status == 401 || status == 403 || status == 500:
		return classFatal
	default:
		return classSurface
	}
}
