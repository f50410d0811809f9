package uploadclient

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPDoer is satisfied by *http.Client and by retryDoer.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type retryDoer struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        *logrus.Logger
}

// Do retries connection failures with capped exponential backoff and full
// jitter. Gateway errors are retried only for idempotent methods, since a
// POST behind a timed out gateway has usually reached the server already.
// Context cancellation is never retried. On the last attempt the response is
// returned as is.
func (rd *retryDoer) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rd.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rd.delay(attempt)
			rd.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"method":  req.Method,
				"path":    req.URL.Path,
				"wait":    delay.String(),
			}).Warn("Retrying request")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rd.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !isIdempotent(req.Method) || !isRetryableStatus(resp.StatusCode) || attempt == rd.maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

func (rd *retryDoer) delay(attempt int) time.Duration {
	exp := float64(rd.baseDelay) * math.Pow(2, float64(attempt-1))
	if exp > float64(rd.maxDelay) {
		exp = float64(rd.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * exp)
	if floor := rd.baseDelay / 10; jittered < floor {
		jittered = floor
	}
	return jittered
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
