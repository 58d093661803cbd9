package apiclient

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// loggingTransport stamps each request with an X-Request-ID, waits on the
// optional rate limiter and logs the round trip at debug level.
type loggingTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	logger  *zap.Logger
}

func newLoggingTransport(base http.RoundTripper, limiter *rate.Limiter, logger *zap.Logger) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, limiter: limiter, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	req = req.Clone(req.Context())
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	log := t.logger.With(
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", requestID),
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		log.Debug("HTTP request failed", zap.Error(err))
		return nil, err
	}

	log.Debug("HTTP request completed",
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// newLimiter returns nil when perSecond is zero, which disables limiting
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
