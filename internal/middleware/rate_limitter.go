package middleware

import (
	"net/http"
	"sync"

	"AirlineETL/pkg/log"
	"AirlineETL/pkg/response"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

type rateLimiter struct {
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
	mutex     *sync.Mutex
}

func newRateLimiter(reqRate rate.Limit, burstSize int) *rateLimiter {
	return &rateLimiter{
		bucket:    make(map[string]*rate.Limiter),
		rate:      reqRate,
		burstSize: burstSize,
		mutex:     &sync.Mutex{},
	}
}

func (r *rateLimiter) GetLimiterFrom(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exist := r.bucket[ip]; !exist {
		r.bucket[ip] = rate.NewLimiter(r.rate, r.burstSize)
	}

	return r.bucket[ip]
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	return m.limit(ctx, m.rateLimitter)
}

func (m *middleware) NewUploadRateLimiter(ctx *fiber.Ctx) error {
	return m.limit(ctx, m.uploadLimiter)
}

func (m *middleware) limit(ctx *fiber.Ctx, limiter *rateLimiter) error {
	clientIP := ctx.IP()

	if !limiter.GetLimiterFrom(clientIP).Allow() {
		m.log.WithFields(log.Fields{
			"request_id": m.GetRequestID(ctx),
			"ip":         clientIP,
			"path":       ctx.Path(),
		}).Warn("too many requests")
		return ctx.Status(fiber.StatusTooManyRequests).JSON(response.Body{
			Error: ErrTooManyRequests.Error(),
			Code:  "TOO_MANY_REQUESTS",
		})
	}

	return ctx.Next()
}
