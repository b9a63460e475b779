package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tillsync/internal/apierror"
)

// pinEntry tracks login attempts per client within a sliding window.
type pinEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

var (
	pinMap   = make(map[string]*pinEntry)
	pinMapMu sync.Mutex
)

// LoginRateLimiter limits PIN attempts to 10 per minute per client. A
// four-digit PIN space is small; brute forcing it at the register must be
// slower than calling a manager over.
func LoginRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		pinMapMu.Lock()
		entry, exists := pinMap[ip]
		if !exists {
			entry = &pinEntry{}
			pinMap[ip] = entry
		}
		pinMapMu.Unlock()

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(time.Minute)
		}

		entry.count++
		if entry.count > 10 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many PIN attempts, try again in a minute"))
			return
		}
		c.Next()
	}
}

const purgeInterval = 5 * time.Minute

func init() {
	go purgeExpiredEntries()
}

// purgeExpiredEntries drops expired windows so clients that never return do
// not accumulate forever.
func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		pinMapMu.Lock()
		purged := 0
		for ip, entry := range pinMap {
			entry.mu.Lock()
			if now.After(entry.windowEnd) {
				delete(pinMap, ip)
				purged++
			}
			entry.mu.Unlock()
		}
		pinMapMu.Unlock()

		if purged > 0 {
			log.Debug().
				Int("purged", purged).
				Int("remaining", len(pinMap)).
				Msg("login rate limiter map purged")
		}
	}
}
