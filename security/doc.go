// Package security holds the request hardening shared by the OAuth
// endpoints and the resource gateway: per-IP rate limiting with LRU
// eviction, client IP extraction behind trusted proxies, and the
// security headers every response carries.
//
// Typical wiring:
//
//	limiter := security.NewRateLimiter(10, 20, logger)
//	defer limiter.Stop()
//
//	ip := security.GetClientIP(r, cfg.TrustProxy, cfg.TrustedProxyCount)
//	if !limiter.Allow(ip) {
//		// 429
//	}
package security
