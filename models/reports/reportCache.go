package reports

import (
	"os"
	"strconv"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/sirupsen/logrus"
)

// Report caching is opt-in via ENABLE_REPORT_CACHE. Without redis the
// helpers fall through to the builder, so reports always work.

func cacheEnabled() bool {
	v := os.Getenv("ENABLE_REPORT_CACHE")
	return v == "1" || v == "true"
}

func cacheTTL() time.Duration {
	if v, err := strconv.Atoi(os.Getenv("REPORT_CACHE_TTL_SECONDS")); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return 300 * time.Second
}

func slowThreshold() time.Duration {
	if v, err := strconv.Atoi(os.Getenv("REPORT_SLOW_MS")); err == nil && v > 0 {
		return time.Duration(v) * time.Millisecond
	}
	return 2000 * time.Millisecond
}

func logSlowReport(name string, started time.Time, params any) {
	elapsed := time.Since(started)
	if elapsed < slowThreshold() {
		return
	}
	config.GetLogger().WithFields(logrus.Fields{
		"module":  "reports",
		"report":  name,
		"elapsed": elapsed.String(),
		"params":  params,
	}).Warn("slow report")
}

func cachedReport[T any](key string, build func() (*T, error)) (*T, error) {
	if cacheEnabled() {
		var cached T
		if found, err := config.GetRedisObject(key, &cached); err == nil && found {
			return &cached, nil
		}
	}
	result, err := build()
	if err != nil {
		return nil, err
	}
	if cacheEnabled() {
		_ = config.SetRedisObject(key, result, cacheTTL())
	}
	return result, nil
}
