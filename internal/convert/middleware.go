package convert

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/pkg/circuitbreaker"
	"github.com/chmc/wbms-api/pkg/metrics"
)

// Guarded runs a backend behind a circuit breaker and records durations.
// The PDF is read fully inside the breaker so mid-stream failures count.
type Guarded struct {
	next    Converter
	backend string
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func NewGuarded(next Converter, backend string, breaker *circuitbreaker.CircuitBreaker, m *metrics.Metrics) *Guarded {
	return &Guarded{next: next, backend: backend, breaker: breaker, metrics: m}
}

func (g *Guarded) ToPDF(ctx context.Context, name string, r io.Reader) (io.ReadCloser, error) {
	start := time.Now()
	var pdf []byte
	err := g.breaker.Execute(func() error {
		rc, err := g.next.ToPDF(ctx, name, r)
		if err != nil {
			return err
		}
		defer rc.Close()
		pdf, err = io.ReadAll(rc)
		if err != nil {
			return failed("reading converted output: %v", err)
		}
		return nil
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	if g.metrics != nil {
		g.metrics.ConversionDuration.With(prometheus.Labels{"backend": g.backend, "status": status}).
			Observe(time.Since(start).Seconds())
	}

	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, failed("%s backend unavailable: %v", g.backend, err)
	}
	if err != nil {
		log.Error().Err(err).Str("backend", g.backend).Str("document", name).Msg("PDF conversion failed")
		if !errors.Is(err, ErrConversionFailed) {
			return nil, failed("%v", err)
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(pdf)), nil
}

// Cached memoises conversions keyed by the SHA-256 of the source bytes.
type Cached struct {
	next    Converter
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewCached(next Converter, ttl time.Duration, m *metrics.Metrics) *Cached {
	return &Cached{
		next:    next,
		cache:   cache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func (c *Cached) ToPDF(ctx context.Context, name string, r io.Reader) (io.ReadCloser, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, failed("reading source document: %v", err)
	}
	sum := sha256.Sum256(src)
	key := hex.EncodeToString(sum[:])

	if cached, found := c.cache.Get(key); found {
		if c.metrics != nil {
			c.metrics.ConversionCacheHits.Inc()
		}
		return io.NopCloser(bytes.NewReader(cached.([]byte))), nil
	}

	rc, err := c.next.ToPDF(ctx, name, bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	pdf, err := io.ReadAll(rc)
	if err != nil {
		return nil, failed("reading converted output: %v", err)
	}
	c.cache.Set(key, pdf, cache.DefaultExpiration)
	return io.NopCloser(bytes.NewReader(pdf)), nil
}

// Len reports the number of cached conversions.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}
