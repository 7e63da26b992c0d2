// Package convert turns edited .docx documents into PDF.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chmc/wbms-api/internal/config"
	"github.com/chmc/wbms-api/pkg/circuitbreaker"
	"github.com/chmc/wbms-api/pkg/metrics"
)

const (
	BackendGotenberg = "gotenberg"
	BackendSoffice   = "soffice"
)

var ErrConversionFailed = errors.New("document conversion failed")

// Converter renders a word document to PDF. name is used for the upload
// file name and must carry the source extension.
type Converter interface {
	ToPDF(ctx context.Context, name string, r io.Reader) (io.ReadCloser, error)
}

// New builds the configured backend guarded by a circuit breaker and an
// in-process cache.
func New(cfg config.ConverterConfig, m *metrics.Metrics) (Converter, error) {
	var (
		backend Converter
		err     error
	)
	switch cfg.Backend {
	case "", BackendGotenberg:
		backend, err = NewGotenberg(cfg.GotenbergURL, cfg.Timeout)
	case BackendSoffice:
		backend, err = NewSoffice(cfg.SofficePath, cfg.MaxConcurrent, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown converter backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendGotenberg
	}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:    "converter-" + cfg.Backend,
		Timeout: 30 * time.Second,
	})
	guarded := NewGuarded(backend, cfg.Backend, breaker, m)
	if cfg.CacheTTL <= 0 {
		return guarded, nil
	}
	return NewCached(guarded, cfg.CacheTTL, m), nil
}

func failed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConversionFailed, fmt.Sprintf(format, args...))
}
