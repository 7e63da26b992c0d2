package convert

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/chmc/wbms-api/internal/config"
	"github.com/chmc/wbms-api/pkg/circuitbreaker"
	"github.com/chmc/wbms-api/pkg/metrics"
)

type fakeConverter struct {
	calls int32
	fn    func(name string, src []byte) ([]byte, error)
}

func (f *fakeConverter) ToPDF(_ context.Context, name string, r io.Reader) (io.ReadCloser, error) {
	atomic.AddInt32(&f.calls, 1)
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	out, err := f.fn(name, src)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(out))), nil
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestGotenbergConvert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, gotenbergRoute, r.URL.Path)

		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "Cruz, Juan D..docx", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "docx-bytes", string(data))
		assert.Equal(t, "Cruz, Juan D.", r.Header.Get(headerOutputFilename))
		assert.Equal(t, "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01", r.Header.Get("traceparent"))

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	g, err := NewGotenberg(srv.URL+"/", time.Second)
	require.NoError(t, err)

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)
	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	rc, err := g.ToPDF(ctx, "examination_documents/edited/Cruz, Juan D..docx", strings.NewReader("docx-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", readAll(t, rc))
}

func TestGotenbergErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "libreoffice crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g, err := NewGotenberg(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = g.ToPDF(context.Background(), "a.docx", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestNewGotenbergRejectsBadURL(t *testing.T) {
	_, err := NewGotenberg("not a url", time.Second)
	assert.Error(t, err)
}

func TestSofficeConvert(t *testing.T) {
	s, err := NewSoffice("soffice", 1, time.Second)
	require.NoError(t, err)

	var gotArgs []string
	s.run = func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotArgs = args
		input := args[len(args)-1]
		outdir := args[len(args)-2]
		src, err := os.ReadFile(input)
		require.NoError(t, err)
		pdf := filepath.Join(outdir, strings.TrimSuffix(filepath.Base(input), ".docx")+".pdf")
		return nil, os.WriteFile(pdf, append([]byte("PDF:"), src...), 0o600)
	}

	rc, err := s.ToPDF(context.Background(), "edited/report.docx", strings.NewReader("body"))
	require.NoError(t, err)
	assert.Equal(t, "PDF:body", readAll(t, rc))
	assert.Contains(t, gotArgs, "--headless")
	assert.Contains(t, gotArgs, "pdf")
}

func TestSofficeFailure(t *testing.T) {
	s, err := NewSoffice("soffice", 1, time.Second)
	require.NoError(t, err)
	s.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("source file could not be loaded"), errors.New("exit status 1")
	}

	_, err = s.ToPDF(context.Background(), "report.docx", strings.NewReader("body"))
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "could not be loaded")
}

func TestSofficeBoundsConcurrency(t *testing.T) {
	s, err := NewSoffice("soffice", 2, time.Second)
	require.NoError(t, err)

	var running, peak int32
	s.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		input := args[len(args)-1]
		return nil, os.WriteFile(strings.TrimSuffix(input, ".docx")+".pdf", []byte("ok"), 0o600)
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc, err := s.ToPDF(context.Background(), "doc.docx", strings.NewReader("x"))
			if assert.NoError(t, err) {
				rc.Close()
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestSofficeHonoursContextWhileWaiting(t *testing.T) {
	s, err := NewSoffice("soffice", 1, time.Second)
	require.NoError(t, err)
	s.sem <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.ToPDF(ctx, "doc.docx", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuardedOpensBreaker(t *testing.T) {
	backend := &fakeConverter{fn: func(string, []byte) ([]byte, error) {
		return nil, errors.New("connection refused")
	}}
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: "test", MaxFailures: 2, Timeout: time.Hour})
	g := NewGuarded(backend, BackendGotenberg, breaker, metrics.NewNop())

	for i := 0; i < 2; i++ {
		_, err := g.ToPDF(context.Background(), "a.docx", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrConversionFailed)
	}
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, err := g.ToPDF(context.Background(), "a.docx", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&backend.calls))
}

func TestCachedServesRepeatConversions(t *testing.T) {
	backend := &fakeConverter{fn: func(_ string, src []byte) ([]byte, error) {
		return append([]byte("PDF:"), src...), nil
	}}
	c := NewCached(backend, time.Minute, metrics.NewNop())

	for i := 0; i < 3; i++ {
		rc, err := c.ToPDF(context.Background(), "a.docx", strings.NewReader("same"))
		require.NoError(t, err)
		assert.Equal(t, "PDF:same", readAll(t, rc))
	}
	rc, err := c.ToPDF(context.Background(), "a.docx", strings.NewReader("other"))
	require.NoError(t, err)
	assert.Equal(t, "PDF:other", readAll(t, rc))

	assert.Equal(t, int32(2), atomic.LoadInt32(&backend.calls))
	assert.Equal(t, 2, c.Len())
}

func TestNewSelectsBackend(t *testing.T) {
	conv, err := New(config.ConverterConfig{Backend: BackendSoffice, CacheTTL: time.Minute}, metrics.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, conv)

	conv, err = New(config.ConverterConfig{GotenbergURL: "http://gotenberg:3000"}, metrics.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Guarded{}, conv)

	_, err = New(config.ConverterConfig{Backend: "pandoc"}, metrics.NewNop())
	assert.Error(t, err)
}
