package convert

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	gotenbergRoute = "/forms/libreoffice/convert"

	// Gotenberg names its response after this header, without extension.
	headerOutputFilename = "Gotenberg-Output-Filename"
)

// GotenbergConverter posts documents to a Gotenberg instance.
type GotenbergConverter struct {
	endpoint string
	client   *http.Client
}

func NewGotenberg(baseURL string, timeout time.Duration) (*GotenbergConverter, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gotenberg url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GotenbergConverter{
		endpoint: u.String() + gotenbergRoute,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// ToPDF streams r to Gotenberg as the single "files" part. The trace context
// of ctx travels with the request so conversions show up under the caller's
// span.
func (g *GotenbergConverter) ToPDF(ctx context.Context, name string, r io.Reader) (io.ReadCloser, error) {
	filename := path.Base(name)
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, filename, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(headerOutputFilename, strings.TrimSuffix(filename, path.Ext(filename)))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, failed("gotenberg request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, failed("gotenberg returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp.Body, nil
}

func writeForm(mw *multipart.Writer, filename string, r io.Reader) error {
	part, err := mw.CreateFormFile("files", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to stream document: %w", err)
	}
	return mw.Close()
}
