package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

type runFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

// SofficeConverter shells out to a local LibreOffice. Each call gets its own
// profile directory and at most maxConcurrent processes run at once.
type SofficeConverter struct {
	binary  string
	timeout time.Duration
	sem     chan struct{}
	run     runFunc
}

func NewSoffice(binary string, maxConcurrent int, timeout time.Duration) (*SofficeConverter, error) {
	if binary == "" {
		binary = "soffice"
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SofficeConverter{
		binary:  binary,
		timeout: timeout,
		sem:     make(chan struct{}, maxConcurrent),
		run:     runCommand,
	}, nil
}

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput()
}

func (s *SofficeConverter) ToPDF(ctx context.Context, name string, r io.Reader) (io.ReadCloser, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "wbms-convert-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	base := filepath.Base(name)
	if filepath.Ext(base) == "" {
		base += ".docx"
	}
	input := filepath.Join(dir, base)
	f, err := os.Create(input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close input file: %w", err)
	}

	out, err := s.run(ctx, s.binary,
		"--headless", "--norestore",
		"-env:UserInstallation=file://"+filepath.ToSlash(filepath.Join(dir, "profile")),
		"--convert-to", "pdf",
		"--outdir", dir,
		input,
	)
	if err != nil {
		return nil, failed("soffice: %v: %s", err, strings.TrimSpace(string(out)))
	}

	pdf, err := os.ReadFile(filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf"))
	if err != nil {
		return nil, failed("soffice produced no output: %v", err)
	}
	return io.NopCloser(bytes.NewReader(pdf)), nil
}
