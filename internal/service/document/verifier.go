package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/convert"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/internal/storage"
	"github.com/chmc/wbms-api/pkg/metrics"
)

var (
	ErrDocumentNotFound = errors.New("document not found for code")
	ErrNoEditedVersion  = errors.New("document has no edited version")
)

// Verifier authenticates presented unique codes and renders the edited
// document they point at.
type Verifier struct {
	repos     repository.Repositories
	resolver  *Resolver
	codes     Codes
	store     storage.Store
	converter convert.Converter
	metrics   *metrics.Metrics
}

func NewVerifier(repos repository.Repositories, codes Codes, store storage.Store, converter convert.Converter, m *metrics.Metrics) *Verifier {
	return &Verifier{
		repos:     repos,
		resolver:  NewResolver(repos),
		codes:     codes,
		store:     store,
		converter: converter,
		metrics:   m,
	}
}

// Lookup finds the examination whose code equals code exactly. Persisted codes
// are tried first, then the live code of every examination generated before
// codes were stored.
func (v *Verifier) Lookup(ctx context.Context, code string) (*model.Examination, error) {
	if _, err := v.codes.Parse(code); err != nil {
		return nil, err
	}

	exam, err := v.repos.Examinations.FindByUniqueCode(ctx, code)
	switch {
	case err == nil:
		if err := v.resolver.Resolve(ctx, exam); err != nil {
			return nil, err
		}
		return exam, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to look up code: %w", err)
	}

	legacy, err := v.repos.Examinations.ListWithoutUniqueCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy examinations: %w", err)
	}
	if err := v.resolver.Resolve(ctx, legacy...); err != nil {
		return nil, err
	}
	for _, e := range legacy {
		if v.codes.Code(e.FileNumber, e.Patient.FullNameWithMiddleInitial(), e.Doctor.FullNameWithMiddleInitial()) == code {
			return e, nil
		}
	}
	return nil, ErrDocumentNotFound
}

// Verify resolves code and returns the edited document rendered as PDF. The
// caller closes the reader.
func (v *Verifier) Verify(ctx context.Context, code string) (*model.Examination, io.ReadCloser, error) {
	exam, err := v.Lookup(ctx, code)
	if err != nil {
		v.record(err)
		return nil, nil, err
	}
	pdf, err := v.RenderEdited(ctx, exam)
	if err != nil {
		v.record(err)
		return nil, nil, err
	}
	v.record(nil)
	log.Info().Int64("examination_id", exam.ID).Msg("document verified")
	return exam, pdf, nil
}

// RenderEdited converts the edited document of exam to PDF.
func (v *Verifier) RenderEdited(ctx context.Context, exam *model.Examination) (io.ReadCloser, error) {
	if !exam.HasEditedDocument() {
		return nil, ErrNoEditedVersion
	}
	src, err := v.store.Open(ctx, *exam.EditedDocumentPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoEditedVersion
		}
		return nil, fmt.Errorf("failed to open edited document: %w", err)
	}
	defer src.Close()

	pdf, err := v.converter.ToPDF(ctx, path.Base(*exam.EditedDocumentPath), src)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

func (v *Verifier) record(err error) {
	result := "verified"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidCodeFormat), errors.Is(err, ErrInvalidCodePrefix):
		result = "malformed"
	case errors.Is(err, ErrDocumentNotFound):
		result = "not_found"
	case errors.Is(err, ErrNoEditedVersion):
		result = "no_edited_version"
	case errors.Is(err, convert.ErrConversionFailed):
		result = "conversion_failed"
	default:
		result = "error"
	}
	v.metrics.DocumentVerification.WithLabelValues(result).Inc()
}
