package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/docx"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/storage"
	"github.com/chmc/wbms-api/pkg/metrics"
)

const (
	DocumentsDir = "examination_documents"
	EditedDir    = "examination_documents/edited"

	dateLayout = "January 02, 2006"
)

// Template placeholders.
const (
	PlaceholderPatientName  = "{PATIENT_NAME}"
	PlaceholderAge          = "{AGE}"
	PlaceholderSex          = "{SEX}"
	PlaceholderServiceType  = "{SERVICE_TYPE}"
	PlaceholderDate         = "{DATE}"
	PlaceholderFileNo       = "{FILE_NO}"
	PlaceholderPatientImage = "{PATIENT_IMAGE}"
	PlaceholderDoctorName   = "{DOCTOR_NAME}"
	PlaceholderSignature    = "{SIGNATURE}"
	PlaceholderUniqueCode   = "{UNIQUE_CODE}"
)

var (
	ErrIncompleteExamination = errors.New("examination is missing its patient or doctor")
	// ErrTemplateInvalid marks a server-side template that is not a usable
	// Word document. It does not wrap docx.ErrNotDocx, which is reserved for
	// client uploads.
	ErrTemplateInvalid = errors.New("examination template is invalid")
)

// TemplateSource returns the raw bytes of the examination template.
type TemplateSource func() ([]byte, error)

// FileTemplate reads the template from disk on every call so edits to the
// file take effect without a restart.
func FileTemplate(p string) TemplateSource {
	return func() ([]byte, error) {
		return os.ReadFile(p)
	}
}

// Generated describes a document written to storage.
type Generated struct {
	Path string
	Code string
}

type Generator struct {
	template TemplateSource
	store    storage.Store
	codes    Codes
	metrics  *metrics.Metrics
}

func NewGenerator(template TemplateSource, store storage.Store, codes Codes, m *metrics.Metrics) *Generator {
	return &Generator{template: template, store: store, codes: codes, metrics: m}
}

// Generate fills the template for a resolved examination and stores the
// result. The examination must carry Patient, Doctor, ServiceTypes and
// FileNumber.
func (g *Generator) Generate(ctx context.Context, exam *model.Examination) (*Generated, error) {
	out, err := g.generate(ctx, exam)
	status := "success"
	if err != nil {
		status = "error"
	}
	g.metrics.DocumentsGenerated.WithLabelValues(status).Inc()
	return out, err
}

func (g *Generator) generate(ctx context.Context, exam *model.Examination) (*Generated, error) {
	if exam.Patient == nil || exam.Doctor == nil {
		return nil, ErrIncompleteExamination
	}
	patient, doctor := exam.Patient, exam.Doctor

	raw, err := g.template()
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	doc, err := docx.Read(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
	}

	doc.ReplaceInTableCells(map[string]string{
		PlaceholderPatientName: patient.FullNameWithMiddleInitial(),
		PlaceholderAge:         fmt.Sprint(patient.Age),
		PlaceholderSex:         string(patient.Sex),
		PlaceholderServiceType: model.ServiceTypeNames(exam.ServiceTypes),
		PlaceholderDate:        exam.CreatedAt.Format(dateLayout),
		PlaceholderFileNo:      exam.FileNumber,
	})

	photo, err := g.loadImage(ctx, patient.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient image: %w", err)
	}
	if _, err := doc.PlaceImageInTableCells(PlaceholderPatientImage, photo); err != nil {
		return nil, fmt.Errorf("failed to place patient image: %w", err)
	}

	code := g.codes.Code(exam.FileNumber, patient.FullNameWithMiddleInitial(), doctor.FullNameWithMiddleInitial())
	doc.ReplaceInFooters(map[string]string{
		PlaceholderDoctorName: doctor.FullNameWithMiddleInitial(),
		PlaceholderUniqueCode: code,
	})

	signature, err := g.loadImage(ctx, doctor.SignaturePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load signature: %w", err)
	}
	if _, err := doc.PlaceImageInFooters(PlaceholderSignature, signature); err != nil {
		return nil, fmt.Errorf("failed to place signature: %w", err)
	}

	data, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	name, err := StoreUnique(ctx, g.store, DocumentsDir, storage.SanitizeName(patient.FullNameLastNameFirst()), ".docx", data)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("examination_id", exam.ID).
		Str("file_no", exam.FileNumber).
		Str("path", name).
		Msg("examination document generated")

	return &Generated{Path: name, Code: code}, nil
}

// loadImage returns nil when p is unset so the placeholder is only cleared.
func (g *Generator) loadImage(ctx context.Context, p *string) (*docx.Image, error) {
	if p == nil || *p == "" {
		return nil, nil
	}
	rc, err := g.store.Open(ctx, *p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return &docx.Image{
		Data:   data,
		Ext:    strings.TrimPrefix(path.Ext(*p), "."),
		Width:  docx.EMUPerInch,
		Height: docx.EMUPerInch,
	}, nil
}

// StoreUnique writes data to dir/base+ext, or to dir/base (n)+ext for the
// first n not already taken, and returns the name it claimed.
func StoreUnique(ctx context.Context, store storage.Store, dir, base, ext string, data []byte) (string, error) {
	candidate := path.Join(dir, base+ext)
	for n := 1; ; n++ {
		err := store.Create(ctx, candidate, bytes.NewReader(data))
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, storage.ErrExists) {
			return "", fmt.Errorf("failed to store %s: %w", candidate, err)
		}
		candidate = path.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
	}
}
