package document

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/internal/storage"
	"github.com/chmc/wbms-api/pkg/security"
)

// HashFile returns the hex SHA-256 of r, read in 8 KiB chunks.
func HashFile(r io.Reader) (string, error) {
	return security.HashReader(r)
}

type Integrity struct {
	exams repository.ExaminationRepository
	store storage.Store
}

func NewIntegrity(exams repository.ExaminationRepository, store storage.Store) *Integrity {
	return &Integrity{exams: exams, store: store}
}

// Check recomputes the edited document hash of examination id. Examinations
// without an edited document or stored hash are reported as not verifiable.
func (i *Integrity) Check(ctx context.Context, id int64) (*model.IntegrityReport, error) {
	exam, err := i.exams.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &model.IntegrityReport{ExaminationID: id}
	if !exam.HasEditedDocument() || exam.EditedDocumentHash == nil || *exam.EditedDocumentHash == "" {
		return report, nil
	}
	report.StoredHash = *exam.EditedDocumentHash

	f, err := i.store.Open(ctx, *exam.EditedDocumentPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return report, nil
		}
		return nil, fmt.Errorf("failed to open edited document: %w", err)
	}
	defer f.Close()

	current, err := HashFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to hash edited document: %w", err)
	}
	report.Verifiable = true
	report.CurrentHash = current
	report.Intact = current == report.StoredHash
	return report, nil
}
