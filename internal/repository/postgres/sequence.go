package postgres

import (
	"context"
	"time"

	"github.com/chmc/wbms-api/internal/repository"
)

// NewFileNumberAllocator returns the strategy named by mode.
func NewFileNumberAllocator(base BaseRepository, mode string, exams repository.ExaminationRepository) repository.FileNumberAllocator {
	if mode == NumberingCount {
		return &countAllocator{exams: exams}
	}
	return &sequenceAllocator{base}
}

// sequenceAllocator bumps a per-year counter row. The row lock serialises
// concurrent creations until the surrounding transaction ends.
type sequenceAllocator struct {
	BaseRepository
}

func (a *sequenceAllocator) Next(ctx context.Context, createdAt time.Time) (int, error) {
	var seq int
	err := a.db.QueryRowxContext(ctx, `
		INSERT INTO file_number_sequences (year, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_seq = file_number_sequences.last_seq + 1
		RETURNING last_seq`, createdAt.Year()).Scan(&seq)
	if err != nil {
		return 0, mapError(err, "allocate file number")
	}
	return seq, nil
}

// countAllocator numbers by counting the year's examinations. Two concurrent
// creations can observe the same count and share a file number.
type countAllocator struct {
	exams repository.ExaminationRepository
}

func (a *countAllocator) Next(ctx context.Context, createdAt time.Time) (int, error) {
	n, err := a.exams.CountInYear(ctx, createdAt)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}
