package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/internal/service/document"
)

const (
	SheetName    = "payments"
	dayLayout    = "2006-01-02"
	cellLayout   = "2006-01-02 15:04"
	amountFormat = "#,##0.00"
)

var ErrInvalidRange = errors.New("invalid report date range")

var header = []string{"File No.", "Patient", "Doctor", "Date", "Method", "Status", "Amount"}

// endOfTime bounds open-ended exports.
var endOfTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

type Service struct {
	reports repository.ReportRepository
	exams   repository.ExaminationRepository
}

func NewService(reports repository.ReportRepository, exams repository.ExaminationRepository) *Service {
	return &Service{reports: reports, exams: exams}
}

// Summary totals payments by method for the day and the week containing now,
// with weeks starting on Monday, and counts the distinct patients examined.
func (s *Service) Summary(ctx context.Context, now time.Time) (*model.PaymentSummary, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekStart := dayStart.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
	weekEnd := weekStart.AddDate(0, 0, 7)

	rows, err := s.reports.PaymentRows(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	summary := &model.PaymentSummary{GeneratedAt: now}
	for _, row := range rows {
		summary.Weekly.Add(row.Method, row.Amount)
		if !row.Date.Before(dayStart) && row.Date.Before(dayEnd) {
			summary.Daily.Add(row.Method, row.Amount)
		}
	}

	if summary.PatientsToday, err = s.reports.CountPatientsExamined(ctx, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	if summary.PatientsThisWeek, err = s.reports.CountPatientsExamined(ctx, weekStart, weekEnd); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	return summary, nil
}

// ExportPayments writes an XLSX workbook with one row per payment dated
// within the inclusive filter bounds.
func (s *Service) ExportPayments(ctx context.Context, w io.Writer, filter model.PaymentReportFilter) error {
	from, to, err := bounds(filter)
	if err != nil {
		return err
	}
	rows, err := s.reports.PaymentRows(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	headerRow := sheet.AddRow()
	for _, title := range header {
		headerRow.AddCell().SetString(title)
	}

	numbers := document.NewFileNumbers(s.exams)
	for _, r := range rows {
		fileNo, err := numbers.Format(ctx, r.ExamCreatedAt, r.SequenceNo)
		if err != nil {
			return err
		}
		row := sheet.AddRow()
		row.AddCell().SetString(fileNo)
		row.AddCell().SetString(model.FullName(r.PatientFirstName, r.PatientMiddleName, r.PatientLastName))
		row.AddCell().SetString(model.FullName(r.DoctorFirstName, r.DoctorMiddle, r.DoctorLastName))
		row.AddCell().SetString(r.Date.Format(cellLayout))
		row.AddCell().SetString(string(r.Method))
		row.AddCell().SetString(string(r.Status))
		row.AddCell().SetFloatWithFormat(r.Amount.Float(), amountFormat)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	log.Info().Int("rows", len(rows)).Str("from", filter.From).Str("to", filter.To).Msg("payments exported")
	return nil
}

func bounds(filter model.PaymentReportFilter) (time.Time, time.Time, error) {
	from, to := time.Time{}, endOfTime
	if filter.From != "" {
		t, err := time.ParseInLocation(dayLayout, filter.From, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		from = t
	}
	if filter.To != "" {
		t, err := time.ParseInLocation(dayLayout, filter.To, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		to = t.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return from, to, fmt.Errorf("%w: from is after to", ErrInvalidRange)
	}
	return from, to, nil
}
