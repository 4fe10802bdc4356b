package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
	"github.com/noah-isme/feeline-api/pkg/export"
)

type adminStudentStore interface {
	FindByID(ctx context.Context, studID string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type adminInstallmentStore interface {
	ListByStudent(ctx context.Context, studID string) ([]models.Installment, error)
}

type adminLogStore interface {
	List(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// AdminService backs the JWT-guarded read API: thin queries over the ledger
// plus CSV exports for office use.
type AdminService struct {
	students     adminStudentStore
	fees         feeReader
	installments adminInstallmentStore
	logs         adminLogStore
	csv          csvRenderer
	logger       *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(students adminStudentStore, fees feeReader, installments adminInstallmentStore, logs adminLogStore, csv csvRenderer, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		students:     students,
		fees:         fees,
		installments: installments,
		logs:         logs,
		csv:          csv,
		logger:       logger,
	}
}

// ListStudents returns a filtered page of students.
func (s *AdminService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// FeeStatus returns one student's fee account.
func (s *AdminService) FeeStatus(ctx context.Context, studID string) (*models.FeeAccount, error) {
	account, err := s.fees.GetByStudent(ctx, studID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrStudentNotFound, fmt.Sprintf("no fee record for %s", studID))
	}
	return account, nil
}

// Installments returns one student's payment rows, newest first.
func (s *AdminService) Installments(ctx context.Context, studID string) ([]models.Installment, error) {
	if _, err := s.students.FindByID(ctx, studID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrStudentNotFound, fmt.Sprintf("student %s not found", studID))
	}
	installments, err := s.installments.ListByStudent(ctx, studID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list installments")
	}
	return installments, nil
}

// InstallmentsCSV renders the payment rows as a CSV download.
func (s *AdminService) InstallmentsCSV(ctx context.Context, studID string) ([]byte, error) {
	installments, err := s.Installments(ctx, studID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"inst_id", "stud_id", "amount", "paid_on", "mode", "remarks", "recorded_by"},
	}
	for _, inst := range installments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"inst_id":     inst.InstID,
			"stud_id":     inst.StudID,
			"amount":      fmt.Sprintf("%d", inst.Amount),
			"paid_on":     inst.PaidOn.Format("2006-01-02"),
			"mode":        inst.Mode,
			"remarks":     inst.Remarks,
			"recorded_by": inst.RecordedBy,
		})
	}

	raw, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv export failed")
	}
	return raw, nil
}

// ListLogs returns a filtered page of audit entries.
func (s *AdminService) ListLogs(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, *models.Pagination, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	entries, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list logs")
	}
	page := filter.Offset/filter.Limit + 1
	return entries, &models.Pagination{Page: page, PageSize: filter.Limit, TotalCount: total}, nil
}
