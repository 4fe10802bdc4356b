package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feeline-api/internal/models"
	"github.com/noah-isme/feeline-api/internal/service"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
	"github.com/noah-isme/feeline-api/pkg/export"
)

type stubAdminStudents struct{}

func (stubAdminStudents) FindByID(_ context.Context, studID string) (*models.Student, error) {
	if studID != "STU001" {
		return nil, appErrors.ErrStudentNotFound
	}
	return &models.Student{StudID: "STU001", Name: "Rahul Pandey", Class: "12"}, nil
}

func (stubAdminStudents) List(context.Context, models.StudentFilter) ([]models.Student, int, error) {
	return []models.Student{{StudID: "STU001", Name: "Rahul Pandey", Class: "12"}}, 1, nil
}

type stubAdminInstallments struct{}

func (stubAdminInstallments) ListByStudent(context.Context, string) ([]models.Installment, error) {
	return []models.Installment{{
		InstID: "INST001", StudID: "STU001", Amount: 4000,
		PaidOn: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), Mode: "cash", RecordedBy: "staff",
	}}, nil
}

type stubAdminLogs struct{}

func (stubAdminLogs) List(context.Context, models.LogFilter) ([]models.LogEntry, int, error) {
	return []models.LogEntry{{LogID: "LOG001", Action: models.ActionAddInstallment, Result: models.ResultSuccess}}, 1, nil
}

func newAdminHandlerFixture() *AdminHandler {
	admin := service.NewAdminService(stubAdminStudents{}, stubFees{}, stubAdminInstallments{},
		stubAdminLogs{}, export.NewCSVExporter(), nil)
	return NewAdminHandler(admin)
}

func TestAdminHandlerListStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAdminHandlerFixture()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/students?class=12&page=1&limit=20", nil)

	handler.ListStudents(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"stud_id":"STU001"`)
	assert.Contains(t, recorder.Body.String(), `"total_count":1`)
}

func TestAdminHandlerFeeStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAdminHandlerFixture()

	t.Run("known student", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/students/STU001/fees", nil)
		c.Params = gin.Params{{Key: "id", Value: "STU001"}}

		handler.FeeStatus(c)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"balance":36000`)
	})

	t.Run("unknown student", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		c.Request = httptest.NewRequest(http.MethodGet, "/students/STU999/fees", nil)
		c.Params = gin.Params{{Key: "id", Value: "STU999"}}

		handler.FeeStatus(c)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestAdminHandlerInstallments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAdminHandlerFixture()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/STU001/installments", nil)
	c.Params = gin.Params{{Key: "id", Value: "STU001"}}

	handler.Installments(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"inst_id":"INST001"`)
}

func TestAdminHandlerInstallmentsCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAdminHandlerFixture()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/STU001/installments?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "STU001"}}

	handler.Installments(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/csv", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "installments_STU001.csv")
	assert.Contains(t, recorder.Body.String(), "INST001,STU001,4000,2026-08-20,cash,,staff")
}

func TestAdminHandlerListLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAdminHandlerFixture()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/logs?action=add_installment&limit=10", nil)

	handler.ListLogs(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"log_id":"LOG001"`)
}
