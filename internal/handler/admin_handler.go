package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feeline-api/internal/models"
	"github.com/noah-isme/feeline-api/internal/service"
	"github.com/noah-isme/feeline-api/pkg/response"
)

// AdminHandler exposes the JWT-guarded read API over the ledger.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListStudents godoc
// @Summary List students
// @Tags Admin
// @Produce json
// @Param search query string false "Search by name or student ID"
// @Param class query string false "Filter by class"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Class = c.Query("class")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	students, pagination, err := h.admin.ListStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// FeeStatus godoc
// @Summary Get a student's fee account
// @Tags Admin
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/fees [get]
func (h *AdminHandler) FeeStatus(c *gin.Context) {
	account, err := h.admin.FeeStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Installments godoc
// @Summary List a student's installments
// @Tags Admin
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string false "Set to csv for a CSV download"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/installments [get]
func (h *AdminHandler) Installments(c *gin.Context) {
	studID := c.Param("id")

	if strings.EqualFold(c.Query("format"), "csv") {
		raw, err := h.admin.InstallmentsCSV(c.Request.Context(), studID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="installments_`+studID+`.csv"`)
		c.Data(http.StatusOK, "text/csv", raw)
		return
	}

	installments, err := h.admin.Installments(c.Request.Context(), studID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, installments, nil)
}

// ListLogs godoc
// @Summary List audit log entries
// @Tags Admin
// @Produce json
// @Param action query string false "Filter by action"
// @Param studId query string false "Filter by student ID"
// @Param result query string false "Filter by result"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /logs [get]
func (h *AdminHandler) ListLogs(c *gin.Context) {
	var filter models.LogFilter
	filter.Action = models.LogAction(c.Query("action"))
	filter.StudID = c.Query("studId")
	filter.Result = models.LogResult(c.Query("result"))
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}

	entries, pagination, err := h.admin.ListLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
