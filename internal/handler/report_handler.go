package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dputra/student-records-api/internal/service"
	"github.com/dputra/student-records-api/pkg/response"
)

// ReportHandler exposes read-only reporting views.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Transcript godoc
// @Summary Student transcript with weighted averages and GPA
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{id}/transcript [get]
func (h *ReportHandler) Transcript(c *gin.Context) {
	transcript, err := h.reports.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// ExportTranscript godoc
// @Summary Download a transcript as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /reports/students/{id}/transcript/export [get]
func (h *ReportHandler) ExportTranscript(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	payload, filename, err := h.reports.ExportTranscript(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if format == service.ExportPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// AttendanceSummary godoc
// @Summary Student attendance summary per enrollment
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{id}/attendance [get]
func (h *ReportHandler) AttendanceSummary(c *gin.Context) {
	summary, err := h.reports.AttendanceSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// CourseRoster godoc
// @Summary Course roster with attendance counts
// @Tags Reports
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /reports/courses/{id}/roster [get]
func (h *ReportHandler) CourseRoster(c *gin.Context) {
	roster, err := h.reports.CourseRoster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// LowAttendance godoc
// @Summary Students below an attendance threshold
// @Tags Reports
// @Produce json
// @Param threshold query number false "Rate threshold percentage" default(75)
// @Success 200 {object} response.Envelope
// @Router /reports/attendance/low [get]
func (h *ReportHandler) LowAttendance(c *gin.Context) {
	threshold, _ := strconv.ParseFloat(c.DefaultQuery("threshold", "75"), 64)
	rows, err := h.reports.LowAttendance(c.Request.Context(), threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// TopStudents godoc
// @Summary Students ranked by GPA
// @Tags Reports
// @Produce json
// @Param limit query int false "Number of students" default(10)
// @Success 200 {object} response.Envelope
// @Router /reports/students/top [get]
func (h *ReportHandler) TopStudents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	rows, err := h.reports.TopStudents(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
