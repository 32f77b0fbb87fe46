package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dputra/student-records-api/internal/service"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
	"github.com/dputra/student-records-api/pkg/response"
)

// PipelineHandler exposes batch pipeline endpoints.
type PipelineHandler struct {
	pipeline *service.PipelineService
}

// NewPipelineHandler constructs PipelineHandler.
func NewPipelineHandler(pipeline *service.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline}
}

// Trigger godoc
// @Summary Run the batch load pipeline
// @Tags Pipeline
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pipeline/runs [post]
func (h *PipelineHandler) Trigger(c *gin.Context) {
	report, err := h.pipeline.Trigger(c.Request.Context())
	if err != nil {
		// A run report may exist even for a failed run; surface it so the
		// caller sees which stages committed before the abort.
		if report != nil {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Data: report, Error: appErr})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// LastReport godoc
// @Summary Most recent pipeline run report
// @Tags Pipeline
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pipeline/runs/last [get]
func (h *PipelineHandler) LastReport(c *gin.Context) {
	report := h.pipeline.LastReport()
	if report == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no pipeline run recorded"))
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
