package http

import (
	"net/http"

	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/go4it-sports/media-engine/internal/models"
	"github.com/go4it-sports/media-engine/pkg/logger"
	"github.com/go4it-sports/media-engine/pkg/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type jobsHandler struct {
	jobsUC jobs.UseCase
	logger logger.Logger
}

func NewJobsHandler(jobsUC jobs.UseCase, logger logger.Logger) jobs.Handler {
	return &jobsHandler{
		jobsUC: jobsUC,
		logger: logger,
	}
}

func (h *jobsHandler) SubmitJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.SubmitJobInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		job, err := h.jobsUC.SubmitJob(c.Request().Context(), input)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.logger.Infof("job %s submitted from %s, RequestID: %s", job.JobID, utils.GetIPAddress(c), utils.GetRequestID(c))
		return c.JSON(http.StatusCreated, job)
	}
}

func (h *jobsHandler) GetJobByID() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
		}
		job, err := h.jobsUC.GetJob(c.Request().Context(), jobID.String())
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *jobsHandler) ListJobs() echo.HandlerFunc {
	return func(c echo.Context) error {
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		jobList, err := h.jobsUC.ListJobs(c.Request().Context(), pagination)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, jobList)
	}
}

func (h *jobsHandler) CancelJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
		}
		if err := h.jobsUC.CancelJob(c.Request().Context(), jobID.String()); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
	}
}

func (h *jobsHandler) GetPresignUpload() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.UploadInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		presignUrl, err := h.jobsUC.GetPresignUpload(c.Request().Context(), input)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"presignUrl": presignUrl})
	}
}
