package http

import (
	"github.com/go4it-sports/media-engine/internal/jobs"
	"github.com/labstack/echo/v4"
)

func MapJobRoutes(jobsGroup *echo.Group, h jobs.Handler) {
	jobsGroup.POST("", h.SubmitJob())
	jobsGroup.GET("", h.ListJobs())
	jobsGroup.GET("/:job_id", h.GetJobByID())
	jobsGroup.POST("/:job_id/cancel", h.CancelJob())
}

func MapUploadRoutes(uploadsGroup *echo.Group, h jobs.Handler) {
	uploadsGroup.POST("/presign", h.GetPresignUpload())
}
