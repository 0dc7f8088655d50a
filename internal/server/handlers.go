package server

import (
	"net/http"

	jobsHttp "github.com/go4it-sports/media-engine/internal/jobs/delivery/http"
	jobsRepository "github.com/go4it-sports/media-engine/internal/jobs/repository"
	jobsUsecase "github.com/go4it-sports/media-engine/internal/jobs/usecase"
	"github.com/go4it-sports/media-engine/internal/middleware"
	"github.com/go4it-sports/media-engine/pkg/utils"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	jRepo := jobsRepository.NewJobRepository(s.db)
	jRedisRepo := jobsRepository.NewJobRedisRepo(s.redisClient)
	jAWSRepo := jobsRepository.NewAwsRepository(s.s3Client, s.preSignClient)

	jobsUC := jobsUsecase.NewJobsUseCase(s.cfg, jRepo, jRedisRepo, jAWSRepo, s.logger)
	jobsHandlers := jobsHttp.NewJobsHandler(jobsUC, s.logger)

	mw := middleware.NewMiddlewareManager(s.cfg, []string{"*"}, s.logger)

	e.Use(echoMw.RequestID())
	e.Use(mw.RequestLoggerMiddleware)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	jobsGroup := v1.Group("/jobs")
	uploadsGroup := v1.Group("/uploads")

	jobsHttp.MapJobRoutes(jobsGroup, jobsHandlers)
	jobsHttp.MapUploadRoutes(uploadsGroup, jobsHandlers)
	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
