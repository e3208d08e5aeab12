package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/franckalain/caloriesense/internal/middleware"
	"github.com/franckalain/caloriesense/internal/models"
	"github.com/franckalain/caloriesense/internal/pipeline"
)

// foodRequest is the body of /analyze-food
type foodRequest struct {
	FoodName string `json:"foodName"`
}

func (s *Server) handleAnalyzeImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.fail(c, fmt.Errorf("%w: file is required: %w", pipeline.ErrBadRequest, err))
		return
	}

	f, err := file.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	est, err := s.svc.AnalyzeImage(c.Request.Context(), models.UploadedImage{
		Data:        data,
		ContentType: file.Header.Get("Content-Type"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

func (s *Server) handleGetInsight(c *gin.Context) {
	var goal models.MacroGoal
	if err := c.ShouldBindJSON(&goal); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", pipeline.ErrBadRequest, err))
		return
	}
	c.JSON(http.StatusOK, s.svc.GetInsight(c.Request.Context(), goal))
}

func (s *Server) handleProcessAnalytics(c *gin.Context) {
	var meals []models.MealEntry
	if err := c.ShouldBindJSON(&meals); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", pipeline.ErrBadRequest, err))
		return
	}

	result, err := s.svc.ProcessAnalytics(c.Request.Context(), meals)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalyzeFood(c *gin.Context) {
	var req foodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", pipeline.ErrBadRequest, err))
		return
	}

	est, err := s.svc.LookupFood(c.Request.Context(), req.FoodName)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

// fail writes err as {"detail": ...}. Server faults are logged.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrBadRequest):
		return http.StatusUnprocessableEntity
	case pipeline.Classify(err) == pipeline.ClientFault:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
