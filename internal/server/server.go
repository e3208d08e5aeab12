package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/franckalain/caloriesense/internal/config"
	"github.com/franckalain/caloriesense/internal/middleware"
	"github.com/franckalain/caloriesense/internal/models"
)

const shutdownTimeout = 10 * time.Second

// Service is the set of operations exposed over HTTP and websocket
type Service interface {
	AnalyzeImage(ctx context.Context, upload models.UploadedImage) (*models.NutritionEstimate, error)
	GetInsight(ctx context.Context, goal models.MacroGoal) models.InsightResponse
	ProcessAnalytics(ctx context.Context, meals []models.MealEntry) (*models.AnalyticsResult, error)
	LookupFood(ctx context.Context, name string) (*models.NutritionEstimate, error)
}

type Server struct {
	svc      Service
	cfg      config.ServerConfig
	log      *zap.Logger
	router   *gin.Engine
	upgrader websocket.Upgrader
	clients  sync.Map
}

func New(svc Service, cfg config.ServerConfig, log *zap.Logger) *Server {
	s := &Server{
		svc: svc,
		cfg: cfg,
		log: log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.log))
	r.Use(middleware.CORS(s.cfg.AllowedOrigins))

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/")
	api.Use(middleware.BodyLimit(s.cfg.MaxUploadSize))
	{
		api.POST("/analyze-image", s.handleAnalyzeImage)
		api.POST("/get-insight", s.handleGetInsight)
		api.POST("/process-analytics", s.handleProcessAnalytics)
		api.POST("/analyze-food", s.handleAnalyzeFood)
	}
	return r
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully and closes
// open websocket connections.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "CalorieSense AI Backend is running"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
