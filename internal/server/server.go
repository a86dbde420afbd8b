// Package server собирает HTTP API: gin, общие middleware и маршруты фич.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/brusliste/internal/config"
	"serotonyl.ru/brusliste/internal/features/access"
	"serotonyl.ru/brusliste/internal/features/ledger"
	"serotonyl.ru/brusliste/internal/features/stats"
	"serotonyl.ru/brusliste/internal/httpx"
	"serotonyl.ru/brusliste/internal/metrics"
	"serotonyl.ru/brusliste/internal/server/middleware"
)

// Pinger — то, что проверяет /health (pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps — всё, что серверу нужно от остальных модулей.
type Deps struct {
	Ledger  *ledger.Handler
	Stats   *stats.Handler
	Access  *access.Handler
	Gate    access.Gate
	Metrics *metrics.Metrics
	DB      Pinger
}

// Server — HTTP-сервер API.
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	http    *http.Server
	limiter *middleware.RateLimiter
}

// New создаёт gin-движок и регистрирует маршруты.
func New(cfg *config.Config, deps Deps) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.AccessLog(),
		middleware.Recovery(),
		deps.Metrics.GinMiddleware(),
		middleware.CORS(cfg.CORSAllowedOrigin),
		httpx.ErrorHandlingMiddleware(),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	engine.GET("/health", healthHandler(deps.DB))
	engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := engine.Group("/api")
	deps.Ledger.Register(api, access.RequireAPIKey(deps.Gate))
	deps.Stats.Register(api)
	deps.Access.Register(api, limiter.Middleware())

	return &Server{
		cfg:     cfg,
		engine:  engine,
		limiter: limiter,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler отдаёт движок целиком (для тестов).
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start запускает HTTP-сервер в фоне.
// Ошибка прослушивания (порт занят и т.п.) приходит в возвращаемый канал.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.cfg.HTTPAddr).Info("HTTP-сервер запущен")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown дожидается текущих запросов и останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Close()
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("HTTP-сервер остановлен")
	return nil
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				log.WithError(err).Warn("Health check: БД недоступна")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
