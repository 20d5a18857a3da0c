package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"bot-cupons/internal/metrics"
	"bot-cupons/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Publisher executa um ciclo de publicação
type Publisher interface {
	Publish(ctx context.Context) (models.PublishResult, error)
}

// CouponLister expõe a tabela de faixas carregada
type CouponLister interface {
	Ranges() []models.PriceRange
}

// HistoryReader lê as últimas publicações
type HistoryReader interface {
	RecentPublications(ctx context.Context, limit int) ([]models.Publication, error)
}

// StatsReader conta as publicações por status
type StatsReader interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// Options reúne as dependências do servidor HTTP. History e Stats são opcionais.
type Options struct {
	Publisher    Publisher
	Coupons      CouponLister
	History      HistoryReader
	Stats        StatsReader
	AllowOrigins []string
	Logger       *zap.Logger
}

type server struct {
	publisher Publisher
	coupons   CouponLister
	history   HistoryReader
	stats     StatsReader
	logger    *zap.Logger
}

// Setup monta o roteador com todas as rotas
func Setup(opts Options) *gin.Engine {
	s := &server{
		publisher: opts.Publisher,
		coupons:   opts.Coupons,
		history:   opts.History,
		stats:     opts.Stats,
		logger:    opts.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger), metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthCheck)
	router.GET("/publish", s.publish)
	router.POST("/publish", s.publish)
	router.GET("/history", s.listHistory)
	router.GET("/stats", s.getStats)
	router.GET("/coupons", s.listCoupons)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) publish(c *gin.Context) {
	result, err := s.publisher.Publish(c.Request.Context())
	if err != nil {
		s.logger.Error("ciclo de publicação falhou",
			zap.String("cycle_id", result.CycleID),
			zap.String("message", result.Message),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":   models.StatusError,
			"message":  result.Message,
			"cycle_id": result.CycleID,
		})
		return
	}

	if !result.OK() {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) listHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": models.StatusError, "message": "history disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": "invalid limit"})
		return
	}
	limit = min(limit, maxHistoryLimit)

	pubs, err := s.history.RecentPublications(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("erro ao ler histórico", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": models.StatusError, "message": "failed to read history"})
		return
	}
	if pubs == nil {
		pubs = []models.Publication{}
	}
	c.JSON(http.StatusOK, gin.H{"publications": pubs, "count": len(pubs)})
}

func (s *server) getStats(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": models.StatusError, "message": "history disabled"})
		return
	}

	counts, err := s.stats.CountByStatus(c.Request.Context())
	if err != nil {
		s.logger.Error("erro ao contar publicações", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": models.StatusError, "message": "failed to read stats"})
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"publications": counts, "total": total, "ranges": len(s.coupons.Ranges())})
}

func (s *server) listCoupons(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ranges": s.coupons.Ranges()})
}

// requestLogger registra cada requisição no logger da aplicação
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("requisição HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
