// Package httpapi exposes the chat pipeline over a small JSON API. Handlers
// translate between HTTP and the agent service; no trading logic lives here.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kuber/internal/agent"
	"kuber/internal/gateway/broker"
	"kuber/internal/logger"
	"kuber/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChatService is the orchestrator surface the handlers call. Satisfied by
// *agent.Service.
type ChatService interface {
	HandleChat(ctx context.Context, sessionID, text string) (*agent.Reply, error)
	HandleConfirmation(ctx context.Context, sessionID, tokenID string, decision agent.Decision) (*agent.Reply, error)
	History(ctx context.Context, limit int) ([]order.ExecutionResult, error)
}

// SessionBroker is the direct broker surface the API exposes outside the
// chat flow: login plus the account reads and the order-cancel passthrough.
// Satisfied by *angelone.Client.
type SessionBroker interface {
	Login(ctx context.Context, clientCode, password, totpSecret string) (broker.Session, error)
	HasSession() bool
	GetPositions(ctx context.Context) ([]broker.Position, error)
	CancelOrder(ctx context.Context, orderID string) (broker.OrderReceipt, error)
}

type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr    string
	Service ChatService
	Broker  SessionBroker
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("http server requires the agent service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handlers{service: cfg.Service, broker: cfg.Broker}
	api := router.Group("/api")
	api.POST("/chat", h.chat)
	api.POST("/confirm", h.confirm)
	api.POST("/login", h.login)
	api.GET("/orders", h.orders)
	api.POST("/orders/cancel", h.cancelOrder)
	api.GET("/positions", h.positions)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
