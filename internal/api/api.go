// Package api exposes the form workflow over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/v0xg/formfill/internal/analyzer"
	"github.com/v0xg/formfill/internal/config"
	"github.com/v0xg/formfill/internal/executor"
	"github.com/v0xg/formfill/internal/form"
	"github.com/v0xg/formfill/internal/service"
	"github.com/v0xg/formfill/internal/store"
	"go.uber.org/zap"
)

// FormService is the subset of service.Forms the handlers use
type FormService interface {
	Analyze(ctx context.Context, url string) (*form.Form, error)
	List(ctx context.Context) ([]form.Form, error)
	Get(ctx context.Context, id string) (*form.Form, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) (int64, error)
	Submit(ctx context.Context, id string, req service.FillRequest) (*executor.Result, *form.Submission, error)
	Submissions(ctx context.Context, id string) ([]form.Submission, error)
	Generate(ctx context.Context, id string) (map[string]string, error)
}

type handler struct {
	svc FormService
	log *zap.Logger
}

// NewRouter builds the gin engine with CORS, recovery and request logging
func NewRouter(svc FormService, cfg config.ServerConfig, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("api")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))

	h := &handler{svc: svc, log: log}
	r.GET("/", h.health)

	forms := r.Group("/api/forms")
	forms.POST("/analyze", h.analyze)
	forms.GET("", h.list)
	forms.DELETE("", h.clear)
	forms.GET("/:id", h.get)
	forms.DELETE("/:id", h.remove)
	forms.POST("/:id/submit", h.submit)
	forms.GET("/:id/submissions", h.submissions)
	forms.POST("/:id/generate", h.generate)
	return r
}

// Serve runs the router on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, router http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down API")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("Request failed", fields...)
			return
		}
		log.Info("Request", fields...)
	}
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analyzer.ErrNoFormFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, analyzer.ErrPageUnreachable), errors.Is(err, executor.ErrNavigationFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Handler error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Form automation API is running", "status": "ok"})
}

type analyzeRequest struct {
	URL string `json:"url" binding:"required,url"`
}

func (h *handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid url is required"})
		return
	}
	f, err := h.svc.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *handler) list(c *gin.Context) {
	forms, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, forms)
}

func (h *handler) get(c *gin.Context) {
	f, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Form deleted successfully"})
}

func (h *handler) clear(c *gin.Context) {
	n, err := h.svc.Clear(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All forms cleared successfully", "deleted": n})
}

type submitOptions struct {
	// Speed is the base step pause in milliseconds
	Speed   int  `json:"speed" binding:"gte=0"`
	Visible bool `json:"visible"`
}

type submitRequest struct {
	// FormData values may be strings, numbers or booleans. Null entries
	// mean no value was supplied.
	FormData map[string]any `json:"formData"`
	Options  submitOptions  `json:"options"`
}

// formValues flattens submitted values to their text form
func formValues(data map[string]any) map[string]string {
	values := make(map[string]string, len(data))
	for name, v := range data {
		switch v := v.(type) {
		case nil:
			continue
		case string:
			values[name] = v
		case float64:
			values[name] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			values[name] = fmt.Sprint(v)
		}
	}
	return values
}

func (h *handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, sub, err := h.svc.Submit(c.Request.Context(), c.Param("id"), service.FillRequest{
		Values:  formValues(req.FormData),
		Speed:   time.Duration(req.Options.Speed) * time.Millisecond,
		Visible: req.Options.Visible,
	})
	if err != nil {
		if sub == nil {
			h.fail(c, err)
			return
		}
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "result": res, "submission": sub})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Form submitted successfully", "result": res, "submission": sub})
}

func (h *handler) submissions(c *gin.Context) {
	subs, err := h.svc.Submissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *handler) generate(c *gin.Context) {
	values, err := h.svc.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}
