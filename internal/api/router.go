package api

import (
	"net/http"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "soql-workbench/docs"
	"soql-workbench/internal/api/handler"
	"soql-workbench/internal/metrics"
	"soql-workbench/pkg/router"
)

// RegisterRoutes wires the API handlers into r.
func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/api/login", h.Login)
	r.POST("/api/logout", h.Logout)
	r.POST("/api/refresh-session", h.RefreshSession)
	r.GET("/api/auth-status", h.AuthStatus)

	r.POST("/api/query", h.Query)
	r.GET("/api/objects", h.ListObjects)
	r.GET("/api/describe/*", h.DescribeObject)

	r.POST("/api/statistics", h.Statistics)
	r.POST("/api/export/csv", h.ExportCSV)

	r.GET("/healthz", h.Healthz)
}

// NewServerHandler builds the complete HTTP handler: API routes, metrics,
// swagger UI and CORS for the browser origins.
func NewServerHandler(h *handler.Handler, m *metrics.Metrics, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := router.New(logger)
	RegisterRoutes(r, h)
	r.Handle("/metrics", m.Handler())
	r.Handle("/swagger/", httpSwagger.WrapHandler)

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)
	return r
}
