package main

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/codelist/codelist/internal/config"
	"github.com/codelist/codelist/internal/domain/codelist"
	"github.com/codelist/codelist/internal/loader"
	"github.com/codelist/codelist/internal/platform/auth"
	"github.com/codelist/codelist/internal/platform/middleware"
)

// newServer wires the HTTP API. Each call builds its own repository and
// metrics registry.
func newServer(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()

	reg := prometheus.NewRegistry()
	var httpMetrics *middleware.HTTPMetrics
	if cfg.MetricsEnabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		httpMetrics = middleware.NewHTTPMetrics(reg)
	}

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if httpMetrics != nil {
		e.Use(httpMetrics.Middleware())
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit(strconv.FormatInt(cfg.MaxUploadBytes, 10)))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if httpMetrics != nil {
		e.GET("/metrics", httpMetrics.Handler())
	}

	var authMW echo.MiddlewareFunc
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		})
	}

	var recorders []middleware.AuditRecorder
	if httpMetrics != nil {
		recorders = append(recorders, httpMetrics)
	}
	apiV1 := e.Group("/api/v1", authMW, middleware.Audit(logger, recorders...))
	fhirGroup := e.Group("/fhir", authMW)

	svc := codelist.NewService(codelist.NewMemoryRepository(), logger)
	svc.SetDefaultSource(cfg.DefaultSource)
	if cfg.MetricsEnabled {
		svc.SetMetrics(codelist.NewMetrics(reg))
	}
	handler := codelist.NewHandler(svc, newLoader(cfg, logger))
	handler.RegisterRoutes(apiV1, fhirGroup)

	return e
}

func newLoader(cfg *config.Config, logger zerolog.Logger) *loader.Loader {
	return loader.New(loader.Columns{
		Code:    cfg.CodeColumn,
		Term:    cfg.TermColumn,
		Comment: cfg.CommentColumn,
	}, logger)
}
