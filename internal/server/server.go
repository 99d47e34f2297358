// Package server exposes the diagnosis service over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/SymptomDx/internal/auth"
	"github.com/Skufu/SymptomDx/internal/diagnosis"
	"github.com/Skufu/SymptomDx/internal/model"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Service *diagnosis.Service
	// DB is pinged by /readyz; nil reports the database as disabled.
	DB           HealthChecker
	Auth         auth.Config
	CORSOrigins  []string
	MaxBodyBytes int64
	// StaticRoot holds index.html and its assets; empty disables them.
	StaticRoot string
	Logger     zerolog.Logger
}

type handlers struct {
	svc    *diagnosis.Service
	logger zerolog.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(opts Options) *gin.Engine {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		requestID(),
		requestLogger(opts.Logger),
		recovery(opts.Logger),
		limitBodySize(opts.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	)

	if opts.StaticRoot != "" {
		mountStatic(router, opts.StaticRoot)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readyz(opts.DB))

	h := &handlers{svc: opts.Service, logger: opts.Logger}
	doctors := auth.RequireRole(model.RoleDoctor, model.RoleAdmin)

	api := router.Group("/api", auth.Middleware(opts.Auth))
	api.GET("/symptoms", h.symptoms)
	api.GET("/tests", h.tests)
	api.POST("/diagnosis/predict", h.predict)
	api.GET("/diagnosis/mine", auth.RequireRole(model.RolePatient, model.RoleAdmin), h.mine)
	api.GET("/diagnosis/records", doctors, h.records)
	api.POST("/tests/:kind", doctors, h.runTest)
	api.GET("/tests/:kind", doctors, h.testResults)
	api.POST("/questions", h.ask)
	api.GET("/responses", h.responses)

	admin := api.Group("/admin", auth.RequireRole(model.RoleAdmin))
	admin.GET("/questions", h.questions)
	admin.POST("/questions/:id/responses", h.respond)

	return router
}

func readyz(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	}
}

func mountStatic(router *gin.Engine, root string) {
	if !fileExists(filepath.Join(root, "index.html")) {
		return
	}
	router.Static("/static", root)
	router.StaticFile("/", filepath.Join(root, "index.html"))
	for _, name := range []string{"styles.css", "app.js", "config.js"} {
		if p := filepath.Join(root, name); fileExists(p) {
			router.StaticFile("/"+name, p)
		}
	}
}

// DetectStaticRoot looks for index.html under web/ or directly in the
// working directory and up to two of its parents.
func DetectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}
	for _, dir := range candidates {
		for _, root := range []string{filepath.Join(dir, "web"), dir} {
			if fileExists(filepath.Join(root, "index.html")) {
				return root
			}
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
