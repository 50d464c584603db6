package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/logging"
	"github.com/Skufu/GlucoRisk/internal/metrics"
	"github.com/Skufu/GlucoRisk/internal/predict"
)

const pageTitle = "Diabetes Risk Predictor"

type routerDeps struct {
	predictor  *predict.Predictor
	catalog    *features.Catalog
	db         HealthChecker
	metrics    *metrics.Metrics
	logger     *zap.Logger
	staticRoot string
}

// PredictRequest carries the form fields. Omitted fields take the form default.
type PredictRequest struct {
	Age             *float64 `json:"age"`
	BMI             *float64 `json:"bmi"`
	WaistToHipRatio *float64 `json:"waist_to_hip_ratio"`
	SystolicBP      *float64 `json:"systolic_bp"`
	DiastolicBP     *float64 `json:"diastolic_bp"`
	Gender          *string  `json:"gender"`
	SmokingStatus   *string  `json:"smoking_status"`
}

type PredictResponse struct {
	Probability float64 `json:"probability"`
	Display     string  `json:"display"`
	Tier        string  `json:"tier"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
	RequestID   string  `json:"requestId,omitempty"`
}

func setupRouter(deps routerDeps) *gin.Engine {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	if deps.catalog == nil {
		deps.catalog = features.DefaultCatalog()
	}

	router := gin.New()
	router.Use(
		logging.RequestID(),
		logging.Middleware(deps.logger),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", logging.RequestIDHeader},
			ExposeHeaders: []string{logging.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	)

	if deps.staticRoot != "" {
		router.Static("/static", deps.staticRoot)
		router.StaticFile("/", filepath.Join(deps.staticRoot, "index.html"))
		router.StaticFile("/styles.css", filepath.Join(deps.staticRoot, "styles.css"))
		router.StaticFile("/app.js", filepath.Join(deps.staticRoot, "app.js"))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if deps.db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	})

	if deps.metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.metrics.Handler()))
	}

	api := router.Group("/api")
	api.GET("/form", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":  pageTitle,
			"intro":  "Enter patient details to estimate diabetes probability.",
			"fields": deps.catalog.Exposed(),
		})
	})

	api.POST("/predict", func(c *gin.Context) {
		var payload PredictRequest
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		raw := payload.toRecord(deps.catalog)
		if err := deps.catalog.Validate(raw); err != nil {
			var fe features.FieldErrors
			if errors.As(err, &fe) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": fe})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		pred, err := deps.predictor.Predict(c.Request.Context(), raw)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "inference_failed"})
			return
		}

		c.JSON(http.StatusOK, PredictResponse{
			Probability: pred.Probability,
			Display:     pred.Display(),
			Tier:        pred.Tier.String(),
			Severity:    pred.Tier.Severity(),
			Message:     pred.Message(),
			RequestID:   logging.RequestIDFrom(c),
		})
	})

	return router
}

func (r PredictRequest) toRecord(catalog *features.Catalog) features.RawRecord {
	raw := catalog.NewRecord()
	setNumber(raw, "age", r.Age)
	setNumber(raw, "bmi", r.BMI)
	setNumber(raw, "waist_to_hip_ratio", r.WaistToHipRatio)
	setNumber(raw, "systolic_bp", r.SystolicBP)
	setNumber(raw, "diastolic_bp", r.DiastolicBP)
	setLabel(raw, "gender", r.Gender)
	setLabel(raw, "smoking_status", r.SmokingStatus)
	return raw
}

func setNumber(raw features.RawRecord, name string, v *float64) {
	if v != nil {
		raw.Numbers[name] = *v
	}
}

func setLabel(raw features.RawRecord, name string, v *string) {
	if v != nil {
		raw.Labels[name] = *v
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
