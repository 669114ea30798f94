package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"focusmon/internal/absence"
	"focusmon/internal/attendance"
	"focusmon/internal/config"
	"focusmon/internal/eventtime"
	"focusmon/internal/faults"
	"focusmon/internal/focus"
	"focusmon/internal/frontend"
	"focusmon/internal/httpmiddleware"
	"focusmon/internal/notify"
	"focusmon/internal/queue"
	"focusmon/internal/retry"
	"focusmon/internal/screenshot"
	"focusmon/internal/store"
	"focusmon/internal/topics"
	"focusmon/internal/vision"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "focusmon:topics")
	}

	zone, err := time.LoadLocation(cfg.TargetTimezone)
	if err != nil {
		log.Fatalf("unknown target timezone %q: %v", cfg.TargetTimezone, err)
	}

	policy := retry.Policy{Attempts: cfg.RetryAttempts, Initial: cfg.RetryInitial}

	chat, err := notify.NewChat(cfg.ChatBotToken, cfg.ChatGroupID, cfg.AbsenceThreshold+1, policy)
	if err != nil {
		log.Fatalf("chat bot init failed: %v", err)
	}

	attRepo, err := attendance.NewRepository(db.Client, cfg.AttendanceTable)
	if err != nil {
		log.Fatalf("attendance repo init failed: %v", err)
	}

	topicRepo, err := topics.NewRepository(db.Client, cfg.TopicTable)
	if err != nil {
		log.Fatalf("topic repo init failed: %v", err)
	}

	pipe := &focus.Pipeline{
		Faces:      vision.New(cfg.VisionURL, cfg.VisionSkip, policy),
		Screens:    screenshot.New(cfg.ClassifierURL, policy),
		Attendance: attRepo,
		Counters:   absence.NewRedisCounters(redisClient.Client, cfg.AbsenceKeyPrefix),
		Chat:       chat,
		Actuator:   notify.NewActuator(cfg.ActuatorURL, policy),
		Frontend:   frontend.New(cfg.FrontendURL, policy),
		Zone:       zone,
		Threshold:  cfg.AbsenceThreshold,
	}
	ctx := context.Background()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", healthzHandler(redisClient, attRepo))

	r.POST("/v1/focus/events", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Photo    struct {
				BucketName string `json:"bucket_name" binding:"required"`
				Key        string `json:"key" binding:"required"`
			} `json:"photo" binding:"required"`
			Screenshot struct {
				BucketName string `json:"bucket_name" binding:"required"`
				Key        string `json:"key" binding:"required"`
			} `json:"screenshot" binding:"required"`
			RequestTime string `json:"request_time"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// The envelope timestamp defaults to arrival time, mirroring
		// the gateway event the pipeline was originally fed.
		if req.RequestTime == "" {
			req.RequestTime = eventtime.Format(time.Now().UTC())
		}

		evt, err := focus.NewEvent(
			req.Username,
			focus.ObjectRef{Bucket: req.Photo.BucketName, Key: req.Photo.Key},
			focus.ObjectRef{Bucket: req.Screenshot.BucketName, Key: req.Screenshot.Key},
			req.RequestTime,
		)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := pipe.Process(c.Request.Context(), evt); err != nil {
			status := http.StatusBadGateway
			if faults.IsFormat(err) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "processed", "username": evt.Username})
	})

	r.POST("/v1/topics/messages", func(c *gin.Context) {
		var msg topics.Message
		if err := c.ShouldBindJSON(&msg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		body, err := json.Marshal(msg)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode message failed"})
			return
		}
		if err := q.Publish(ctx, queue.Message{Type: "topic", Body: body}); err != nil {
			log.Printf("queue publish failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enqueue failed"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	r.GET("/v1/attendance", listAttendanceHandler(attRepo))
	r.GET("/v1/topics", listTopicsHandler(topicRepo))

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// redisHealth and dbHealth are the probe surfaces of the two stores.
type redisHealth interface {
	Healthy(ctx context.Context) bool
}

type dbHealth interface {
	Healthy(ctx context.Context) bool
}

func healthzHandler(redis redisHealth, db dbHealth) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisHealthy := redis.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	}
}

type attendanceLister interface {
	ListByUser(ctx context.Context, username, date string, limit int) ([]attendance.Record, error)
}

func listAttendanceHandler(repo attendanceLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Query("username")
		date := c.Query("date")
		if username == "" || date == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and date required"})
			return
		}
		limit := 50
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		records, err := repo.ListByUser(c.Request.Context(), username, date, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	}
}

type topicLister interface {
	ListRecent(ctx context.Context, limit int) ([]topics.Record, error)
}

func listTopicsHandler(repo topicLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		recs, err := repo.ListRecent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": recs})
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
