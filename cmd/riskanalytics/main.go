package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/wyfcoding/pkg/logging"
	"golang.org/x/sync/errgroup"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/application"
	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
	"github.com/wyfcoding/energyrisk/internal/riskanalytics/infrastructure/messaging"
	"github.com/wyfcoding/energyrisk/internal/riskanalytics/infrastructure/persistence/memory"
	mysql_repo "github.com/wyfcoding/energyrisk/internal/riskanalytics/infrastructure/persistence/mysql"
	redis_repo "github.com/wyfcoding/energyrisk/internal/riskanalytics/infrastructure/persistence/redis"
	httpserver "github.com/wyfcoding/energyrisk/internal/riskanalytics/interfaces/http"
	"github.com/wyfcoding/energyrisk/pkg/metrics"
	"github.com/wyfcoding/energyrisk/pkg/middleware"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/riskanalytics/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("read config failed: %v", err))
	}

	// 2. Logger
	logger := logging.NewLogger("riskanalytics", "main", viper.GetString("log.level"))
	slog.SetDefault(logger.Logger)

	// 3. Database
	dsn := viper.GetString("database.source")
	db, err := gorm.Open(gorm_mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}

	// Auto Migrate
	if err := db.AutoMigrate(&domain.RiskMetrics{}); err != nil {
		panic(fmt.Sprintf("migrate db failed: %v", err))
	}

	// 4. Infrastructure
	redisClient := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    []string{viper.GetString("redis.addr")},
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	readRepo := redis_repo.NewMetricsReadRepository(redisClient)
	historyRepo := mysql_repo.NewMetricsHistoryRepository(db)
	jobRepo := memory.NewJobRepository()
	publisher := messaging.NewKafkaEventPublisher(viper.GetStringSlice("kafka.brokers"))

	m := metrics.New("riskanalytics")
	if err := m.Register(); err != nil {
		panic(fmt.Sprintf("register metrics failed: %v", err))
	}

	// 5. Application
	defaultSims := viper.GetInt("simulation.default_simulations")
	stressEngine := domain.NewStressTestEngine(defaultSims, viper.GetInt64("simulation.seed"))
	appService := application.NewRiskAnalyticsService(readRepo, historyRepo, publisher, stressEngine, m, defaultSims)

	jobManager := application.NewSimulationJobManager(
		jobRepo,
		publisher,
		m,
		viper.GetInt("simulation.workers"),
		time.Duration(viper.GetInt("simulation.job_timeout_seconds"))*time.Second,
		time.Duration(viper.GetInt("simulation.result_ttl_minutes"))*time.Minute,
	)

	// 6. Interfaces
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.GinRecoveryMiddleware())
	r.Use(middleware.GinLoggingMiddleware())
	r.Use(middleware.GinCORSMiddleware())
	r.Use(middleware.GinMetricsMiddleware(m))
	if burst := viper.GetFloat64("server.rate_limit_burst"); burst > 0 {
		limiter := middleware.NewRateLimiter(burst, viper.GetFloat64("server.rate_limit_per_second"))
		r.Use(middleware.GinRateLimitMiddleware(limiter))
	}

	handler := httpserver.NewRiskAnalyticsHandler(appService, jobManager)
	handler.RegisterRoutes(&r.RouterGroup)

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "READY"})
		})
	}
	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}

	// 独立端口暴露 Prometheus 指标
	if metricsPort := viper.GetInt("metrics.port"); metricsPort > 0 {
		if err := metrics.StartHTTPServer(metricsPort, "/metrics"); err != nil {
			panic(fmt.Sprintf("start metrics server failed: %v", err))
		}
	}

	// 7. Start
	g, ctx := errgroup.WithContext(context.Background())
	runCtx, stop := context.WithCancel(ctx)

	g.Go(func() error {
		return jobManager.Run(runCtx)
	})

	httpPort := viper.GetString("server.http_port")
	if httpPort == "" {
		httpPort = "8090"
	}
	server := &http.Server{Addr: fmt.Sprintf(":%s", httpPort), Handler: r}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 8. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown failed", "error", err)
		}
		if err := publisher.Close(); err != nil {
			slog.Error("kafka publisher close failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
