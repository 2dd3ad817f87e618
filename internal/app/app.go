package app

import (
	"context"
	"course_cache_engine/internal/cache"
	"course_cache_engine/internal/config"
	"course_cache_engine/internal/controller"
	"course_cache_engine/internal/repository"
	"course_cache_engine/internal/service"
	"course_cache_engine/internal/util"
	"course_cache_engine/pkg/database"
	"course_cache_engine/pkg/logger"
	"course_cache_engine/pkg/monitoring"
	"course_cache_engine/pkg/security"
	"course_cache_engine/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	content    *repository.ContentRepository
	submission *repository.SubmissionRepository
	threshold  *repository.ThresholdRepository
}

type services struct {
	courseCache *service.CourseCacheService
}

type controllers struct {
	courseCache *controller.CourseCacheController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ReloadConfig 由配置监听器调用
func (a *App) ReloadConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	content := repository.NewContentRepository(db)
	return &repositories{
		content:    content,
		submission: repository.NewSubmissionRepository(db, content),
		threshold:  repository.NewThresholdRepository(db),
	}
}

// newStore 按配置选择缓存存储
func newStore(cfg *config.CacheConfig, rdb *redis.Client) cache.Store {
	if cfg.Backend == util.CacheBackendMemory {
		return cache.NewMemoryStore()
	}
	return cache.NewRedisStore(rdb)
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	store := newStore(&cfg.Cache, rdb)
	codec := cache.NewCodec(cfg.Cache.Compress)
	cacheLog := logger.Log.Named("cache")

	common := []cache.Option{
		cache.WithLogger(cacheLog),
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
		cache.WithCodec(codec),
		cache.WithMaxBuildAttempts(cfg.Cache.MaxBuildAttempts),
		cache.WithRegenerateDirty(cfg.Cache.RegenerateDirty),
	}
	content := cache.NewContentCache(store, repos.content, common...)
	points := cache.NewPointsCache(store, content, repos.submission,
		append(common, cache.WithTTL(cfg.Cache.PointsTTL))...)

	s := &services{
		courseCache: service.NewCourseCacheService(content, points, repos.threshold, logger.Log.Named("service")),
	}

	// 写路径提交后同步失效
	repos.content.SetHooks(s.courseCache)
	repos.submission.SetHooks(s.courseCache)

	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.courseCache.UpdateOptions(cfg.Cache)
	})
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		courseCache: controller.NewCourseCacheController(s.courseCache),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute,
		"/health", "/metrics"))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Cache.Backend == util.CacheBackendRedis {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	} else {
		logger.Log.Warn("Using in-process cache store, generations are not shared between instances")
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, app.Redis)
	controllers := app.initControllers(app.services, db, app.Redis)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("course-cache-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
