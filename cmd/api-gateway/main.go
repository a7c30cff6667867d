package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/crs-api/api/swagger"
	"github.com/noah-isme/crs-api/internal/handler"
	"github.com/noah-isme/crs-api/internal/middleware"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
	"github.com/noah-isme/crs-api/internal/service"
	"github.com/noah-isme/crs-api/pkg/cache"
	"github.com/noah-isme/crs-api/pkg/config"
	"github.com/noah-isme/crs-api/pkg/database"
	"github.com/noah-isme/crs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/crs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/crs-api/pkg/middleware/requestid"
)

// @title Course Register API
// @version 1.0.0
// @description Course catalog and enrollment workflow for instructors and students
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.CatalogCache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.CatalogCache.TTL, logr, cfg.CatalogCache.Enabled)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, userRepo, cacheSvc, metricsSvc, validate, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, courseSvc, userRepo, metricsSvc, logr)
	exportSvc := service.NewExportService(registrationSvc, courseSvc, logr, cfg.Exports.Enabled)

	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	userHandler := handler.NewUserHandler(userSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, exportSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/users/me", userHandler.Me)
	authed.PUT("/users/me", userHandler.UpdateMe)
	authed.GET("/metrics/snapshot", metricsHandler.Snapshot)

	instructors := authed.Group("")
	instructors.Use(middleware.RequireRoles(models.RoleInstructor))
	instructors.POST("/courses", courseHandler.Create)
	instructors.PUT("/courses/:id", courseHandler.Update)
	instructors.GET("/courses/mine", courseHandler.Mine)
	instructors.GET("/courses/:id/roster", registrationHandler.Roster)
	instructors.GET("/courses/:id/roster/export", courseHandler.ExportRoster)
	instructors.POST("/registrations/approvals", registrationHandler.Approve)
	instructors.POST("/registrations/declines", registrationHandler.Decline)

	students := authed.Group("")
	students.Use(middleware.RequireRoles(models.RoleStudent))
	students.GET("/registrations/catalog", registrationHandler.Catalog)
	students.GET("/registrations/mine", registrationHandler.Mine)
	students.POST("/registrations/requests", registrationHandler.Request)
	students.DELETE("/registrations/enrollments/:courseId", registrationHandler.Drop)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
