package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/dputra/student-records-api/api/swagger"
	"github.com/dputra/student-records-api/internal/etl"
	"github.com/dputra/student-records-api/internal/handler"
	"github.com/dputra/student-records-api/internal/middleware"
	"github.com/dputra/student-records-api/internal/repository"
	"github.com/dputra/student-records-api/internal/service"
	"github.com/dputra/student-records-api/pkg/cache"
	"github.com/dputra/student-records-api/pkg/config"
	"github.com/dputra/student-records-api/pkg/database"
	"github.com/dputra/student-records-api/pkg/logger"
	corsmiddleware "github.com/dputra/student-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dputra/student-records-api/pkg/middleware/requestid"
)

// @title Student Records API
// @version 0.1.0
// @description Student records service: batch load pipeline, registry operations, and reporting views
// @BasePath /
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	weightRepo := repository.NewGradeWeightRepository(db)
	reportRepo := repository.NewReportRepository(db)
	userRepo := repository.NewUserRepository(db)
	loadRepo := repository.NewLoadRepository(db)

	cacheService := service.NewCacheService(redisClient, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
	})
	studentService := service.NewStudentService(studentRepo, validate, logr)
	courseService := service.NewCourseService(courseRepo, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, validate, logr)
	reportService := service.NewReportService(reportRepo, weightRepo, studentRepo, courseRepo, attendanceRepo, cacheService, logr)
	gradeService := service.NewGradeService(gradeRepo, enrollmentRepo, reportService, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, enrollmentRepo, validate, logr)

	metrics := etl.NewMetrics()
	delimiter := ','
	if cfg.Pipeline.Delimiter != "" {
		delimiter = rune(cfg.Pipeline.Delimiter[0])
	}
	pipeline := etl.NewPipeline(loadRepo, logr, metrics, delimiter, time.Time{})
	pipelineService := service.NewPipelineService(pipeline, cfg.Pipeline.DataDir, logr)

	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService, enrollmentService)
	courseHandler := handler.NewCourseHandler(courseService, enrollmentService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, gradeService, attendanceService)
	gradeHandler := handler.NewGradeHandler(gradeService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	reportHandler := handler.NewReportHandler(reportService)
	pipelineHandler := handler.NewPipelineHandler(pipelineService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics.Registry()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	api.GET("/students", studentHandler.List)
	api.GET("/students/:id", studentHandler.Get)
	api.GET("/students/:id/enrollments", studentHandler.Enrollments)
	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)
	api.GET("/courses/:id/enrollments", courseHandler.Enrollments)
	api.GET("/enrollments/:id", enrollmentHandler.Get)
	api.GET("/enrollments/:id/grades", enrollmentHandler.Grades)
	api.GET("/enrollments/:id/attendance", enrollmentHandler.Attendance)

	api.GET("/reports/students/top", reportHandler.TopStudents)
	api.GET("/reports/students/:id/transcript", reportHandler.Transcript)
	api.GET("/reports/students/:id/transcript/export", reportHandler.ExportTranscript)
	api.GET("/reports/students/:id/attendance", reportHandler.AttendanceSummary)
	api.GET("/reports/courses/:id/roster", reportHandler.CourseRoster)
	api.GET("/reports/attendance/low", reportHandler.LowAttendance)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	protected.POST("/students", studentHandler.Create)
	protected.PUT("/students/:id/status", studentHandler.UpdateStatus)
	protected.DELETE("/students/:id", studentHandler.Deactivate)
	protected.POST("/courses", courseHandler.Create)
	protected.PUT("/courses/:id/status", courseHandler.UpdateStatus)
	protected.POST("/enrollments", enrollmentHandler.Create)
	protected.POST("/grades", gradeHandler.Create)
	protected.POST("/attendance", attendanceHandler.Create)
	protected.POST("/pipeline/runs", pipelineHandler.Trigger)
	protected.GET("/pipeline/runs/last", pipelineHandler.LastReport)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
