package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"coursecert/certificate-backend/internal/assets"
	"coursecert/certificate-backend/internal/auth"
	"coursecert/certificate-backend/internal/certificate"
	"coursecert/certificate-backend/internal/config"
	"coursecert/certificate-backend/internal/notifications"
	"coursecert/certificate-backend/internal/settings"
	"coursecert/certificate-backend/pkg/pdf"
	"coursecert/certificate-backend/pkg/security"
	"coursecert/certificate-backend/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	ctx := context.Background()

	// Database (optional)
	var db *sqlx.DB
	if cfg.Database.Host != "" {
		db, err = sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.MaxLifetime)
		defer db.Close()
		logger.Info("Connected to database", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
	}

	// AWS clients (optional)
	var (
		s3Client     storage.S3Client
		sesClient    *sesv2.Client
		snsClient    *sns.Client
		dynamoClient *dynamodb.Client
	)
	if cfg.UsesAWS() {
		awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
		if err != nil {
			logger.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
		s3Client = storage.NewS3Client(s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWS.Endpoint != ""
		}))
		sesClient = sesv2.NewFromConfig(awsCfg)
		snsClient = sns.NewFromConfig(awsCfg)
		dynamoClient = dynamodb.NewFromConfig(awsCfg)
		logger.Info("AWS clients configured", zap.String("region", awsCfg.Region), zap.Bool("custom_endpoint", awsCfg.BaseEndpoint != nil))
	}

	assetCache := assets.NewCache(cfg.Certificate.AssetCacheTTL)
	defer assetCache.Stop()

	// Settings
	settingsStore, err := newSettingsStore(cfg, db, dynamoClient)
	if err != nil {
		logger.Fatal("Failed to initialize settings store", zap.Error(err), zap.String("backend", cfg.SettingsStore.Backend))
	}
	settingsService := settings.NewService(settingsStore, logger, settings.WithInvalidator(assetCache))
	settingsHandler := settings.NewHandler(settingsService, logger)

	// Assets
	loaderOpts := []assets.LoaderOption{
		assets.WithCache(assetCache),
		assets.WithHTTPClient(&http.Client{Timeout: cfg.Certificate.AssetTimeout}),
	}
	if s3Client != nil {
		loaderOpts = append(loaderOpts, assets.WithS3(s3Client))
	}
	if cfg.Certificate.DefaultBackground != "" {
		loaderOpts = append(loaderOpts, assets.WithDefaultBackground(cfg.Certificate.DefaultBackground))
	}
	loader := assets.NewLoader(logger, loaderOpts...)

	// Rendering
	fonts := certificate.DefaultFonts()
	surfaceOpts := []pdf.SurfaceOption{pdf.WithMetadata("Certificate of Completion", cfg.Certificate.Author)}
	if cfg.Certificate.HeadingFontFile != "" {
		fonts.Heading = certificate.Font{Family: cfg.Certificate.HeadingFontFamily}
		fonts.Label = certificate.Font{Family: cfg.Certificate.HeadingFontFamily}
		surfaceOpts = append(surfaceOpts, pdf.WithUTF8Font(cfg.Certificate.HeadingFontFamily, "", cfg.Certificate.HeadingFontFile))
	}
	if cfg.Certificate.DecorativeFontFile != "" {
		fonts.Decorative = certificate.Font{Family: cfg.Certificate.DecorativeFontFamily}
		surfaceOpts = append(surfaceOpts, pdf.WithUTF8Font(cfg.Certificate.DecorativeFontFamily, "", cfg.Certificate.DecorativeFontFile))
	}
	engine := certificate.NewEngine(
		certificate.WithFonts(fonts),
		certificate.WithImageSizes(certificate.ImageSizes{
			SignatureWidthPx:  cfg.Certificate.SignatureWidthPx,
			SignatureHeightPx: cfg.Certificate.SignatureHeightPx,
			LogoWidthPx:       cfg.Certificate.LogoWidthPx,
		}),
	)
	renderer := certificate.NewRenderer(engine, func(size pdf.PageSize) (pdf.Surface, error) {
		return pdf.NewFpdfSurface(size, loader, surfaceOpts...)
	})

	// Issuance
	repo := certificate.NewMemoryRepository()
	if db != nil {
		repo, err = certificate.NewPostgresRepository(ctx, db)
		if err != nil {
			logger.Fatal("Failed to initialize certificate repository", zap.Error(err))
		}
	}

	verificationSecret := cfg.Security.VerificationSecret
	if verificationSecret == "" {
		verificationSecret = cfg.Security.JWTSecret
	}
	signer, err := security.NewCodeSigner(verificationSecret)
	if err != nil {
		logger.Fatal("Failed to initialize verification codes", zap.Error(err))
	}

	var archive *certificate.Archive
	if cfg.Storage.ArchiveBucket != "" {
		archive = certificate.NewArchive(s3Client, cfg.Storage.ArchiveBucket, cfg.Storage.PresignTTL)
	}

	var (
		mailer    *notifications.Mailer
		publisher *notifications.Publisher
	)
	if cfg.Notifications.EmailFrom != "" {
		mailer = notifications.NewMailer(sesClient, cfg.Notifications.EmailFrom, cfg.Notifications.EmailFromName, logger)
	}
	if cfg.Notifications.TopicARN != "" {
		publisher = notifications.NewPublisher(snsClient, cfg.Notifications.TopicARN)
	}
	notifier := notifications.NewService(mailer, publisher, logger)

	certService := certificate.NewService(renderer, settingsService, repo, signer, archive, notifier, logger)
	certHandler := certificate.NewHandler(certService, logger)

	// Setup Router
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), cors())

	requireAuth := auth.Middleware(cfg.Security.JWTSecret)

	// Register Routes
	api := router.Group("/api/v1")
	{
		certHandler.RegisterRoutes(api, requireAuth)
		settingsHandler.RegisterRoutes(api.Group("/settings", requireAuth))
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.String("settings_backend", cfg.SettingsStore.Backend),
		zap.Bool("archive", archive != nil))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.json"
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if strings.EqualFold(level, "debug") {
		logger, err = zap.NewDevelopment()
	} else {
		zcfg := zap.NewProductionConfig()
		if lvl, perr := zapcore.ParseLevel(level); perr == nil {
			zcfg.Level = zap.NewAtomicLevelAt(lvl)
		}
		logger, err = zcfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newSettingsStore(cfg *config.Config, db *sqlx.DB, dynamoClient *dynamodb.Client) (settings.Store, error) {
	switch strings.ToLower(cfg.SettingsStore.Backend) {
	case config.BackendPostgres:
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		return settings.NewGormStore(gdb)
	case config.BackendDynamoDB:
		return settings.NewDynamoStore(dynamoClient, cfg.SettingsStore.Table, cfg.SettingsStore.Key), nil
	default:
		return settings.NewMemoryStore(nil), nil
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Certificate-ID, X-Verification-Code")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
