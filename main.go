package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docgate/docgate/handlers"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/database"
	dochandler "github.com/docgate/docgate/internal/document/handler"
	"github.com/docgate/docgate/internal/document/repository"
	"github.com/docgate/docgate/internal/document/service"
	"github.com/docgate/docgate/internal/models"
	"github.com/docgate/docgate/internal/rules"
	"github.com/docgate/docgate/internal/sessions"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/internal/tokens"
	"github.com/docgate/docgate/internal/users"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/docgate/docgate/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging first (LOG_LEVEL: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v rules_file=%q", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Rules.File)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS for dev/test; production fronts this with a stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Redis early: token blacklist, optional sessions and rate limiting
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Rule set: file-defined or the built-in demo rules
	var ruleSet *rules.RuleSet
	if cfg.Rules.File != "" {
		ruleSet, err = rules.ParseFile(cfg.Rules.File)
		if err != nil {
			logger.Fatalf("failed to load rules from %s: %v", cfg.Rules.File, err)
		}
		logger.Infof("loaded rules for collections %v from %s", ruleSet.Collections(), cfg.Rules.File)
	} else {
		ruleSet = rules.Default()
		logger.Infof("using built-in rule set for collections %v", ruleSet.Collections())
	}

	// Document store: Mongo when configured, in-memory otherwise
	var docRepo repository.Repository
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
			mongoClient = nil
		}
	}
	var userSvc *users.Service
	var sessionsSvc *sessions.Service
	if mongoClient != nil {
		defer func() { _ = mongoClient.Disconnect(ctx) }()
		db := mongoClient.Database(cfg.MongoDB.Database)
		docRepo = repository.NewMongoRepo(db.Collection("documents"))
		userSvc = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
		if redisClient == nil {
			sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
		}
	} else {
		logger.Warnf("running with in-memory document store; data will not survive restarts")
		docRepo = repository.NewMemoryRepo()
		userSvc = users.NewService(users.NewMemoryUserRepository())
	}
	if sessionsSvc == nil && redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("using Redis for session storage")
	}
	if sessionsSvc == nil {
		logger.Fatalf("no session store available: configure MONGODB_URI or REDIS_HOST")
	}

	docSvc := service.New(docRepo, ruleSet)

	// observe auth-state changes
	userSvc.Subscribe(func(ident *models.Identity) {
		if ident == nil {
			logger.Debugf("auth state: signed out")
			return
		}
		logger.Debugf("auth state: signed in as %s", ident.UID)
	})

	verifier := tokens.NewVerifier(cfg.JWT.Secret)

	// Health + readiness
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{
			"sessions": sessionsSvc != nil,
			"store":    docRepo != nil,
		}
		if cfg.Redis.Host != "" {
			deps["redis"] = redisClient != nil
			if !deps["redis"] {
				ready = false
			}
		}
		if cfg.MongoDB.URI != "" {
			deps["mongo"] = mongoClient != nil
			if !deps["mongo"] {
				ready = false
			}
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// Local identity: signup/login/refresh/logout (+ optional OIDC exchange)
	authHandler := handlers.NewAuthHandler(cfg, userSvc, sessionsSvc)
	authHandler.Register(r.Group("/"))

	// Document store and dice roller run behind the optional-identity
	// middleware: rules decide, not the transport.
	guarded := r.Group("/")
	guarded.Use(middleware.OptionalAuthMiddleware(verifier))
	dochandler.RegisterCollectionRoutes(guarded, docSvc)
	handlers.RegisterDiceRoutes(guarded, docSvc)

	// Admin surface requires a verified token before the admin-flag check
	var snapshots *storage.SnapshotStore
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		snapshots, err = storage.NewSnapshotStore(mcfg)
		if err != nil {
			logger.Warnf("snapshot storage unavailable: %v", err)
			snapshots = nil
		}
	}
	adminGroup := r.Group("/api")
	adminGroup.Use(middleware.AuthMiddleware(verifier))
	handlers.NewAdminHandler(docRepo, snapshots).Register(adminGroup)

	// Prometheus metrics (policy decisions, rate limiter)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting docgate on %s (store=%s)", addr, storeKind(mongoClient))
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

func storeKind(mongoClient *mongo.Client) string {
	if mongoClient != nil {
		return "mongo"
	}
	return "memory"
}
