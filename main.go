package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/veriflow/sentra/api/audit"
	"github.com/veriflow/sentra/api/config"
	"github.com/veriflow/sentra/api/controller"
	"github.com/veriflow/sentra/api/dao"
	"github.com/veriflow/sentra/api/db"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/pdp/directory"
	"github.com/veriflow/sentra/api/pdp/engine"
	"github.com/veriflow/sentra/api/pdp/repository"
	"github.com/veriflow/sentra/api/router"
	"github.com/veriflow/sentra/api/service"
	"github.com/veriflow/sentra/api/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize services and utilities
	validationUtil := util.NewValidationUtil()
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)

	// Initialize DAOs
	policyDAO := dao.NewPolicyDAO(db.Neo4jDriver, validationUtil)
	entityDAO := dao.NewEntityDAO(db.Neo4jDriver)

	// Initialize the decision engine
	policyRepository := repository.NewAdapter(policyDAO)
	graphDirectory := directory.NewGraphDirectory(db.Neo4jDriver)
	matcher := engine.NewPredicateMatcher(graphDirectory, config.GetDuration("engine.directoryTimeout"))
	selector := engine.NewCandidateSelector(validationUtil)
	evaluator := engine.NewPolicyEvaluator(selector, matcher)

	// Initialize services
	evaluationService := service.NewEvaluationService(
		policyRepository,
		entityDAO,
		evaluator,
		validationUtil,
		auditService,
		eventBus,
	)

	// Initialize controllers
	controllers := controller.InitializeControllers(evaluationService, auditService, eventBus)

	// Set up the router
	engineRouter := router.SetupRouter(
		controllers,
		config.GetInt("engine.rateLimitRequests"),
		config.GetDuration("engine.rateLimitWindow"),
	)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engineRouter,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
