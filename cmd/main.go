package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"primedag/consensus"
	"primedag/dag"
	"primedag/db"
	"primedag/handlers"
	"primedag/logger"
	"primedag/prime"
	"primedag/repository"
	"primedag/routers"
)

func main() {
	// Load config
	viper.SetConfigFile("config/config.yaml")
	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	appLogFile := viper.GetString("log.app_log_file")
	logLevel := viper.GetString("log.level")

	if err := logger.InitLogger(appLogFile, logLevel); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}

	logger.Logger.Info("Starting prime DAG node...")

	// Connect to LevelDB
	leveldbPath := viper.GetString("leveldb.path")
	ldb, err := db.NewLevelDB(leveldbPath)
	if err != nil {
		logger.Logger.Fatal("Failed to open leveldb", zap.Error(err))
	}
	defer ldb.Close()

	// Persistence collaborator
	store := repository.NewLevelDBStore(ldb)

	// Prime mathematics layer
	primeEngine := prime.NewEngine(viper.GetInt("prime.security_level"))

	// DAG graph store
	graph := dag.NewGraph(primeEngine, store)
	defer graph.Close()

	// Consensus engine
	engine := consensus.NewEngine(primeEngine, consensus.Config{
		ValidatorCount:    viper.GetInt("consensus.validator_count"),
		BlockTimeMs:       viper.GetInt("consensus.block_time_ms"),
		FinalityThreshold: viper.GetFloat64("consensus.finality_threshold"),
	})
	engine.Start()
	defer engine.Stop()

	// Initialize HTTP handlers
	h := handlers.NewHandler(graph, engine, primeEngine)

	// Setup router
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	// HTTP Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", viper.GetInt("server.port")),
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Logger.Info("Server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", viper.GetInt("server.port")))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Logger.Info("Shutdown signal received, exiting...")
	srv.Close()
}
