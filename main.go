package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	phttp "phishguard/http"
	"phishguard/logging"
	"phishguard/ml"
	"phishguard/predict"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Model struct {
		Type  string `yaml:"type"`
		Path  string `yaml:"path"`
		Watch bool   `yaml:"watch"`
	} `yaml:"model"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	Log struct {
		Level string `yaml:"level"`
		Path  string `yaml:"path"`
	} `yaml:"log"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.Must(config.Log.Level, config.Log.Path)
	defer logger.Sync()

	// The service starts even when the model is missing; predictions fail
	// fast with a clear error and the health check reports the state.
	var model ml.Classifier
	if loaded, err := ml.LoadModel(config.Model.Type, config.Model.Path); err != nil {
		logger.Warn("model not loaded, predictions will be unavailable",
			zap.String("path", config.Model.Path), zap.Error(err))
	} else {
		model = loaded
		logger.Info("model loaded", zap.String("path", config.Model.Path))
	}

	service, err := predict.NewService(model, config.Cache.Size, logger)
	if err != nil {
		logger.Fatal("failed to create prediction service", zap.Error(err))
	}

	if config.Model.Watch {
		watcher, err := predict.WatchModel(service, config.Model.Type, config.Model.Path, logger)
		if err != nil {
			logger.Warn("model watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	serverConfig := phttp.DefaultServerConfig()
	if config.Http.Port > 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := phttp.NewServer(serverConfig, phttp.NewHandler(service, logger), logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
