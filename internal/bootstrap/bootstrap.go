package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Harrysk/ibm.qradar/config"
	"github.com/Harrysk/ibm.qradar/infrastructure/qradar"
	"github.com/Harrysk/ibm.qradar/pkg/logging"
	"github.com/Harrysk/ibm.qradar/pkg/metrics"
)

// Dependencies holds everything a module binary needs to talk to QRadar
type Dependencies struct {
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *metrics.Collector
	Client  *qradar.Client
}

// Initialize loads configuration and builds the logger, metrics collector and
// QRadar client for the named module
func Initialize(moduleName string) (*Dependencies, error) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return nil, err
	}
	return InitializeWithConfig(moduleName, cfg)
}

// InitializeWithConfig builds the dependencies from an already loaded configuration
func InitializeWithConfig(moduleName string, cfg *config.Config) (*Dependencies, error) {
	loggerConfig := cfg.Logging
	loggerConfig.ServiceName = moduleName

	logger, err := logging.NewLogger(loggerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var collector *metrics.Collector
	opts := []qradar.ClientOption{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
		opts = append(opts, qradar.WithMetrics(collector))
	}
	if cfg.RateLimit.Enabled {
		opts = append(opts, qradar.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	client, err := qradar.NewClient(cfg.Connection, logger, opts...)
	if err != nil {
		logger.Cleanup()
		return nil, fmt.Errorf("failed to initialize QRadar client: %w", err)
	}

	logger.Debug("Module initialized",
		zap.String("host", cfg.Connection.Host),
		zap.Bool("validate_certs", cfg.Connection.ValidateCerts),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
	)

	return &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
		Client:  client,
	}, nil
}

// Cleanup exports metrics and flushes the logger
func (d *Dependencies) Cleanup() {
	if d.Metrics != nil {
		if err := d.Metrics.WriteTextfile(d.Config.Metrics.TextfilePath); err != nil {
			d.Logger.Warn("Failed to export metrics", zap.Error(err))
		}
	}
	d.Logger.Cleanup()
}
