package main

import (
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"catalogservice/pkg/catalog/app"
	"catalogservice/pkg/catalog/application/bootstrap"
	"catalogservice/pkg/catalog/infrastructure/mysql"
)

type config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`

	DBConnectTimeout   time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
	DBOperationTimeout time.Duration `envconfig:"DB_OPERATION_TIMEOUT" default:"5s"`

	BootstrapMaxAttempts int           `envconfig:"BOOTSTRAP_MAX_ATTEMPTS" default:"10"`
	BootstrapBackoff     time.Duration `envconfig:"BOOTSTRAP_BACKOFF" default:"2s"`

	ServeAddress    string        `envconfig:"SERVE_ADDRESS" default:":5000"`
	MetricsAddress  string        `envconfig:"METRICS_ADDRESS"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	StaticRoot     string `envconfig:"STATIC_ROOT" default:"static"`
	CurrencySymbol string `envconfig:"CURRENCY_SYMBOL" default:"R$"`
	LogFile        string `envconfig:"LOG_FILE"`
}

// loadConfig reads the environment once, after an optional .env file.
func loadConfig(envFile string) (*config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "load %s", envFile)
	}

	c := &config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, errors.Wrap(err, "read configuration")
	}
	if c.DBPort <= 0 || c.DBPort > 65535 {
		return nil, errors.Errorf("DB_PORT out of range: %d", c.DBPort)
	}
	return c, nil
}

func (c *config) storeConfig() mysql.Config {
	return mysql.Config{
		Host:             c.DBHost,
		Port:             c.DBPort,
		Name:             c.DBName,
		User:             c.DBUser,
		Password:         c.DBPassword,
		ConnectTimeout:   c.DBConnectTimeout,
		OperationTimeout: c.DBOperationTimeout,
	}
}

func (c *config) bootstrapConfig() bootstrap.Config {
	return bootstrap.Config{MaxAttempts: c.BootstrapMaxAttempts, Backoff: c.BootstrapBackoff}
}

func (c *config) appConfig(registerer prometheus.Registerer) app.Config {
	return app.Config{
		Store:          c.storeConfig(),
		Bootstrap:      c.bootstrapConfig(),
		StaticRoot:     c.StaticRoot,
		CurrencySymbol: c.CurrencySymbol,
		Registerer:     registerer,
	}
}
