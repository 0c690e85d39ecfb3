// Package app assembles the catalog HTTP handler. Every construction runs the
// bootstrap sequence first, so any process embedding the handler gets a
// reachable, migrated and seeded store or an error.
package app

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"catalogservice/pkg/catalog/application/bootstrap"
	"catalogservice/pkg/catalog/domain/model"
	"catalogservice/pkg/catalog/domain/service"
	"catalogservice/pkg/catalog/infrastructure/events"
	"catalogservice/pkg/catalog/infrastructure/mysql"
	"catalogservice/pkg/catalog/infrastructure/static"
	"catalogservice/pkg/catalog/transport"
)

type Config struct {
	Store          mysql.Config
	Bootstrap      bootstrap.Config
	StaticRoot     string
	CurrencySymbol string
	// Registerer receives HTTP metrics and may be shared across handlers;
	// nil disables them.
	Registerer prometheus.Registerer
}

func NewHandler(ctx context.Context, config Config) (http.Handler, error) {
	return newHandler(ctx, config, mysql.NewConnector(config.Store))
}

func newHandler(ctx context.Context, config Config, connector model.Connector) (http.Handler, error) {
	assets, err := static.NewServer(config.StaticRoot)
	if err != nil {
		return nil, err
	}

	if err := bootstrap.NewSequencer(connector, config.Bootstrap).EnsureReady(ctx); err != nil {
		return nil, errors.Wrap(err, "store not ready")
	}

	var metrics *transport.Metrics
	if config.Registerer != nil {
		metrics = transport.NewMetrics(config.Registerer)
	}

	catalog := service.NewCatalogService(connector, events.NewLogDispatcher(nil), config.CurrencySymbol)
	return transport.Router(catalog, assets, metrics), nil
}
