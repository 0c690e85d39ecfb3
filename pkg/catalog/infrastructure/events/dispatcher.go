package events

import (
	log "github.com/sirupsen/logrus"

	"catalogservice/pkg/catalog/domain/model"
	"catalogservice/pkg/catalog/domain/service"
)

// LogDispatcher records domain events in the service log.
type LogDispatcher struct {
	logger log.FieldLogger
}

func NewLogDispatcher(logger log.FieldLogger) *LogDispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(event service.Event) error {
	entry := d.logger.WithField("event", event.Type())
	if e, ok := event.(model.ProductAdded); ok {
		entry = entry.WithFields(log.Fields{
			"productID": e.ProductID,
			"name":      e.Name,
			"price":     e.Price,
		})
	}
	entry.Info("Domain event")
	return nil
}
