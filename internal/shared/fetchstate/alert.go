package fetchstate

import (
	"context"

	"restate/internal/shared/eventbus"
	"restate/internal/shared/logger"
)

// AlertPayload is the data of an eventbus.EventTypeAlert event.
type AlertPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// BusAlerter publishes alerts on an event bus so any connected UI can show them.
type BusAlerter struct {
	bus    eventbus.EventBusInterface
	source string
	log    logger.Logger
}

// NewBusAlerter creates an alerter publishing eventbus.EventTypeAlert events.
func NewBusAlerter(bus eventbus.EventBusInterface, source string, log logger.Logger) *BusAlerter {
	if log == nil {
		log = logger.Nop()
	}
	return &BusAlerter{bus: bus, source: source, log: log}
}

// Alert publishes the alert. It never blocks on slow subscribers.
func (a *BusAlerter) Alert(title, message string) {
	a.log.Infof("Alert %q: %s", title, message)
	a.bus.PublishAndForget(context.Background(), eventbus.NewBasicEventWithSource(
		eventbus.EventTypeAlert,
		AlertPayload{Title: title, Message: message},
		a.source,
	))
}
