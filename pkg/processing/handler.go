package processing

import (
	"time"

	customlog "github.com/forklift-teleop/controller/pkg/log"
)

// CommandObserver receives delivery outcomes, typically for metrics.
type CommandObserver interface {
	CommandSent(channel string, value float64, elapsed time.Duration)
	CommandFailed(channel string, elapsed time.Duration)
	CommandDropped(channel string)
}

// LoggingResultHandler logs delivery results and records them in the
// channel registry and the observer
type LoggingResultHandler struct {
	logger   customlog.Logger
	registry *ChannelRegistry
	observer CommandObserver
}

// NewLoggingResultHandler creates a new logging result handler. observer
// may be nil.
func NewLoggingResultHandler(logger customlog.Logger, registry *ChannelRegistry, observer CommandObserver) *LoggingResultHandler {
	return &LoggingResultHandler{
		logger:   logger,
		registry: registry,
		observer: observer,
	}
}

// HandleResult handles a delivered command result
func (h *LoggingResultHandler) HandleResult(result *ProcessResult) {
	cmd := result.Command

	if result.Error != nil {
		// Device unreachability is expected during normal operation.
		h.logger.Debugf("Command for channel '%s' not delivered: %v", cmd.Channel, result.Error)
		h.registry.RecordFailed(cmd.Channel, result.Error)
		if h.observer != nil {
			h.observer.CommandFailed(cmd.Channel, result.Duration)
		}
		return
	}

	h.logger.Debugf("Delivered %s=%s (session %s, %s)",
		cmd.Channel, FormatValue(cmd.Value), cmd.SessionID, result.Duration)
	h.registry.RecordSent(cmd.Channel, cmd.Value, cmd.Timestamp)
	if h.observer != nil {
		h.observer.CommandSent(cmd.Channel, cmd.Value, result.Duration)
	}
}

// CreateHandlerFunc creates a ResultHandler function for the ProcessingPool
func (h *LoggingResultHandler) CreateHandlerFunc() ResultHandler {
	return func(processResult *ProcessResult) {
		if processResult == nil || processResult.Command == nil {
			h.logger.Errorf("Received empty ProcessResult")
			return
		}
		h.HandleResult(processResult)
	}
}
