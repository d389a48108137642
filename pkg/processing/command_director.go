package processing

import (
	"errors"
	"fmt"
	"sync"

	customlog "github.com/forklift-teleop/controller/pkg/log"
)

var (
	// ErrDirectorStopped is returned when dispatching before Start or after Stop.
	ErrDirectorStopped = errors.New("command director is not running")
	// ErrUnknownChannel is returned for a channel with no lane or device path.
	ErrUnknownChannel = errors.New("unknown channel")
)

// CommandDirector routes commands to one single-worker lane per channel, so
// values on a channel reach the device in emission order while a slow
// channel never delays the others.
type CommandDirector struct {
	logger    customlog.Logger
	registry  *ChannelRegistry
	lanes     map[string]*ProcessingPool
	processor CommandProcessor
	handler   ResultHandler
	observer  CommandObserver
	running   bool
	mu        sync.RWMutex

	queueSize int
}

// DirectorOptions holds configuration options for the CommandDirector
type DirectorOptions struct {
	QueueSize int
}

// NewCommandDirector creates a new command director
func NewCommandDirector(
	logger customlog.Logger,
	registry *ChannelRegistry,
	options *DirectorOptions,
) *CommandDirector {
	if options == nil {
		options = &DirectorOptions{
			QueueSize: 64,
		}
	}

	return &CommandDirector{
		logger:    logger,
		registry:  registry,
		lanes:     make(map[string]*ProcessingPool),
		queueSize: options.QueueSize,
	}
}

// Initialize creates a lane for every channel in the registry
func (d *CommandDirector) Initialize() {
	d.mu.Lock()
	defer d.mu.Unlock()

	channels := d.registry.GetAllChannels()
	for _, channel := range channels {
		if _, exists := d.lanes[channel]; exists {
			continue
		}
		lane := NewProcessingPool(channel, 1, d.queueSize, d.logger)
		lane.SetProcessor(d.processor)
		lane.SetResultHandler(d.handler)
		lane.SetDropHandler(d.recordDrop)
		d.lanes[channel] = lane
	}

	d.logger.Infof("Command Director initialized with lanes %v (queue size %d)", channels, d.queueSize)
}

// SetProcessor sets the command processor function for all lanes
func (d *CommandDirector) SetProcessor(processor CommandProcessor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.processor = processor
	for _, lane := range d.lanes {
		lane.SetProcessor(processor)
	}
}

// SetResultHandler sets the result handler function for all lanes
func (d *CommandDirector) SetResultHandler(handler ResultHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handler = handler
	for _, lane := range d.lanes {
		lane.SetResultHandler(handler)
	}
}

// SetObserver sets the observer notified of dropped commands
func (d *CommandDirector) SetObserver(observer CommandObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observer = observer
}

// Dispatch resolves the device path and queues the command on its channel
// lane. It never blocks.
func (d *CommandDirector) Dispatch(cmd *Command) error {
	d.mu.RLock()
	running := d.running
	lane, exists := d.lanes[cmd.Channel]
	d.mu.RUnlock()

	if !running {
		return ErrDirectorStopped
	}

	path, known := d.registry.GetPath(cmd.Channel)
	if !exists || !known {
		return fmt.Errorf("%w: '%s'", ErrUnknownChannel, cmd.Channel)
	}
	cmd.Path = path

	if !lane.ProcessCommand(cmd) {
		return ErrDirectorStopped
	}
	return nil
}

// recordDrop accounts for a command a full lane evicted in favour of a newer one.
func (d *CommandDirector) recordDrop(cmd *Command) {
	d.registry.RecordDropped(cmd.Channel)

	d.mu.RLock()
	observer := d.observer
	d.mu.RUnlock()
	if observer != nil {
		observer.CommandDropped(cmd.Channel)
	}
}

// Start starts all lanes
func (d *CommandDirector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	d.running = true
	d.logger.Infof("Starting Command Director")

	for _, lane := range d.lanes {
		lane.Start()
	}
}

// Stop stops all lanes, letting queued commands drain
func (d *CommandDirector) Stop() {
	d.mu.Lock()
	running := d.running
	d.running = false
	lanes := make([]*ProcessingPool, 0, len(d.lanes))
	for _, lane := range d.lanes {
		lanes = append(lanes, lane)
	}
	d.mu.Unlock()

	if !running {
		return
	}

	d.logger.Infof("Stopping Command Director")
	for _, lane := range lanes {
		lane.Stop()
	}
	d.logger.Infof("Command Director stopped")
}

// GetPoolMetrics returns metrics for all lanes keyed by channel
func (d *CommandDirector) GetPoolMetrics() map[string]PoolMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()

	metrics := make(map[string]PoolMetrics, len(d.lanes))
	for channel, lane := range d.lanes {
		metrics[channel] = lane.GetMetrics()
	}
	return metrics
}
