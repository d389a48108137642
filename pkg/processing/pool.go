package processing

import (
	"sync"
	"time"

	customlog "github.com/forklift-teleop/controller/pkg/log"
)

// ProcessResult is the result of delivering a command
type ProcessResult struct {
	Command  *Command
	Duration time.Duration
	Error    error
}

// ResultHandler is a function that handles processed results
type ResultHandler func(result *ProcessResult)

// CommandProcessor delivers a command in a worker
type CommandProcessor func(cmd *Command) error

// ProcessingPool is a bounded queue drained by a fixed set of workers.
// With one worker, commands are delivered in the order they were queued.
type ProcessingPool struct {
	name          string
	workerCount   int
	logger        customlog.Logger
	commandQueue  chan *Command
	running       bool
	wg            sync.WaitGroup
	mu            sync.RWMutex
	processor     CommandProcessor
	resultHandler ResultHandler
	dropHandler   func(cmd *Command)
	queueSize     int
	metrics       *PoolMetrics
	metricsMu     sync.Mutex
}

// PoolMetrics tracks metrics for a processing pool
type PoolMetrics struct {
	ProcessedCount    int64
	ErrorCount        int64
	QueuedCount       int64
	DroppedCount      int64
	LastProcessedTime int64
	ProcessingTimeAvg int64 // in microseconds
	ProcessingTimeMax int64 // in microseconds
}

// NewProcessingPool creates a new processing pool
func NewProcessingPool(
	name string,
	workerCount int,
	queueSize int,
	logger customlog.Logger,
) *ProcessingPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &ProcessingPool{
		name:         name,
		workerCount:  workerCount,
		queueSize:    queueSize,
		logger:       logger,
		commandQueue: make(chan *Command, queueSize),
		metrics:      &PoolMetrics{},
	}
}

// SetProcessor sets the command processor function
func (p *ProcessingPool) SetProcessor(processor CommandProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processor = processor
}

// SetResultHandler sets the result handler function
func (p *ProcessingPool) SetResultHandler(handler ResultHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resultHandler = handler
}

// SetDropHandler sets the function told about commands evicted from a full queue
func (p *ProcessingPool) SetDropHandler(handler func(cmd *Command)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropHandler = handler
}

// ProcessCommand adds a command to the queue without blocking. When the
// queue is full the oldest queued command is evicted, so the most recent
// value on a lane is never the one lost. It returns false only when the
// pool is not running.
func (p *ProcessingPool) ProcessCommand(cmd *Command) bool {
	evicted, dropHandler, ok := p.enqueue(cmd)
	if dropHandler != nil {
		for _, old := range evicted {
			dropHandler(old)
		}
	}
	return ok
}

// enqueue runs under the read lock; drop callbacks run after it is released.
func (p *ProcessingPool) enqueue(cmd *Command) ([]*Command, func(*Command), bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		p.logger.Warnf("%s pool not running, discarding command", p.name)
		return nil, nil, false
	}

	p.metricsMu.Lock()
	p.metrics.QueuedCount++
	p.metricsMu.Unlock()

	var evicted []*Command
	for {
		select {
		case p.commandQueue <- cmd:
			return evicted, p.dropHandler, true
		default:
		}

		// The worker may drain the queue between the two selects.
		select {
		case old := <-p.commandQueue:
			p.metricsMu.Lock()
			p.metrics.DroppedCount++
			p.metricsMu.Unlock()
			p.logger.Warnf("%s pool queue is full, discarding oldest command (value=%s)", p.name, FormatValue(old.Value))
			evicted = append(evicted, old)
		default:
		}
	}
}

// Start starts the processing pool workers
func (p *ProcessingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops accepting commands and waits for queued ones to drain.
func (p *ProcessingPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.commandQueue)
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)

	p.wg.Wait()
	p.logger.Infof("%s pool stopped", p.name)

	p.logMetrics()
}

// worker delivers commands from the queue
func (p *ProcessingPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for cmd := range p.commandQueue {
		p.mu.RLock()
		processor := p.processor
		resultHandler := p.resultHandler
		p.mu.RUnlock()

		if processor == nil {
			p.logger.Errorf("No command processor set for %s pool", p.name)
			continue
		}

		startTime := time.Now()
		err := processor(cmd)
		elapsed := time.Since(startTime)
		processingTime := elapsed.Microseconds()

		p.metricsMu.Lock()
		p.metrics.ProcessedCount++
		p.metrics.LastProcessedTime = time.Now().UnixNano()
		if p.metrics.ProcessingTimeAvg == 0 {
			p.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > p.metrics.ProcessingTimeMax {
			p.metrics.ProcessingTimeMax = processingTime
		}
		if err != nil {
			p.metrics.ErrorCount++
		}
		p.metricsMu.Unlock()

		if resultHandler != nil {
			resultHandler(&ProcessResult{
				Command:  cmd,
				Duration: elapsed,
				Error:    err,
			})
		}
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

// GetMetrics returns a copy of the current metrics
func (p *ProcessingPool) GetMetrics() PoolMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	return PoolMetrics{
		ProcessedCount:    p.metrics.ProcessedCount,
		ErrorCount:        p.metrics.ErrorCount,
		QueuedCount:       p.metrics.QueuedCount,
		DroppedCount:      p.metrics.DroppedCount,
		LastProcessedTime: p.metrics.LastProcessedTime,
		ProcessingTimeAvg: p.metrics.ProcessingTimeAvg,
		ProcessingTimeMax: p.metrics.ProcessingTimeMax,
	}
}

// logMetrics logs the current metrics
func (p *ProcessingPool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, dropped=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.DroppedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *ProcessingPool) GetName() string {
	return p.name
}

// GetQueueLength returns the current length of the command queue
func (p *ProcessingPool) GetQueueLength() int {
	return len(p.commandQueue)
}

// GetQueueCapacity returns the capacity of the command queue
func (p *ProcessingPool) GetQueueCapacity() int {
	return p.queueSize
}
