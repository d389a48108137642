package processing

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// HTTPCommandProcessor delivers commands to the forklift as plain GET
// requests. Responses are read and discarded; there is no retry.
type HTTPCommandProcessor struct {
	logger  customlog.Logger
	timeout time.Duration
	port    int
}

// NewHTTPCommandProcessor creates a processor whose requests give up after
// timeout. A zero timeout means no limit. A zero port uses the scheme's
// default port.
func NewHTTPCommandProcessor(logger customlog.Logger, timeout time.Duration, port int) *HTTPCommandProcessor {
	return &HTTPCommandProcessor{
		logger:  logger,
		timeout: timeout,
		port:    port,
	}
}

// ProcessCommand performs GET {endpoint}/{path}?value={n}.
func (p *HTTPCommandProcessor) ProcessCommand(cmd *Command) error {
	if cmd.Endpoint.IsZero() {
		return fmt.Errorf("command for channel '%s' has no endpoint", cmd.Channel)
	}
	if cmd.Path == "" {
		return fmt.Errorf("command for channel '%s' has no device path", cmd.Channel)
	}

	target := cmd.URL()
	agent := fiber.Get(target)
	if agent.HostClient != nil {
		agent.MaxIdemponentCallAttempts = 1
		if p.port > 0 {
			agent.Addr = net.JoinHostPort(cmd.Endpoint.Host(), strconv.Itoa(p.port))
		}
	}
	if p.timeout > 0 {
		agent.Timeout(p.timeout)
	}

	p.logger.Debugf("Sending %s", target)

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("GET %s failed: %w", target, errors.Join(errs...))
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("GET %s failed: device answered %d", target, code)
	}
	return nil
}

// CreateProcessorFunc creates a CommandProcessor function for the pools
func (p *HTTPCommandProcessor) CreateProcessorFunc() CommandProcessor {
	return func(cmd *Command) error {
		return p.ProcessCommand(cmd)
	}
}
