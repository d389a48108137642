package processing

import (
	"net/url"
	"strconv"
	"time"

	"github.com/forklift-teleop/controller/pkg/endpoint"
)

// Command is one value to deliver to the forklift. Path is filled in by the
// director from the channel registry.
type Command struct {
	SessionID string
	Endpoint  endpoint.Endpoint
	Channel   string
	Path      string
	Value     float64
	Timestamp int64
}

// NewCommand stamps a command with the current time.
func NewCommand(sessionID string, ep endpoint.Endpoint, channel string, value float64) *Command {
	return &Command{
		SessionID: sessionID,
		Endpoint:  ep,
		Channel:   channel,
		Value:     value,
		Timestamp: GetCurrentTimestamp(),
	}
}

// GetCurrentTimestamp gets the current timestamp in nanoseconds
func GetCurrentTimestamp() int64 {
	return time.Now().UnixNano()
}

// FormatValue renders v as the shortest decimal that round-trips, e.g.
// "42" or "-12.5".
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// URL returns the device request URL, {endpoint}/{path}?value={n}.
func (c *Command) URL() string {
	return c.Endpoint.URL(c.Path, url.Values{"value": {FormatValue(c.Value)}})
}
