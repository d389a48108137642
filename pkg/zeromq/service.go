package zeromq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/forklift-teleop/controller/pkg/config"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/pebbe/zmq4"
)

var (
	ErrServiceClosed      = errors.New("zeromq service is closed")
	ErrInvalidMessage     = errors.New("invalid message format")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Envelope types on the request socket and the profile topics.
const (
	MsgTypeProfileRequest  = "PROFILE_REQUEST"
	MsgTypeProfileResponse = "PROFILE_RESPONSE"
	MsgTypeProfileUpdated  = "PROFILE_UPDATED"
	MsgTypeError           = "ERROR"
)

const (
	pollInterval  = 250 * time.Millisecond
	socketTimeout = time.Second
)

// ZeroMQMessage is the JSON envelope for requests, replies and profile events.
type ZeroMQMessage struct {
	Type      string      `json:"type"`
	Timestamp float64     `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ErrorResponse is the payload of an ERROR reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func newEnvelope(messageType string, data interface{}) ZeroMQMessage {
	return ZeroMQMessage{Type: messageType, Timestamp: float64(time.Now().Unix()), Data: data}
}

// MessageHandler answers one request type with a serialized reply.
type MessageHandler interface {
	HandleMessage(data []byte) ([]byte, error)
}

// HandlerFunc adapts a function to MessageHandler.
type HandlerFunc func(data []byte) ([]byte, error)

func (f HandlerFunc) HandleMessage(data []byte) ([]byte, error) {
	return f(data)
}

// MessageDispatcher picks the handler for a request by its envelope type.
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	logger   customlog.Logger
	mu       sync.RWMutex
}

func NewMessageDispatcher(logger customlog.Logger) *MessageDispatcher {
	return &MessageDispatcher{handlers: make(map[string]MessageHandler), logger: logger}
}

func (d *MessageDispatcher) RegisterHandler(messageType string, handler MessageHandler) {
	d.mu.Lock()
	d.handlers[messageType] = handler
	d.mu.Unlock()
	d.logger.Debugf("Handling %s requests", messageType)
}

// Dispatch decodes the envelope and hands the raw request to its handler.
func (d *MessageDispatcher) Dispatch(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}

	d.mu.RLock()
	handler, ok := d.handlers[msg.Type]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}
	return handler.HandleMessage(data)
}

// ZeroMQService is the controller's event bus: a REP socket answering
// profile requests and a PUB socket carrying control and profile events.
//
// The REP socket belongs to the serve goroutine once Start has run; the PUB
// socket is guarded by pubMu.
type ZeroMQService struct {
	ctx        *zmq4.Context
	rep        *zmq4.Socket
	pub        *zmq4.Socket
	repAddr    string
	pubAddr    string
	dispatcher *MessageDispatcher
	logger     customlog.Logger

	pubMu    sync.Mutex
	serving  atomic.Bool
	running  atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewZeroMQService binds both sockets. Wildcard ports ("tcp://host:*") are
// resolved and reported by RequestEndpoint and PublishEndpoint.
func NewZeroMQService(cfg config.ZeroMQBootstrap, logger customlog.Logger) (*ZeroMQService, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	s := &ZeroMQService{ctx: ctx, dispatcher: NewMessageDispatcher(logger), logger: logger}

	if s.rep, s.repAddr, err = bind(ctx, zmq4.REP, cfg.RequestBindAddress); err != nil {
		ctx.Term()
		return nil, err
	}
	if s.pub, s.pubAddr, err = bind(ctx, zmq4.PUB, cfg.PublishBindAddress); err != nil {
		s.rep.Close()
		ctx.Term()
		return nil, err
	}

	logger.Infof("Event bus bound: requests on %s, events on %s", s.repAddr, s.pubAddr)
	return s, nil
}

// bind opens a socket that never lingers or blocks past socketTimeout.
func bind(ctx *zmq4.Context, kind zmq4.Type, address string) (*zmq4.Socket, string, error) {
	socket, err := ctx.NewSocket(kind)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %v socket: %w", kind, err)
	}

	for _, set := range []func() error{
		func() error { return socket.SetLinger(0) },
		func() error { return socket.SetRcvtimeo(socketTimeout) },
		func() error { return socket.SetSndtimeo(socketTimeout) },
		func() error { return socket.Bind(address) },
	} {
		if err := set(); err != nil {
			socket.Close()
			return nil, "", fmt.Errorf("failed to bind %v socket to %s: %w", kind, address, err)
		}
	}

	endpoint, err := socket.GetLastEndpoint()
	if err != nil {
		endpoint = address
	}
	return socket, endpoint, nil
}

func (s *ZeroMQService) RegisterHandler(messageType string, handler MessageHandler) {
	s.dispatcher.RegisterHandler(messageType, handler)
}

// RequestEndpoint returns the bound REP endpoint.
func (s *ZeroMQService) RequestEndpoint() string { return s.repAddr }

// PublishEndpoint returns the bound PUB endpoint.
func (s *ZeroMQService) PublishEndpoint() string { return s.pubAddr }

// Start begins answering requests. Publishing works as soon as it returns.
func (s *ZeroMQService) Start() error {
	if s.serving.Swap(true) {
		return nil
	}
	s.running.Store(true)

	s.wg.Add(1)
	go s.serve()
	return nil
}

func (s *ZeroMQService) serve() {
	defer s.wg.Done()
	defer s.rep.Close()

	poller := zmq4.NewPoller()
	poller.Add(s.rep, zmq4.POLLIN)

	for s.running.Load() {
		ready, err := poller.Poll(pollInterval)
		if err != nil || len(ready) == 0 {
			if err != nil && s.running.Load() {
				s.logger.Warnf("Event bus poll failed: %v", err)
			}
			continue
		}

		request, err := s.rep.RecvBytes(0)
		if err != nil {
			if s.running.Load() {
				s.logger.Warnf("Event bus receive failed: %v", err)
			}
			continue
		}

		// A REP socket must reply before it can receive again.
		if _, err := s.rep.SendBytes(s.answer(request), 0); err != nil && s.running.Load() {
			s.logger.Warnf("Event bus reply failed: %v", err)
		}
	}
}

func (s *ZeroMQService) answer(request []byte) []byte {
	reply, err := s.dispatcher.Dispatch(request)
	if err == nil {
		return reply
	}

	s.logger.Warnf("Rejected event bus request: %v", err)
	code := 500
	if errors.Is(err, ErrInvalidMessage) || errors.Is(err, ErrUnknownMessageType) {
		code = 400
	}
	reply, _ = json.Marshal(newEnvelope(MsgTypeError, ErrorResponse{Message: err.Error(), Code: code}))
	return reply
}

// Stop closes both sockets and terminates the context. Safe to call twice.
func (s *ZeroMQService) Stop() {
	s.stopOnce.Do(func() {
		s.running.Store(false)

		s.pubMu.Lock()
		s.pub.Close()
		s.pub = nil
		s.pubMu.Unlock()

		s.wg.Wait()
		if !s.serving.Load() {
			s.rep.Close()
		}

		if err := s.ctx.Term(); err != nil {
			s.logger.Warnf("Error terminating ZMQ context: %v", err)
		}
		s.logger.Infof("Event bus stopped")
	})
}

// PublishMessage sends a topic frame followed by the payload.
func (s *ZeroMQService) PublishMessage(topic string, message []byte) error {
	if !s.running.Load() {
		return ErrServiceClosed
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if s.pub == nil {
		return ErrServiceClosed
	}
	if _, err := s.pub.SendMessage(topic, message); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", topic, err)
	}
	return nil
}

// PublishJSON wraps data in an envelope and publishes it on topic.
func (s *ZeroMQService) PublishJSON(topic, messageType string, data interface{}) error {
	payload, err := json.Marshal(newEnvelope(messageType, data))
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", messageType, err)
	}
	return s.PublishMessage(topic, payload)
}
