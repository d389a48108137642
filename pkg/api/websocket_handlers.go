package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"syscall"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/forklift-teleop/controller/domain/session"
	"github.com/forklift-teleop/controller/pkg/config"
	"github.com/forklift-teleop/controller/pkg/endpoint"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/forklift-teleop/controller/pkg/readout"
	"github.com/forklift-teleop/controller/services"
	fiberws "github.com/gofiber/contrib/websocket"
	"k8s.io/utils/clock"
)

const closeWriteWait = time.Second

// ValidationRecorder counts endpoint validations, typically for metrics.
type ValidationRecorder interface {
	RecordValidation(valid bool)
}

// ControlOptions wires a ControlWebSocketHandler. Manager, Profiles and
// Dispatcher are required.
type ControlOptions struct {
	Manager     *session.Manager
	Profiles    services.ProfileService
	Dispatcher  session.Dispatcher
	Publisher   session.EventPublisher
	Recorder    session.EmissionRecorder
	Validations ValidationRecorder
	Clock       clock.WithTicker
	QueueSize   int
	Logger      customlog.Logger
}

// ControlWebSocketHandler runs one control session per websocket connection.
type ControlWebSocketHandler struct {
	opts   ControlOptions
	logger customlog.Logger
}

// NewControlWebSocketHandler creates the handler for /ws/control.
func NewControlWebSocketHandler(opts ControlOptions) *ControlWebSocketHandler {
	if opts.Manager == nil || opts.Profiles == nil || opts.Dispatcher == nil {
		panic("Manager, Profiles and Dispatcher are required in NewControlWebSocketHandler")
	}
	if opts.Logger == nil {
		opts.Logger = customlog.Discard()
	}
	return &ControlWebSocketHandler{opts: opts, logger: opts.Logger}
}

// socketWriter sends JSON frames. It is only used from the session loop.
type socketWriter struct {
	conn   *fiberws.Conn
	logger customlog.Logger
}

func (w *socketWriter) write(v interface{}) {
	if err := w.conn.WriteJSON(v); err != nil {
		w.logger.Debugf("Control WS write failed: %v", err)
	}
}

func (w *socketWriter) writeError(err error) {
	w.write(ErrorMessage{Type: MsgError, Message: err.Error()})
}

// Handle serves one dashboard connection. Messages are decoded here and
// applied on the session loop, which is also the only writer.
func (h *ControlWebSocketHandler) Handle(conn *fiberws.Conn) {
	remote := conn.RemoteAddr().String()
	h.logger.Infof("Control WebSocket connected: %s", remote)

	w := &socketWriter{conn: conn, logger: h.logger}

	var sess *session.Session
	sink := func(r readout.Reading) {
		msg := ReadoutMessage{Type: MsgReadout, Control: r.Control, Value: r.Value, Display: r.Display}
		if r.Control == config.ChannelThrottle {
			needle := sess.Scale().Needle(math.Abs(r.Value))
			msg.Needle = &needle
		}
		w.write(msg)
	}

	sess, err := h.opts.Manager.Open(session.Options{
		Profile:    h.opts.Profiles.GetCurrentProfile(),
		Dispatcher: h.opts.Dispatcher,
		Publisher:  h.opts.Publisher,
		Recorder:   h.opts.Recorder,
		Sink:       sink,
		Clock:      h.opts.Clock,
		QueueSize:  h.opts.QueueSize,
		RemoteAddr: remote,
	})
	if err != nil {
		h.logger.Errorf("Failed to open session for %s: %v", remote, err)
		w.writeError(err)
		return
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := sess.Run(context.Background()); err != nil {
			h.logger.Warnf("Session %s loop ended: %v", sess.ID(), err)
		}
	}()

	// A session closed from outside (shutdown) ends the read loop.
	readDone := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-sess.Done():
			deadline := time.Now().Add(closeWriteWait)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"), deadline)
			_ = conn.SetReadDeadline(deadline)
		case <-readDone:
		}
	}()

	sess.Post(func() {
		w.write(SessionMessage{Type: MsgSession, ID: sess.ID(), Scale: sess.Scale()})
	})

	h.readLoop(conn, sess, w)

	close(readDone)
	<-watchDone
	h.opts.Manager.Close(sess.ID())
	<-runDone
	h.logger.Infof("Control WebSocket disconnected: %s", remote)
}

func (h *ControlWebSocketHandler) readLoop(conn *fiberws.Conn, sess *session.Session, w *socketWriter) {
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Errorf("Control WS read error: %v", err)
			} else if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
				h.logger.Infof("Control WS connection reset")
			} else {
				h.logger.Debugf("Control WS connection closed: %v", err)
			}
			return
		}

		if mt != websocket.TextMessage {
			h.logger.Infof("Ignoring non-text Control WS message type: %d", mt)
			continue
		}

		var in ClientMessage
		if err := json.Unmarshal(msg, &in); err != nil {
			h.logger.Warnf("Failed to unmarshal control message: %v. Message: %s", err, string(msg))
			if !sess.Post(func() { w.writeError(errors.New("malformed message")) }) {
				return
			}
			continue
		}

		if !sess.Post(func() { h.apply(sess, w, in) }) {
			return
		}
	}
}

// apply handles one decoded message. Runs on the session loop.
func (h *ControlWebSocketHandler) apply(sess *session.Session, w *socketWriter, in ClientMessage) {
	var err error
	switch in.Type {
	case MsgValidate:
		w.write(h.validate(in.Address))
		return
	case MsgEndpoint:
		ep, acceptErr := sess.AcceptEndpoint(in.Address)
		h.recordValidation(acceptErr == nil || errors.Is(acceptErr, session.ErrEndpointAlreadySet))
		reply := ValidationMessage{Type: MsgEndpoint, Address: in.Address, Valid: acceptErr == nil}
		if acceptErr != nil {
			reply.Error = acceptErr.Error()
			h.logger.Debugf("Endpoint %q rejected: %v", in.Address, acceptErr)
		} else {
			reply.Endpoint = ep.String()
		}
		w.write(reply)
		return
	case MsgThrottle:
		err = sess.Throttle(in.Action)
	case MsgDirection:
		err = sess.Direction(in.Action, in.Value)
	case MsgSteering:
		err = sess.Steering(in.Action, in.X, in.Y)
	default:
		h.logger.Warnf("Unknown control message type %q", in.Type)
		err = errors.New("unknown message type: " + in.Type)
	}
	if err != nil {
		w.writeError(err)
	}
}

func (h *ControlWebSocketHandler) validate(address string) ValidationMessage {
	reply := ValidationMessage{Type: MsgValidation, Address: address}
	ep, err := endpoint.Parse(address)
	h.recordValidation(err == nil)
	if err != nil {
		h.logger.Debugf("Address %q is not a valid endpoint: %v", address, err)
		reply.Error = err.Error()
		return reply
	}
	reply.Valid = true
	reply.Endpoint = ep.String()
	return reply
}

func (h *ControlWebSocketHandler) recordValidation(valid bool) {
	if h.opts.Validations != nil {
		h.opts.Validations.RecordValidation(valid)
	}
}
