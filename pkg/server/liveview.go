package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/render"
	"github.com/vango-dev/suspense/pkg/resource"
	"github.com/vango-dev/suspense/pkg/vdom"
)

const liveWriteTimeout = 10 * time.Second

// Session is the per-connection state behind a live document.
type Session interface {
	// View renders the document.
	View() *vdom.VNode

	// Attach hands the session the dispatcher of its mounted document,
	// for pushing outside changes into it.
	Attach(d resource.Dispatcher)

	// Close releases the session. It is called once.
	Close()
}

// Live protocol message types.
const (
	MsgPatches = "patches"
	MsgError   = "error"
	MsgEvent   = "event"
	MsgHydrate = "hydrate"
)

// ServerMessage is sent to the client.
type ServerMessage struct {
	Type    string         `json:"type"`
	Patches []render.Patch `json:"patches,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
}

// ClientMessage is received from the client. Event messages name the
// target by hydration key; hydrate messages carry the server markup the
// client currently shows.
type ClientMessage struct {
	Type    string `json:"type"`
	HK      string `json:"hk,omitempty"`
	Event   string `json:"event,omitempty"`
	Payload string `json:"payload,omitempty"`
	HTML    string `json:"html,omitempty"`
}

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

type liveConn struct {
	ws      *websocket.Conn
	lv      *render.LiveView
	session Session
	cancel  context.CancelFunc

	writeMu sync.Mutex
	once    sync.Once
}

func (c *liveConn) send(msg ServerMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *liveConn) sendPatches(patches []render.Patch) error {
	return c.send(ServerMessage{Type: MsgPatches, Patches: patches})
}

func (c *liveConn) sendError(err error) error {
	return c.send(ServerMessage{Type: MsgError, Code: errors.Code(err), Message: err.Error()})
}

func (c *liveConn) close() {
	c.once.Do(func() {
		c.cancel()
		c.lv.Close()
		c.session.Close()
		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(time.Second))
		c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		c.writeMu.Unlock()
		c.ws.Close()
	})
}

// handle applies one client message. Malformed or rejected messages are
// reported back to the client and do not end the connection.
func (c *liveConn) handle(data []byte) error {
	var msg ClientMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return c.sendError(errors.New("E082").Wrap(err))
	}

	switch msg.Type {
	case MsgEvent:
		if err := c.lv.HandleEvent(msg.HK, msg.Event, msg.Payload); err != nil {
			return c.sendError(err)
		}
	case MsgHydrate:
		patches, err := c.lv.Hydrate(msg.HTML)
		if err != nil {
			return c.sendError(err)
		}
		if len(patches) > 0 {
			return c.sendPatches(patches)
		}
	default:
		return c.sendError(errors.New("E082").WithDetailf("unknown message type %q", msg.Type))
	}
	return nil
}

// live mounts a new session and streams its patches until either side
// goes away.
func (s *Server) live(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context(), s.logger)

	ws, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("live upgrade failed", "error", err)
		return
	}

	session := s.config.NewSession()
	lv, err := s.config.Renderer.Mount(session.View)
	if err != nil {
		log.Error("live mount failed", "code", errors.Code(err), "error", err)
		session.Close()
		data, _ := sonic.Marshal(ServerMessage{Type: MsgError, Code: errors.Code(err), Message: err.Error()})
		ws.WriteMessage(websocket.TextMessage, data)
		ws.Close()
		return
	}
	session.Attach(lv)

	ctx, cancel := context.WithCancel(r.Context())
	c := &liveConn{ws: ws, lv: lv, session: session, cancel: cancel}

	s.mu.Lock()
	s.sessions[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, c)
		s.mu.Unlock()
		c.close()
	}()

	log.Debug("live session started")
	defer log.Debug("live session ended")

	if err := c.sendPatches([]render.Patch{{Key: render.RootPatch, HTML: lv.HTML()}}); err != nil {
		return
	}

	go func() {
		defer cancel()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := c.handle(data); err != nil {
				log.Debug("live write failed", "error", err)
				return
			}
		}
	}()

	if err := lv.Run(ctx, c.sendPatches); err != nil && ctx.Err() == nil {
		log.Debug("live session stopped", "code", errors.Code(err), "error", err)
	}
}
