package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"hebedit/internal/editor/service"
	"hebedit/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 16 << 20 // files travel inline
	sendBuffer     = 256
	loopBuffer     = 64
)

// ErrClientGone is returned when an editor disconnected before it could
// handle an event.
var ErrClientGone = errors.New("editor connection closed")

// Client is one browser tab connected to its own editor session.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	ID     string
	UserID string
	Send   chan []byte

	confirm chan bool
	loop    *service.Loop
	session *service.Session
	surface *surface
	page    pageState // touched on the loop only

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     hub.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		ID:      uuid.NewString(),
		UserID:  userID,
		Send:    make(chan []byte, sendBuffer),
		confirm: make(chan bool, 1),
		loop:    service.NewLoop(loopBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	client.surface = &surface{c: client}
	client.session = service.NewSession(client.surface, client.surface, hub.store, client.loop,
		service.WithStoreKey(StoreKey(userID)),
		service.WithQuietPeriod(hub.opts.QuietPeriod),
		service.WithStatusReset(hub.opts.StatusReset),
		service.WithIndicatorReset(hub.opts.IndicatorReset),
	)

	if !hub.register(client) {
		client.close()
		return
	}
	logger.Sugar.Infof("Opened editor %s for user %s", client.ID, userID)

	go client.writePump()
	go client.loop.Run(ctx)

	// The page needs the shortcut list before the first key press so it can
	// suppress the browser's own handling.
	_ = client.send(KeymapType, keymapPayload{Keys: service.ShortcutKeys()})
	client.loop.Post(func() { client.session.Restore() })

	go client.readPump()
}

// Dispatch hands an event to the client's session and waits for the result.
func (c *Client) Dispatch(ctx context.Context, ev service.Event) error {
	result := make(chan error, 1)
	if !c.loop.Post(func() { result <- c.session.Handle(ev) }) {
		return ErrClientGone
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.loop.Done():
		return ErrClientGone
	}
}

func (c *Client) readPump() {
	defer c.Hub.unregister(c)

	c.Conn.SetReadLimit(maxMessageSize)
	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Answers go straight to the waiting Confirm, which is blocking the
		// session loop.
		if msg.Type == ConfirmReplyType {
			var p confirmReplyPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				logger.Sugar.Errorf("Error unmarshalling confirm reply: %v", err)
				continue
			}
			select {
			case c.confirm <- p.Answer:
			default:
				logger.Sugar.Warnf("Editor %s: confirm reply without a question", c.ID)
			}
			continue
		}

		if !c.loop.Post(func() { c.handle(msg) }) {
			return
		}
	}
}

// handle runs on the session loop.
func (c *Client) handle(msg WSMessage) {
	if isEdit(msg.Type) {
		c.handleEdit(msg)
		return
	}

	ev, err := decodeEvent(msg)
	if err != nil {
		logger.Sugar.Warnf("Editor %s: bad %s message: %v", c.ID, msg.Type, err)
		return
	}
	if ev == nil {
		return
	}
	if err := c.session.Handle(ev); err != nil {
		logger.Sugar.Infof("Editor %s: %s: %v", c.ID, msg.Type, err)
	}
}

// handleEdit applies typing, Enter or a palette insert. Edits made before
// the page saw the session's latest RENDER are replayed onto the session's
// buffer, and the result is rendered back so both sides converge.
func (c *Client) handleEdit(msg WSMessage) {
	p, err := decodeEdit(msg)
	if err != nil {
		logger.Sugar.Warnf("Editor %s: bad %s message: %v", c.ID, msg.Type, err)
		return
	}

	pageAt := byteOffset(p.Text, p.Cursor)
	text, at, ok := c.page.accept(p.Text, pageAt, p.Seq, p.Rev)
	if !ok {
		logger.Sugar.Debugf("Editor %s: dropped %s %d made before a buffer replacement", c.ID, msg.Type, p.Seq)
		return
	}

	c.page.begin(text, at, pageAt)
	defer c.page.end()

	if err := c.session.Handle(editEvent(msg.Type, text, at, p.Insert)); err != nil {
		logger.Sugar.Infof("Editor %s: %s: %v", c.ID, msg.Type, err)
	}
	// Plain typing renders nothing unless the page is missing something.
	if msg.Type == TextChangedType && text != p.Text {
		c.surface.Render(text, at)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// send queues a message for the page. It blocks while the send buffer is
// full, and fails once the client is closed.
func (c *Client) send(msgType string, payload any) error {
	b, err := encode(msgType, payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s: %v", msgType, err)
		return err
	}
	select {
	case <-c.done:
		return ErrClientGone
	default:
	}
	select {
	case c.Send <- b:
		return nil
	case <-c.done:
		return ErrClientGone
	}
}

// close stops the session loop, abandoning any pending auto-save, and drops
// the connection.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
		c.Conn.Close()
	})
}
