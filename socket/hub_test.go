package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hebedit/internal/editor/model"
	"hebedit/internal/editor/repository"
	"hebedit/internal/editor/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	err = json.Unmarshal(p, &msg)
	require.NoError(t, err, "Failed to unmarshal WSMessage JSON")
	return msg
}

// readUntil skips messages until one of msgType arrives and decodes its
// payload into v.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, v any) {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type != msgType {
			continue
		}
		if v != nil {
			require.NoError(t, json.Unmarshal(msg.Payload, v))
		}
		return
	}
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	b, err := encode(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

func startHub(t *testing.T, store repository.Store) (*Hub, string) {
	t.Helper()
	hub := NewHub(store, Options{
		QuietPeriod:    30 * time.Millisecond,
		StatusReset:    time.Minute,
		IndicatorReset: time.Minute,
		ConfirmTimeout: time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("user_id"))
	}))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, wsURL, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id="+userID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEditorSessionOverSocket(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, StoreKey("user1"), model.PersistedRecord{Content: "שלום", FileName: "א.txt"}))

	_, wsURL := startHub(t, store)
	conn := dial(t, wsURL, "user1")

	// Keymap first, then the restored document.
	keymap := readMessage(t, conn)
	assert.Equal(t, KeymapType, keymap.Type)
	assert.JSONEq(t, `{"keys":["s","o","n"]}`, string(keymap.Payload))

	var render renderPayload
	msg := readMessage(t, conn)
	require.Equal(t, RenderType, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, &render))
	assert.Equal(t, renderPayload{Text: "שלום", Cursor: 0, Rev: 1, Reset: true}, render)

	var name namePayload
	readUntil(t, conn, FileNameType, &name)
	assert.Equal(t, "א.txt", name.Name)

	var status statusPayload
	readUntil(t, conn, StatusType, &status)
	assert.Equal(t, model.StatusSuccess, status.Kind)
	assert.Contains(t, status.Message, "Previous content restored")

	// Typing, then Enter: the server computes the indent.
	sendMessage(t, conn, TextChangedType, editPayload{Text: "  שלום", Cursor: 6, Seq: 1, Rev: render.Rev})
	var count labelPayload
	readUntil(t, conn, CharCountType, &count)
	assert.Equal(t, "6 תווים", count.Label)

	sendMessage(t, conn, EnterType, editPayload{Text: "  שלום", Cursor: 6, Seq: 2, Rev: render.Rev})
	readUntil(t, conn, RenderType, &render)
	assert.Equal(t, renderPayload{Text: "  שלום\n  ", Cursor: 9, Rev: 2, Ack: 2}, render)

	var indicator labelPayload
	readUntil(t, conn, AutoSaveType, &indicator)
	assert.Equal(t, "נשמר אוטומטית (Auto-saved)", indicator.Label)

	rec, ok, err := store.Get(ctx, StoreKey("user1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "  שלום\n  ", rec.Content)
	assert.Equal(t, "א.txt", rec.FileName)

	// Ctrl+S downloads the buffer.
	sendMessage(t, conn, ShortcutType, shortcutPayload{Key: "s", Ctrl: true})
	var dl downloadPayload
	readUntil(t, conn, DownloadType, &dl)
	assert.Equal(t, "א.txt", dl.Name)
	assert.Equal(t, model.TextContentType, dl.ContentType)
	assert.Equal(t, []byte("  שלום\n  "), dl.Data)

	// Dropping an image is rejected and clears the hover flag.
	sendMessage(t, conn, DragEnterType, nil)
	var hover hoverPayload
	readUntil(t, conn, DragHoverType, &hover)
	assert.True(t, hover.On)

	sendMessage(t, conn, FileDroppedType, filePayload{Name: "p.png", Type: "image/png", Data: []byte{0x89}})
	readUntil(t, conn, DragHoverType, &hover)
	assert.False(t, hover.On)
	readUntil(t, conn, StatusType, &status)
	assert.Equal(t, model.StatusError, status.Kind)
	assert.Contains(t, status.Message, "Please drag a text file only")

	// New file: declined, then confirmed.
	sendMessage(t, conn, NewFileType, nil)
	readUntil(t, conn, ConfirmType, nil)
	sendMessage(t, conn, ConfirmReplyType, confirmReplyPayload{Answer: false})

	sendMessage(t, conn, NewFileType, nil)
	readUntil(t, conn, ConfirmType, nil)
	rec, ok, err = store.Get(ctx, StoreKey("user1"))
	require.NoError(t, err)
	assert.True(t, ok, "declining must not clear the store")
	assert.Equal(t, "  שלום\n  ", rec.Content)

	sendMessage(t, conn, ConfirmReplyType, confirmReplyPayload{Answer: true})
	readUntil(t, conn, RenderType, &render)
	assert.Equal(t, "", render.Text)
	assert.True(t, render.Reset)
	readUntil(t, conn, StatusType, &status)
	assert.Contains(t, status.Message, "New file created")

	_, ok, err = store.Get(ctx, StoreKey("user1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecondConnectionReplacesFirst(t *testing.T) {
	hub, wsURL := startHub(t, repository.NewMemoryStore())

	first := dial(t, wsURL, "user1")
	readUntil(t, first, KeymapType, nil)
	firstClient := waitForClient(t, hub, "user1", nil)

	second := dial(t, wsURL, "user1")
	readUntil(t, second, KeymapType, nil)
	waitForClient(t, hub, "user1", firstClient)

	// The first socket is closed by the server.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	// The replaced client's unregister must not evict its successor.
	time.Sleep(50 * time.Millisecond)
	c, ok := hub.Lookup("user1")
	require.True(t, ok)
	assert.NotEqual(t, firstClient, c)
}

func TestDispatchToLiveClient(t *testing.T) {
	store := repository.NewMemoryStore()
	hub, wsURL := startHub(t, store)

	conn := dial(t, wsURL, "user2")
	readUntil(t, conn, KeymapType, nil)
	client := waitForClient(t, hub, "user2", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := client.Dispatch(ctx, eventPicked("a.txt", "text/plain", "hello"))
	require.NoError(t, err)

	var render renderPayload
	readUntil(t, conn, RenderType, &render)
	if render.Text == "" { // the restore render may come first
		readUntil(t, conn, RenderType, &render)
	}
	assert.Equal(t, "hello", render.Text)

	rec, ok, err := store.Get(ctx, StoreKey("user2"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", rec.Content)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, wsURL := startHub(t, repository.NewMemoryStore())

	conn := dial(t, wsURL, "user3")
	readUntil(t, conn, KeymapType, nil)
	client := waitForClient(t, hub, "user3", nil)
	conn.Close()

	assert.Eventually(t, func() bool {
		_, ok := hub.Lookup("user3")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	err := client.Dispatch(context.Background(), eventPicked("a.txt", "text/plain", "x"))
	assert.ErrorIs(t, err, ErrClientGone)
}

// waitForClient waits until the hub holds a client for userID other than
// not.
func waitForClient(t *testing.T, hub *Hub, userID string, not *Client) *Client {
	t.Helper()
	var c *Client
	require.Eventually(t, func() bool {
		var ok bool
		c, ok = hub.Lookup(userID)
		return ok && c != not
	}, 2*time.Second, 5*time.Millisecond)
	return c
}

func eventPicked(name, mimeType, data string) service.Event {
	return service.FilePicked{File: model.File{Name: name, MimeType: mimeType, Data: []byte(data)}}
}

// pageModel applies RENDERs the way the page script does: only one that
// acknowledges its latest edit, or one that replaces the buffer.
type pageModel struct {
	text string
	seq  int64
	rev  int64
}

func (p *pageModel) edit(t *testing.T, conn *websocket.Conn, msgType, text string, cursor int, insert string) {
	t.Helper()
	p.seq++
	sendMessage(t, conn, msgType, editPayload{Text: text, Cursor: cursor, Insert: insert, Seq: p.seq, Rev: p.rev})
}

func (p *pageModel) apply(r renderPayload) bool {
	if !r.Reset && r.Ack != p.seq {
		return false
	}
	p.rev = r.Rev
	p.text = r.Text
	return true
}

// settle reads until the page applies a RENDER for its latest edit.
func (p *pageModel) settle(t *testing.T, conn *websocket.Conn) renderPayload {
	t.Helper()
	for {
		var r renderPayload
		readUntil(t, conn, RenderType, &r)
		if p.apply(r) && r.Ack == p.seq {
			return r
		}
	}
}

func openPage(t *testing.T, userID string) (*websocket.Conn, *pageModel, repository.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	_, wsURL := startHub(t, store)
	conn := dial(t, wsURL, userID)

	page := &pageModel{}
	var restore renderPayload
	readUntil(t, conn, RenderType, &restore)
	require.True(t, page.apply(restore))
	return conn, page, store
}

func TestTypingWhileEnterIsInFlight(t *testing.T) {
	conn, page, store := openPage(t, "user4")

	// "a", Enter, "b" sent back to back: the page types "b" before the
	// RENDER with the newline arrives.
	page.edit(t, conn, TextChangedType, "a", 1, "")
	page.edit(t, conn, EnterType, "a", 1, "")
	page.edit(t, conn, TextChangedType, "ab", 2, "")

	r := page.settle(t, conn)
	assert.Equal(t, "a\nb", page.text)
	assert.Equal(t, 3, r.Cursor)

	readUntil(t, conn, AutoSaveType, nil)
	rec, ok, err := store.Get(context.Background(), StoreKey("user4"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, page.text, rec.Content)
}

func TestPipelinedEditsConverge(t *testing.T) {
	conn, page, store := openPage(t, "user5")

	// Nothing is read until every edit is on the wire.
	page.edit(t, conn, TextChangedType, "  א", 3, "")
	page.edit(t, conn, EnterType, "  א", 3, "")
	page.edit(t, conn, TextChangedType, "  אב", 4, "")
	page.edit(t, conn, InsertType, "  אב", 4, "׳")
	page.edit(t, conn, TextChangedType, "  אבc", 5, "")
	page.edit(t, conn, EnterType, "  אבc", 5, "")

	page.settle(t, conn)
	assert.Equal(t, "  א\n  ב׳c\n  ", page.text)

	readUntil(t, conn, AutoSaveType, nil)
	rec, ok, err := store.Get(context.Background(), StoreKey("user5"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, page.text, rec.Content)

	// With the page caught up, its next edit is taken as is.
	page.edit(t, conn, TextChangedType, page.text+"d", utf16Offset(page.text, len(page.text))+1, "")
	page.edit(t, conn, EnterType, page.text+"d", utf16Offset(page.text, len(page.text))+1, "")
	page.settle(t, conn)
	assert.Equal(t, "  א\n  ב׳c\n  d\n  ", page.text)
}
