package socket

import (
	"encoding/json"
	"fmt"

	"hebedit/internal/editor/model"
	"hebedit/internal/editor/service"
)

// Messages from the page.
const (
	TextChangedType  = "TEXT_CHANGED"  // Whole buffer after typing
	EnterType        = "ENTER"         // Enter pressed, server inserts the newline
	InsertType       = "INSERT"        // Palette insert at the cursor
	FileNameType     = "FILENAME"      // Filename edited (also sent to the page)
	FilePickedType   = "FILE_PICKED"   // File chosen in the picker
	FileDroppedType  = "FILE_DROPPED"  // File dropped on the editor
	DragEnterType    = "DRAG_ENTER"    // Drag entered or hovers
	DragLeaveType    = "DRAG_LEAVE"    // Drag left without dropping
	ShortcutType     = "SHORTCUT"      // Key press with modifiers
	OpenType         = "OPEN"          // Open button
	SaveType         = "SAVE"          // Save button
	NewFileType      = "NEW_FILE"      // New button
	ConfirmReplyType = "CONFIRM_REPLY" // Answer to a CONFIRM
)

// Messages to the page.
const (
	KeymapType     = "KEYMAP"
	RenderType     = "RENDER"
	CharCountType  = "CHAR_COUNT"
	DirectionType  = "DIRECTION"
	StatusType     = "STATUS"
	AutoSaveType   = "AUTOSAVE"
	DragHoverType  = "DRAG_HOVER"
	OpenPickerType = "OPEN_PICKER"
	ConfirmType    = "CONFIRM"
	DownloadType   = "DOWNLOAD"
)

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// editPayload is the body of TEXT_CHANGED, ENTER and INSERT.
type editPayload struct {
	Text   string `json:"text"`             // the page's whole buffer
	Cursor int    `json:"cursor"`           // UTF-16 code units into Text
	Insert string `json:"insert,omitempty"` // INSERT only
	Seq    int64  `json:"seq"`              // increases with every edit
	Rev    int64  `json:"rev"`              // last RENDER the page applied
}

type namePayload struct {
	Name string `json:"name"`
}

type filePayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data []byte `json:"data"` // base64 on the wire
}

type shortcutPayload struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl"`
	Meta bool   `json:"meta"`
}

type confirmReplyPayload struct {
	Answer bool `json:"answer"`
}

type keymapPayload struct {
	Keys []string `json:"keys"`
}

type renderPayload struct {
	Text   string `json:"text"`
	Cursor int    `json:"cursor"`
	Rev    int64  `json:"rev"`
	Ack    int64  `json:"ack"`             // seq of the last edit handled
	Reset  bool   `json:"reset,omitempty"` // replaces the buffer whatever the page has typed since
}

type labelPayload struct {
	Label string `json:"label"`
}

type statusPayload struct {
	Message string           `json:"message"`
	Kind    model.StatusKind `json:"kind"`
}

type directionPayload struct {
	Dir model.Direction `json:"dir"`
}

type hoverPayload struct {
	On bool `json:"on"`
}

type promptPayload struct {
	Prompt string `json:"prompt"`
}

type downloadPayload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

func encode(msgType string, payload any) ([]byte, error) {
	msg := WSMessage{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}

func isEdit(msgType string) bool {
	switch msgType {
	case TextChangedType, EnterType, InsertType:
		return true
	}
	return false
}

func decodeEdit(msg WSMessage) (editPayload, error) {
	var p editPayload
	err := json.Unmarshal(msg.Payload, &p)
	return p, err
}

// editEvent builds the session event for an edit on text at a byte cursor.
func editEvent(msgType, text string, cursor int, insert string) service.Event {
	switch msgType {
	case EnterType:
		return service.EnterPressed{Text: text, Cursor: cursor}
	case InsertType:
		return service.TextInserted{Text: text, Cursor: cursor, Insert: insert}
	}
	return service.TextChanged{Text: text}
}

// decodeEvent turns a page message other than an edit into a session
// event. A nil event with a nil error means the message is not for the
// session.
func decodeEvent(msg WSMessage) (service.Event, error) {
	switch msg.Type {
	case FileNameType:
		var p namePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		return service.FileNameChanged{Name: p.Name}, nil
	case FilePickedType, FileDroppedType:
		var p filePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		f := model.File{Name: p.Name, MimeType: p.Type, Data: p.Data}
		if msg.Type == FileDroppedType {
			return service.FileDropped{File: f}, nil
		}
		return service.FilePicked{File: f}, nil
	case DragEnterType:
		return service.DragEntered{}, nil
	case DragLeaveType:
		return service.DragLeft{}, nil
	case ShortcutType:
		var p shortcutPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		kind, ok := service.ParseShortcut(p.Key, p.Ctrl, p.Meta)
		if !ok {
			return nil, nil
		}
		return service.ShortcutPressed{Kind: kind}, nil
	case OpenType:
		return service.ShortcutPressed{Kind: model.ShortcutOpen}, nil
	case SaveType:
		return service.ShortcutPressed{Kind: model.ShortcutSave}, nil
	case NewFileType:
		return service.NewFileRequested{}, nil
	}
	return nil, fmt.Errorf("unknown message type %q", msg.Type)
}
