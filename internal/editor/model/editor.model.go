package model

const (
	// DefaultFileName is used whenever the document has no filename.
	DefaultFileName = "hebrew_text.txt"
	// StoreKey is the Persistence Store key of a single-user session.
	StoreKey = "hebrewTextEditor"
	// TimestampLayout matches JavaScript's Date.prototype.toISOString.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
	// TextContentType is the type of every saved artifact.
	TextContentType = "text/plain;charset=utf-8"
)

// Document is the in-memory text buffer plus its filename.
type Document struct {
	Text     string
	FileName string
}

// PersistedRecord is what auto-save writes under the session key. It is
// always overwritten as a whole.
type PersistedRecord struct {
	Content   string `json:"content"`
	FileName  string `json:"fileName"`
	Timestamp string `json:"timestamp"`
}

// File is a picked or dropped file as declared by the host.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

type StatusKind string

const (
	StatusReady   StatusKind = ""
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

type ShortcutKind string

const (
	ShortcutSave ShortcutKind = "save"
	ShortcutOpen ShortcutKind = "open"
	ShortcutNew  ShortcutKind = "new"
)

type Direction string

const (
	DirectionLTR Direction = "ltr"
	DirectionRTL Direction = "rtl"
)
