package service

import "hebedit/internal/editor/model"

// Event is one of the inputs a session reacts to. The set is closed: only
// the types in this file implement it.
type Event interface {
	isEvent()
}

// TextChanged carries the whole buffer after the user typed.
type TextChanged struct{ Text string }

// EnterPressed asks for an auto-indented newline at Cursor, a byte offset
// into Text. Text is the buffer the cursor was taken on and replaces the
// session's copy.
type EnterPressed struct {
	Text   string
	Cursor int
}

// TextInserted splices Insert into Text at Cursor, e.g. from a punctuation
// palette. Text and Cursor are as for EnterPressed.
type TextInserted struct {
	Text   string
	Cursor int
	Insert string
}

type FileNameChanged struct{ Name string }

type FilePicked struct{ File model.File }

type FileDropped struct{ File model.File }

// DragEntered is sent when a drag enters or hovers over the editor.
type DragEntered struct{}

// DragLeft is sent when a drag leaves the editor without dropping.
type DragLeft struct{}

type ShortcutPressed struct{ Kind model.ShortcutKind }

type NewFileRequested struct{}

func (TextChanged) isEvent()      {}
func (EnterPressed) isEvent()     {}
func (TextInserted) isEvent()     {}
func (FileNameChanged) isEvent()  {}
func (FilePicked) isEvent()       {}
func (FileDropped) isEvent()      {}
func (DragEntered) isEvent()      {}
func (DragLeft) isEvent()         {}
func (ShortcutPressed) isEvent()  {}
func (NewFileRequested) isEvent() {}
