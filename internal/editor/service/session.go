package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"hebedit/internal/editor/model"
	"hebedit/internal/editor/repository"
	"hebedit/pkg/logger"
)

// Surface is the widget the user types into, plus the status line around it.
type Surface interface {
	// Render replaces the visible buffer and puts the cursor at a byte
	// offset into text.
	Render(text string, cursor int)
	ShowFileName(name string)
	ShowCharCount(label string)
	ShowStatus(message string, kind model.StatusKind)
	// ShowAutoSave sets the transient auto-save indicator; "" clears it.
	ShowAutoSave(label string)
	SetDragHover(on bool)
	SetDirection(dir model.Direction)
	// Confirm asks a yes/no question and blocks until the user answers.
	Confirm(prompt string) bool
}

// FileGateway reads and writes files on the user's side.
type FileGateway interface {
	// RequestPick opens the host's file picker. The chosen file comes back
	// as a FilePicked event.
	RequestPick()
	Download(name, contentType string, data []byte) error
}

type Option func(*Session)

// WithStoreKey sets the key the session persists under.
func WithStoreKey(key string) Option {
	return func(sess *Session) { sess.key = key }
}

// WithQuietPeriod sets the auto-save debounce. Like the other duration
// options it ignores non-positive values.
func WithQuietPeriod(d time.Duration) Option {
	return func(sess *Session) {
		if d > 0 {
			sess.quiet = d
		}
	}
}

func WithStatusReset(d time.Duration) Option {
	return func(sess *Session) {
		if d > 0 {
			sess.statusReset = d
		}
	}
}

func WithIndicatorReset(d time.Duration) Option {
	return func(sess *Session) {
		if d > 0 {
			sess.indicatorReset = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(sess *Session) { sess.now = now }
}

func WithStoreTimeout(d time.Duration) Option {
	return func(sess *Session) {
		if d > 0 {
			sess.storeTimeout = d
		}
	}
}

// Session owns one Document and mediates between the surface, the file
// gateway and the persistence store. It is not safe for concurrent use: all
// calls, including scheduler callbacks, must come from one goroutine (see
// Loop).
type Session struct {
	surface Surface
	files   FileGateway
	store   repository.Store
	sched   Scheduler
	key     string
	now     func() time.Time

	quiet          time.Duration
	statusReset    time.Duration
	indicatorReset time.Duration
	storeTimeout   time.Duration

	doc   model.Document
	hover bool

	autoSave       Timer
	statusClear    Timer
	indicatorClear Timer
}

// NewSession creates a session with an empty document. Timer callbacks are
// armed on sched and must be delivered on the goroutine that calls Handle.
func NewSession(surface Surface, files FileGateway, store repository.Store, sched Scheduler, opts ...Option) *Session {
	s := &Session{
		surface:        surface,
		files:          files,
		store:          store,
		sched:          sched,
		key:            model.StoreKey,
		now:            time.Now,
		quiet:          time.Second,
		statusReset:    5 * time.Second,
		indicatorReset: 2 * time.Second,
		storeTimeout:   5 * time.Second,
		doc:            model.Document{FileName: model.DefaultFileName},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns a copy of the current document.
func (s *Session) Document() model.Document {
	return s.doc
}

// DragHover reports whether a drag is currently over the editor.
func (s *Session) DragHover() bool {
	return s.hover
}

// Handle dispatches one event. Errors are already reported on the status
// line when Handle returns them; they are returned for the caller's benefit.
func (s *Session) Handle(ev Event) error {
	switch ev := ev.(type) {
	case TextChanged:
		s.doc.Text = ev.Text
		s.textChanged()
	case EnterPressed:
		text, cursor := InsertNewline(ev.Text, ev.Cursor)
		s.doc.Text = text
		s.surface.Render(text, cursor)
		s.textChanged()
	case TextInserted:
		text, cursor := InsertText(ev.Text, ev.Cursor, ev.Insert)
		s.doc.Text = text
		s.surface.Render(text, cursor)
		s.textChanged()
	case FileNameChanged:
		s.doc.FileName = ev.Name
		s.ScheduleAutoSave()
	case FilePicked:
		return s.LoadFile(ev.File)
	case FileDropped:
		s.setHover(false)
		if !IsTextType(ev.File.MimeType) {
			s.showStatus(msgDropNotText, model.StatusError)
			return fmt.Errorf("%w: %q", ErrUnsupportedType, ev.File.MimeType)
		}
		return s.LoadFile(ev.File)
	case DragEntered:
		s.setHover(true)
	case DragLeft:
		s.setHover(false)
	case ShortcutPressed:
		switch ev.Kind {
		case model.ShortcutSave:
			return s.SaveFile()
		case model.ShortcutOpen:
			s.files.RequestPick()
		case model.ShortcutNew:
			return s.NewDocument()
		default:
			return fmt.Errorf("unknown shortcut %q", ev.Kind)
		}
	case NewFileRequested:
		return s.NewDocument()
	default:
		return fmt.Errorf("unknown event %T", ev)
	}
	return nil
}

// LoadFile replaces the document with the contents of f.
func (s *Session) LoadFile(f model.File) error {
	if !IsTextType(f.MimeType) {
		s.showStatus(msgPickNotText, model.StatusError)
		return fmt.Errorf("%w: %q", ErrUnsupportedType, f.MimeType)
	}
	if !utf8.Valid(f.Data) {
		s.showStatus(msgLoadFailed, model.StatusError)
		return fmt.Errorf("%w: %s", ErrDecodeFailure, f.Name)
	}

	s.doc = model.Document{Text: string(f.Data), FileName: f.Name}
	s.surface.Render(s.doc.Text, 0)
	s.surface.ShowFileName(s.doc.FileName)
	s.updateCounters()

	s.cancelAutoSave()
	s.persist()
	s.showStatus(msgLoaded(f.Name), model.StatusSuccess)
	return nil
}

// SaveFile hands the buffer to the file gateway as a UTF-8 text download.
func (s *Session) SaveFile() error {
	if IsBlank(s.doc.Text) {
		s.showStatus(msgNothingToSave, model.StatusError)
		return ErrEmptyContent
	}

	name := s.fileName()
	if err := s.files.Download(name, model.TextContentType, []byte(s.doc.Text)); err != nil {
		logger.Sugar.Errorf("Save error: %v", err)
		s.showStatus(msgSaveFailed, model.StatusError)
		return fmt.Errorf("download %s: %w", name, err)
	}
	s.showStatus(msgSaved(name), model.StatusSuccess)
	return nil
}

// NewDocument clears the document and the persisted record. A non-blank
// buffer is only discarded after the user confirms.
func (s *Session) NewDocument() error {
	if !IsBlank(s.doc.Text) && !s.surface.Confirm(msgConfirmNewFile) {
		return nil
	}

	s.cancelAutoSave()
	s.doc = model.Document{FileName: model.DefaultFileName}
	s.surface.Render("", 0)
	s.surface.ShowFileName(s.doc.FileName)
	s.updateCounters()

	ctx, cancel := s.storeContext()
	defer cancel()
	if err := s.store.Delete(ctx, s.key); err != nil {
		logger.Sugar.Errorf("Clear store error: %v", err)
	}
	s.showStatus(msgNewFile, model.StatusSuccess)
	return nil
}

// ScheduleAutoSave persists the document once no edit has arrived for the
// quiet period. Each call replaces the previously armed timer.
func (s *Session) ScheduleAutoSave() {
	s.cancelAutoSave()
	s.autoSave = s.sched.AfterFunc(s.quiet, func() {
		s.autoSave = nil
		s.persist()
	})
}

// AutoSavePending reports whether an auto-save is armed.
func (s *Session) AutoSavePending() bool {
	return s.autoSave != nil
}

// Restore loads the persisted record, if any, and renders the document. It
// reports whether non-empty content was restored.
func (s *Session) Restore() bool {
	restored := false

	ctx, cancel := s.storeContext()
	rec, ok, err := s.store.Get(ctx, s.key)
	cancel()
	switch {
	case err != nil:
		logger.Sugar.Errorf("Load from store error: %v", fmt.Errorf("%w: %w", ErrPersistence, err))
	case ok:
		s.doc = model.Document{Text: rec.Content, FileName: rec.FileName}
		if s.doc.FileName == "" {
			s.doc.FileName = model.DefaultFileName
		}
		restored = rec.Content != ""
	}

	s.surface.Render(s.doc.Text, 0)
	s.surface.ShowFileName(s.doc.FileName)
	s.updateCounters()
	if restored {
		s.showStatus(msgRestored, model.StatusSuccess)
	}
	return restored
}

func (s *Session) textChanged() {
	s.updateCounters()
	s.ScheduleAutoSave()
}

func (s *Session) updateCounters() {
	s.surface.ShowCharCount(CharCountLabel(s.doc.Text))
	s.surface.SetDirection(DetectDirection(s.doc.Text))
}

func (s *Session) cancelAutoSave() {
	if s.autoSave != nil {
		s.autoSave.Stop()
		s.autoSave = nil
	}
}

// persist writes the record and flashes the auto-save indicator. Failures
// are logged only; editing continues.
func (s *Session) persist() {
	rec := model.PersistedRecord{
		Content:   s.doc.Text,
		FileName:  s.doc.FileName,
		Timestamp: s.now().UTC().Format(model.TimestampLayout),
	}

	ctx, cancel := s.storeContext()
	defer cancel()
	if err := s.store.Set(ctx, s.key, rec); err != nil {
		logger.Sugar.Errorf("Auto-save error: %v", fmt.Errorf("%w: %w", ErrPersistence, err))
		return
	}

	s.surface.ShowAutoSave(msgAutoSaved)
	if s.indicatorClear != nil {
		s.indicatorClear.Stop()
	}
	s.indicatorClear = s.sched.AfterFunc(s.indicatorReset, func() {
		s.indicatorClear = nil
		s.surface.ShowAutoSave("")
	})
}

func (s *Session) showStatus(message string, kind model.StatusKind) {
	s.surface.ShowStatus(message, kind)
	if s.statusClear != nil {
		s.statusClear.Stop()
	}
	s.statusClear = s.sched.AfterFunc(s.statusReset, func() {
		s.statusClear = nil
		s.surface.ShowStatus(msgReady, model.StatusReady)
	})
}

func (s *Session) setHover(on bool) {
	if s.hover == on {
		return
	}
	s.hover = on
	s.surface.SetDragHover(on)
}

func (s *Session) fileName() string {
	if s.doc.FileName == "" {
		return model.DefaultFileName
	}
	return s.doc.FileName
}

func (s *Session) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.storeTimeout)
}
