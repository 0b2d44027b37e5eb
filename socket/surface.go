package socket

import (
	"time"

	"hebedit/internal/editor/model"
	"hebedit/pkg/logger"
)

// surface renders a session onto the page over the client's socket. It is
// both the session's Surface and its FileGateway.
type surface struct {
	c *Client
}

func (s *surface) Render(text string, cursor int) {
	rev, reset := s.c.page.rendered(text)
	_ = s.c.send(RenderType, renderPayload{
		Text:   text,
		Cursor: utf16Offset(text, cursor),
		Rev:    rev,
		Ack:    s.c.page.ack,
		Reset:  reset,
	})
}

func (s *surface) ShowFileName(name string) {
	_ = s.c.send(FileNameType, namePayload{Name: name})
}

func (s *surface) ShowCharCount(label string) {
	_ = s.c.send(CharCountType, labelPayload{Label: label})
}

func (s *surface) ShowStatus(message string, kind model.StatusKind) {
	_ = s.c.send(StatusType, statusPayload{Message: message, Kind: kind})
}

func (s *surface) ShowAutoSave(label string) {
	_ = s.c.send(AutoSaveType, labelPayload{Label: label})
}

func (s *surface) SetDragHover(on bool) {
	_ = s.c.send(DragHoverType, hoverPayload{On: on})
}

func (s *surface) SetDirection(dir model.Direction) {
	_ = s.c.send(DirectionType, directionPayload{Dir: dir})
}

// Confirm asks the page and waits for CONFIRM_REPLY. No answer within the
// timeout, or a closed connection, counts as "no".
func (s *surface) Confirm(prompt string) bool {
	select {
	case <-s.c.confirm: // stale answer to an earlier question
	default:
	}
	if err := s.c.send(ConfirmType, promptPayload{Prompt: prompt}); err != nil {
		return false
	}

	timeout := s.c.Hub.opts.ConfirmTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case answer := <-s.c.confirm:
		return answer
	case <-timer.C:
		logger.Sugar.Warnf("Editor %s: no answer to confirmation after %s", s.c.ID, timeout)
		return false
	case <-s.c.done:
		return false
	}
}

func (s *surface) RequestPick() {
	_ = s.c.send(OpenPickerType, nil)
}

func (s *surface) Download(name, contentType string, data []byte) error {
	return s.c.send(DownloadType, downloadPayload{Name: name, ContentType: contentType, Data: data})
}
