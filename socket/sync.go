package socket

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// insertion is text the session added that the page has not rendered yet,
// positioned as a byte offset into the page's last reported buffer.
type insertion struct {
	at   int
	text string
}

// pageState follows what the page has seen. The page keeps editing while a
// RENDER is in flight, so an edit can arrive based on a buffer without the
// newline the session just added. Such edits are replayed onto the
// session's buffer instead of overwriting it.
//
// Every RENDER carries a revision. Edits carry the revision of the last
// RENDER the page applied and a sequence number, echoed back as the
// RENDER's ack; the page only applies a RENDER that acknowledges its latest
// edit, or one that replaces the whole buffer.
type pageState struct {
	ack      int64 // seq of the last edit handled
	rev      int64 // revision of the last RENDER sent
	resetRev int64 // revision of the last whole-buffer RENDER

	shadow  string      // the page's buffer as last reported
	pending []insertion // offsets into shadow, in order

	// Set while an edit is being handled.
	editing  bool
	editBase string // session buffer before the edit
	editAt   int    // edit cursor in editBase
	pageAt   int    // edit cursor in shadow
}

// accept lines a page edit up with the session. text and cursor are the
// page's buffer and byte cursor, based on revision base. It returns the
// buffer and cursor the session should apply the edit to, and false when
// the edit was made on a buffer that has since been replaced.
func (p *pageState) accept(text string, cursor int, seq, base int64) (string, int, bool) {
	if base < p.resetRev {
		return "", 0, false
	}
	if seq > p.ack {
		p.ack = seq
	}
	if base >= p.rev {
		// The page has everything the session produced.
		p.shadow = text
		p.pending = nil
		return text, cursor, true
	}

	p.pending = rebase(p.shadow, text, p.pending)
	p.shadow = text
	return apply(text, p.pending), mapOffset(cursor, p.pending), true
}

// begin marks the start of an edit the session applies to buffer at cursor.
func (p *pageState) begin(buffer string, cursor, pageCursor int) {
	p.editing = true
	p.editBase = buffer
	p.editAt = cursor
	p.pageAt = pageCursor
}

func (p *pageState) end() {
	p.editing = false
	p.editBase = ""
}

// rendered records a RENDER of text and returns its revision and whether it
// replaces the page's buffer outright.
func (p *pageState) rendered(text string) (rev int64, reset bool) {
	p.rev++
	if !p.editing {
		p.resetRev = p.rev
		p.shadow = text
		p.pending = nil
		return p.rev, true
	}

	// Enter and palette inserts only ever add text at the cursor.
	if n := len(text) - len(p.editBase); n > 0 && p.editAt+n <= len(text) {
		p.pending = append(p.pending, insertion{at: p.pageAt, text: text[p.editAt : p.editAt+n]})
	}
	return p.rev, false
}

// rebase moves pending insertions from offsets in old to offsets in text,
// where text is old after the page's own edits. The edit is found as the
// span between the common prefix and suffix. Insertions before the span
// stay, those after it shift, and those inside it land at its start.
func rebase(old, text string, pending []insertion) []insertion {
	prefix := commonPrefix(old, text)
	suffix := commonSuffix(old[prefix:], text[prefix:])
	end := len(old) - suffix
	delta := len(text) - len(old)

	out := make([]insertion, 0, len(pending))
	for _, ins := range pending {
		switch {
		case ins.at <= prefix:
		case ins.at >= end:
			ins.at += delta
		default:
			ins.at = prefix
		}
		out = append(out, ins)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at < out[j].at })
	return out
}

// apply splices pending insertions into text.
func apply(text string, pending []insertion) string {
	var b strings.Builder
	last := 0
	for _, ins := range pending {
		at := min(max(ins.at, last), len(text))
		b.WriteString(text[last:at])
		b.WriteString(ins.text)
		last = at
	}
	b.WriteString(text[last:])
	return b.String()
}

// mapOffset converts a byte offset in the page's buffer to one in the
// buffer with pending insertions applied.
func mapOffset(off int, pending []insertion) int {
	out := off
	for _, ins := range pending {
		if ins.at <= off {
			out += len(ins.text)
		}
	}
	return out
}

// commonPrefix returns the length of the longest common prefix of a and b,
// backed off to a rune start.
func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	for n > 0 && n < len(a) && !utf8.RuneStart(a[n]) {
		n--
	}
	return n
}

// commonSuffix is commonPrefix from the other end.
func commonSuffix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	for n > 0 && n < len(a) && !utf8.RuneStart(a[len(a)-n]) {
		n--
	}
	return n
}
