package service

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"hebedit/internal/editor/model"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// isSpace matches the characters of a JavaScript \s class.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

// IsBlank reports whether text is empty once surrounding whitespace is
// trimmed.
func IsBlank(text string) bool {
	return strings.TrimFunc(text, isSpace) == ""
}

// LineIndent returns the leading whitespace of the line that contains pos,
// considering only the part of the line before pos.
func LineIndent(text string, pos int) string {
	before := text[:pos]
	line := before[strings.LastIndexByte(before, '\n')+1:]
	return line[:len(line)-len(strings.TrimLeftFunc(line, isSpace))]
}

// InsertNewline splits text at pos and carries the current line's indent
// onto the new line. The indent comes from the line the cursor is on, even
// when that line holds nothing but whitespace. It returns the new text and
// the cursor position right after the inserted indent.
func InsertNewline(text string, pos int) (string, int) {
	pos = clampOffset(text, pos)
	indent := LineIndent(text, pos)
	return text[:pos] + "\n" + indent + text[pos:], pos + 1 + len(indent)
}

// InsertText splices s into text at pos and returns the cursor after it.
func InsertText(text string, pos int, s string) (string, int) {
	pos = clampOffset(text, pos)
	return text[:pos] + s + text[pos:], pos + len(s)
}

// clampOffset bounds pos to text and moves it back to a rune boundary.
func clampOffset(text string, pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > len(text) {
		return len(text)
	}
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

var countPrinter = message.NewPrinter(language.Hebrew)

// CharCountLabel formats the character count of text with Hebrew digit
// grouping, e.g. "1,234 תווים". Characters are UTF-16 code units, the unit
// the page's textarea counts in, so a character outside the BMP counts 2.
func CharCountLabel(text string) string {
	return countPrinter.Sprintf("%d תווים", utf16Len(text))
}

func utf16Len(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

// DetectDirection returns rtl when Hebrew letters outnumber Latin ones.
// Mixed text is decided by majority, so "שלום hi" is rtl; a single Latin
// letter does not flip a Hebrew document to ltr.
func DetectDirection(text string) model.Direction {
	var hebrew, latin int
	for _, r := range text {
		switch {
		case r >= '\u0590' && r <= '\u05ff':
			hebrew++
		case r < utf8.RuneSelf && unicode.IsLetter(r):
			latin++
		}
	}
	if hebrew > latin {
		return model.DirectionRTL
	}
	return model.DirectionLTR
}

// IsTextType reports whether a declared MIME type is acceptable for loading.
// Like the browser check it replaces, the match is unanchored: any type
// containing "text" passes.
func IsTextType(mimeType string) bool {
	return strings.Contains(mimeType, "text")
}

// ParseShortcut maps a key press to an editor shortcut. Only combinations
// with the primary modifier (Ctrl, or Cmd on macOS) count.
func ParseShortcut(key string, ctrl, meta bool) (model.ShortcutKind, bool) {
	if !ctrl && !meta {
		return "", false
	}
	switch key {
	case "s":
		return model.ShortcutSave, true
	case "o":
		return model.ShortcutOpen, true
	case "n":
		return model.ShortcutNew, true
	}
	return "", false
}

// ShortcutKeys lists the keys that, with the primary modifier, are handled
// by the editor and must not reach the host.
func ShortcutKeys() []string {
	return []string{"s", "o", "n"}
}
