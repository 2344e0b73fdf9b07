package conv

import (
	"strings"
	"unicode/utf8"
)

// SplitText cuts text into pieces of at most maxLen bytes. It prefers a
// newline in the last two thirds of a piece and never splits a rune.
func SplitText(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if idx := strings.LastIndex(text[:cut], "\n"); idx > maxLen/3 {
			cut = idx
		}
		if cut == 0 {
			// a single rune wider than maxLen
			_, size := utf8.DecodeRuneInString(text)
			cut = size
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}

// Tail returns the last maxLen bytes of text on a rune boundary, prefixed
// with an ellipsis when anything was dropped.
func Tail(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	start := len(text) - maxLen + len("…")
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	return "…" + text[start:]
}

type openTag struct {
	name string
	raw  string
}

// SplitHTML cuts Telegram HTML into pieces of at most maxLen bytes. Tags
// open at a cut are closed at the end of the piece and reopened at the start
// of the next one, so every piece parses on its own. Tags and entities are
// never split, and a newline in the last two thirds of a piece is the
// preferred cut.
func SplitHTML(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}

	sp := &htmlSplitter{maxLen: maxLen, nl: -1}
	for len(text) > 0 {
		tok := nextHTMLToken(text)
		text = text[len(tok):]
		sp.add(tok)
	}
	if sp.visible {
		sp.emit(sp.cur.String() + closeTags(sp.stack))
	}
	return sp.chunks
}

type htmlSplitter struct {
	maxLen  int
	chunks  []string
	cur     strings.Builder
	stack   []openTag
	visible bool

	// last newline in cur and the tags open at that point
	nl        int
	nlStack   []openTag
	nlVisible bool
}

func (sp *htmlSplitter) add(tok string) {
	reserve := closedLen(sp.stack)
	name, closing, isTag := parseTag(tok)
	if isTag && !closing && name != "" {
		reserve += len("</" + name + ">")
	}
	for sp.cur.Len()+len(tok)+reserve > sp.maxLen && sp.cut() {
		reserve = closedLen(sp.stack)
		if isTag && !closing && name != "" {
			reserve += len("</" + name + ">")
		}
	}

	switch {
	case isTag && closing:
		for i := len(sp.stack) - 1; i >= 0; i-- {
			if sp.stack[i].name == name {
				sp.stack = sp.stack[:i]
				break
			}
		}
	case isTag && name != "" && !strings.HasSuffix(tok, "/>"):
		sp.stack = append(sp.stack, openTag{name: name, raw: tok})
	case tok == "\n":
		sp.nl = sp.cur.Len()
		sp.nlStack = append([]openTag(nil), sp.stack...)
		sp.nlVisible = sp.visible
	case !isTag && strings.TrimSpace(tok) != "":
		sp.visible = true
	}
	sp.cur.WriteString(tok)
}

// cut emits the current piece. It reports false when the piece has no text
// yet, in which case the token is kept even if it overflows.
func (sp *htmlSplitter) cut() bool {
	s := sp.cur.String()
	if sp.nl >= 0 && sp.nlVisible && sp.nl > sp.maxLen/3 {
		sp.emit(s[:sp.nl] + closeTags(sp.nlStack))
		tail := s[sp.nl+1:]
		sp.reset(sp.nlStack)
		sp.cur.WriteString(tail)
		sp.visible = hasText(tail)
		return true
	}
	if !sp.visible {
		return false
	}
	sp.emit(s + closeTags(sp.stack))
	sp.reset(sp.stack)
	return true
}

func (sp *htmlSplitter) reset(open []openTag) {
	sp.cur.Reset()
	for _, t := range open {
		sp.cur.WriteString(t.raw)
	}
	sp.visible = false
	sp.nl = -1
	sp.nlStack = nil
}

func (sp *htmlSplitter) emit(chunk string) {
	if chunk = strings.TrimSpace(chunk); chunk != "" {
		sp.chunks = append(sp.chunks, chunk)
	}
}

// nextHTMLToken returns a whole tag, a whole entity or a single rune.
func nextHTMLToken(s string) string {
	switch s[0] {
	case '<':
		if i := strings.IndexByte(s, '>'); i > 0 {
			return s[:i+1]
		}
	case '&':
		if i := strings.IndexByte(s, ';'); i > 0 && i <= 10 {
			return s[:i+1]
		}
	}
	_, size := utf8.DecodeRuneInString(s)
	return s[:size]
}

// parseTag returns the lower-case name of a tag token.
func parseTag(tok string) (name string, closing, ok bool) {
	if len(tok) < 3 || tok[0] != '<' || tok[len(tok)-1] != '>' {
		return "", false, false
	}
	body := strings.TrimSuffix(tok[1:len(tok)-1], "/")
	if strings.HasPrefix(body, "/") {
		closing = true
		body = body[1:]
	}
	if i := strings.IndexAny(body, " \t\n"); i >= 0 {
		body = body[:i]
	}
	return strings.ToLower(body), closing, true
}

func closeTags(open []openTag) string {
	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i].name + ">")
	}
	return b.String()
}

func closedLen(open []openTag) int {
	n := 0
	for _, t := range open {
		n += len(t.name) + 3
	}
	return n
}

func hasText(s string) bool {
	for len(s) > 0 {
		tok := nextHTMLToken(s)
		s = s[len(tok):]
		if _, _, isTag := parseTag(tok); !isTag && strings.TrimSpace(tok) != "" {
			return true
		}
	}
	return false
}
