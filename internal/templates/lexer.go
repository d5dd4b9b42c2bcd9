package templates

import (
	"fmt"
	"strings"
)

// Build-time markers.
const (
	varOpen      = "<<"
	varClose     = ">>"
	stmtOpen     = "<%"
	stmtClose    = "%>"
	commentOpen  = "<#"
	commentClose = "#>"
	trimMarker   = '-'
)

// Private delimiters for the lowered text/template source. Literal text
// may never contain them.
const (
	leftDelim  = "\x02"
	rightDelim = "\x03"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokVar
	tokStmt
)

type token struct {
	kind tokenKind
	val  string
	line int
}

// lexResult is the token stream of one template plus its header comment.
type lexResult struct {
	tokens []token
	header string
}

type lexer struct {
	id   string
	src  string
	pos  int
	line int

	out       []token
	header    string
	sawOutput bool

	// trimNext strips leading whitespace from the next text token.
	trimNext bool
}

// lex splits src into literal text and build-time markers. Only the
// build-time markers are recognized; all other text is literal.
func lex(templateID, src string) (*lexResult, error) {
	l := &lexer{id: templateID, src: src, line: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	return &lexResult{tokens: l.out, header: l.header}, nil
}

func (l *lexer) errorf(line int, format string, args ...interface{}) error {
	return &ParseError{TemplateID: l.id, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) run() error {
	textStart := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
			continue
		case c == leftDelim[0] || c == rightDelim[0]:
			return l.errorf(l.line, "control character %q is not allowed in templates", c)
		case strings.HasPrefix(l.src[l.pos:], commentClose):
			return l.errorf(l.line, "%q without matching %q", commentClose, commentOpen)
		case c != '<' || l.pos+1 >= len(l.src):
			l.pos++
			continue
		}

		var closer string
		switch l.src[l.pos : l.pos+2] {
		case commentOpen:
			closer = commentClose
		case varOpen:
			closer = varClose
		case stmtOpen:
			closer = stmtClose
		default:
			l.pos++
			continue
		}

		opener := l.src[l.pos : l.pos+2]
		body, end, ok := l.scanMarker(closer)
		if !ok {
			return l.errorf(l.line, "unclosed %q", opener)
		}

		l.emitText(l.src[textStart:l.pos], opener == stmtOpen && strings.HasPrefix(body, string(trimMarker)))

		startLine := l.line
		l.line += strings.Count(l.src[l.pos:end], "\n")
		l.pos = end
		textStart = end

		switch opener {
		case commentOpen:
			if strings.Contains(body, commentOpen) {
				return l.errorf(startLine, "nested %q inside comment", commentOpen)
			}
			if !l.sawOutput && l.header == "" {
				l.header = strings.TrimSpace(body)
			}
		case varOpen:
			expr := strings.TrimSpace(body)
			if expr == "" {
				return l.errorf(startLine, "empty variable")
			}
			l.out = append(l.out, token{kind: tokVar, val: expr, line: startLine})
			l.sawOutput = true
		case stmtOpen:
			stmt := body
			if strings.HasPrefix(stmt, string(trimMarker)) {
				stmt = stmt[1:]
			}
			if strings.HasSuffix(stmt, string(trimMarker)) {
				stmt = stmt[:len(stmt)-1]
				l.trimNext = true
			}
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				return l.errorf(startLine, "empty statement")
			}
			l.out = append(l.out, token{kind: tokStmt, val: stmt, line: startLine})
			l.sawOutput = true
		}
	}
	l.emitText(l.src[textStart:], false)
	return nil
}

// scanMarker finds closer after the opener at l.pos. It returns the marker
// body and the offset just past the closer.
func (l *lexer) scanMarker(closer string) (string, int, bool) {
	start := l.pos + 2
	i := strings.Index(l.src[start:], closer)
	if i < 0 {
		return "", 0, false
	}
	return l.src[start : start+i], start + i + len(closer), true
}

func (l *lexer) emitText(text string, trimRight bool) {
	if l.trimNext {
		text = strings.TrimLeft(text, " \t\r\n")
		l.trimNext = false
	}
	if trimRight {
		text = strings.TrimRight(text, " \t\r\n")
	}
	if text == "" {
		return
	}
	if strings.TrimSpace(text) != "" {
		l.sawOutput = true
	}
	l.out = append(l.out, token{kind: tokText, val: text, line: l.line})
}
