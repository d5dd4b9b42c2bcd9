package templates

import (
	"fmt"
	"strconv"
	"strings"
)

// Filters usable after "|" in a variable.
var filterNames = map[string]bool{
	"slugify": true,
	"lower":   true,
	"upper":   true,
	"title":   true,
	"quote":   true,
	"tojson":  true,
}

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true,
	"true": true, "false": true,
}

type blockKind string

const (
	blockIf  blockKind = "if"
	blockFor blockKind = "for"
)

type block struct {
	kind    blockKind
	line    int
	sawElse bool
}

// lowerer rewrites build-time tokens into text/template source using the
// private delimiters.
type lowerer struct {
	id       string
	b        strings.Builder
	stack    []block
	loopVars []string
}

func lower(templateID string, lr *lexResult) (string, error) {
	lw := &lowerer{id: templateID}
	for _, tok := range lr.tokens {
		var err error
		switch tok.kind {
		case tokText:
			lw.b.WriteString(tok.val)
		case tokVar:
			err = lw.variable(tok)
		case tokStmt:
			err = lw.statement(tok)
		}
		if err != nil {
			return "", err
		}
	}
	if n := len(lw.stack); n > 0 {
		top := lw.stack[n-1]
		return "", lw.errorf(top.line, "%s block is never closed", top.kind)
	}
	return lw.b.String(), nil
}

func (lw *lowerer) errorf(line int, format string, args ...interface{}) error {
	return &ParseError{TemplateID: lw.id, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (lw *lowerer) action(s string) {
	lw.b.WriteString(leftDelim)
	lw.b.WriteString(s)
	lw.b.WriteString(rightDelim)
}

func (lw *lowerer) variable(tok token) error {
	p, err := lw.parser(tok)
	if err != nil {
		return err
	}
	expr, err := p.orExpr()
	if err != nil {
		return lw.errorf(tok.line, "variable %q: %v", tok.val, err)
	}
	for p.peek().val == "|" && p.peek().kind == exprOp {
		p.next()
		f := p.next()
		if f.kind != exprIdent || !filterNames[f.val] {
			return lw.errorf(tok.line, "variable %q: unknown filter %q", tok.val, f.val)
		}
		expr += " | " + f.val
	}
	if !p.done() {
		return lw.errorf(tok.line, "variable %q: unexpected %q", tok.val, p.peek().val)
	}
	lw.action(expr)
	return nil
}

func (lw *lowerer) statement(tok token) error {
	word, rest, _ := strings.Cut(tok.val, " ")
	rest = strings.TrimSpace(rest)

	switch word {
	case "if", "elif":
		if word == "elif" {
			top, ok := lw.top(blockIf)
			if !ok || top.sawElse {
				return lw.errorf(tok.line, "elif without open if")
			}
		}
		cond, err := lw.condition(tok, rest)
		if err != nil {
			return err
		}
		if word == "if" {
			lw.stack = append(lw.stack, block{kind: blockIf, line: tok.line})
			lw.action("if " + cond)
		} else {
			lw.action("else if " + cond)
		}

	case "else":
		top, ok := lw.top(blockIf)
		if !ok || top.sawElse || rest != "" {
			return lw.errorf(tok.line, "else without open if")
		}
		top.sawElse = true
		lw.action("else")

	case "endif":
		if _, ok := lw.top(blockIf); !ok || rest != "" {
			return lw.errorf(tok.line, "endif without open if")
		}
		lw.stack = lw.stack[:len(lw.stack)-1]
		lw.action("end")

	case "for":
		name, src, ok := strings.Cut(rest, " in ")
		name = strings.TrimSpace(name)
		if !ok || !isIdent(name) || keywords[name] {
			return lw.errorf(tok.line, "for: expected \"for <name> in <path>\"")
		}
		p, err := lw.parser(token{val: src, line: tok.line})
		if err != nil {
			return err
		}
		operand, err := p.operand()
		if err != nil || !p.done() {
			return lw.errorf(tok.line, "for: invalid iterable %q", strings.TrimSpace(src))
		}
		lw.stack = append(lw.stack, block{kind: blockFor, line: tok.line})
		lw.loopVars = append(lw.loopVars, name)
		lw.action("range $" + name + " := " + operand)

	case "endfor":
		if _, ok := lw.top(blockFor); !ok || rest != "" {
			return lw.errorf(tok.line, "endfor without open for")
		}
		lw.stack = lw.stack[:len(lw.stack)-1]
		lw.loopVars = lw.loopVars[:len(lw.loopVars)-1]
		lw.action("end")

	default:
		return lw.errorf(tok.line, "unknown statement %q", word)
	}
	return nil
}

func (lw *lowerer) condition(tok token, src string) (string, error) {
	if src == "" {
		return "", lw.errorf(tok.line, "missing condition")
	}
	p, err := lw.parser(token{val: src, line: tok.line})
	if err != nil {
		return "", err
	}
	cond, err := p.orExpr()
	if err == nil && !p.done() {
		err = fmt.Errorf("unexpected %q", p.peek().val)
	}
	if err != nil {
		return "", lw.errorf(tok.line, "condition %q: %v", src, err)
	}
	return cond, nil
}

func (lw *lowerer) top(kind blockKind) (*block, bool) {
	if len(lw.stack) == 0 {
		return nil, false
	}
	top := &lw.stack[len(lw.stack)-1]
	return top, top.kind == kind
}

func (lw *lowerer) parser(tok token) (*exprParser, error) {
	toks, err := scanExpr(tok.val)
	if err != nil {
		return nil, lw.errorf(tok.line, "%q: %v", tok.val, err)
	}
	return &exprParser{toks: toks, loopVars: lw.loopVars}, nil
}

type exprKind int

const (
	exprEOF exprKind = iota
	exprIdent
	exprString
	exprNumber
	exprOp
)

type exprTok struct {
	kind exprKind
	val  string
}

// scanExpr tokenizes a build-time expression.
func scanExpr(s string) ([]exprTok, error) {
	var toks []exprTok
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.HasPrefix(s[i:], "==") || strings.HasPrefix(s[i:], "!="):
			toks = append(toks, exprTok{exprOp, s[i : i+2]})
			i += 2
		case c == '|' || c == '(' || c == ')':
			toks = append(toks, exprTok{exprOp, string(c)})
			i++
		case c == '"' || c == '\'':
			j := i + 1
			var b strings.Builder
			for ; j < len(s) && s[j] != c; j++ {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				b.WriteByte(s[j])
			}
			if j >= len(s) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, exprTok{exprString, b.String()})
			i = j + 1
		case c >= '0' && c <= '9':
			j := i
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			if _, err := strconv.ParseFloat(s[i:j], 64); err != nil {
				return nil, fmt.Errorf("invalid number %q", s[i:j])
			}
			toks = append(toks, exprTok{exprNumber, s[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(s) && (isIdentStart(s[j]) || s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			path := s[i:j]
			for _, seg := range strings.Split(path, ".") {
				if !isIdent(seg) {
					return nil, fmt.Errorf("invalid name %q", path)
				}
			}
			toks = append(toks, exprTok{exprIdent, path})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isIdentStart(c) && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// exprParser lowers:
//
//	or      = and { "or" and }
//	and     = not { "and" not }
//	not     = "not" not | cmp
//	cmp     = operand [ ("==" | "!=") operand ]
//	operand = path | string | number | true | false | "(" or ")"
type exprParser struct {
	toks     []exprTok
	pos      int
	loopVars []string
}

func (p *exprParser) peek() exprTok {
	if p.pos >= len(p.toks) {
		return exprTok{kind: exprEOF}
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() exprTok {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *exprParser) done() bool {
	return p.pos >= len(p.toks)
}

func (p *exprParser) isWord(w string) bool {
	t := p.peek()
	return t.kind == exprIdent && t.val == w
}

func (p *exprParser) orExpr() (string, error) {
	left, err := p.andExpr()
	if err != nil {
		return "", err
	}
	for p.isWord("or") {
		p.next()
		right, err := p.andExpr()
		if err != nil {
			return "", err
		}
		left = "(or " + left + " " + right + ")"
	}
	return left, nil
}

func (p *exprParser) andExpr() (string, error) {
	left, err := p.notExpr()
	if err != nil {
		return "", err
	}
	for p.isWord("and") {
		p.next()
		right, err := p.notExpr()
		if err != nil {
			return "", err
		}
		left = "(and " + left + " " + right + ")"
	}
	return left, nil
}

func (p *exprParser) notExpr() (string, error) {
	if p.isWord("not") {
		p.next()
		inner, err := p.notExpr()
		if err != nil {
			return "", err
		}
		return "(not " + inner + ")", nil
	}
	return p.cmpExpr()
}

func (p *exprParser) cmpExpr() (string, error) {
	left, err := p.operand()
	if err != nil {
		return "", err
	}
	t := p.peek()
	if t.kind != exprOp || (t.val != "==" && t.val != "!=") {
		return left, nil
	}
	p.next()
	right, err := p.operand()
	if err != nil {
		return "", err
	}
	fn := "eq"
	if t.val == "!=" {
		fn = "ne"
	}
	return "(" + fn + " " + left + " " + right + ")", nil
}

func (p *exprParser) operand() (string, error) {
	t := p.next()
	switch t.kind {
	case exprString:
		return strconv.Quote(t.val), nil
	case exprNumber:
		return t.val, nil
	case exprIdent:
		switch {
		case t.val == "true" || t.val == "false":
			return t.val, nil
		case keywords[t.val]:
			return "", fmt.Errorf("unexpected %q", t.val)
		}
		return p.path(t.val), nil
	case exprOp:
		if t.val == "(" {
			inner, err := p.orExpr()
			if err != nil {
				return "", err
			}
			if c := p.next(); c.kind != exprOp || c.val != ")" {
				return "", fmt.Errorf("missing \")\"")
			}
			return inner, nil
		}
		return "", fmt.Errorf("unexpected %q", t.val)
	default:
		return "", fmt.Errorf("unexpected end of expression")
	}
}

// path maps a dotted name onto the data root or an enclosing loop variable.
func (p *exprParser) path(name string) string {
	root, _, _ := strings.Cut(name, ".")
	for i := len(p.loopVars) - 1; i >= 0; i-- {
		if p.loopVars[i] == root {
			return "$" + name
		}
	}
	return "." + name
}
