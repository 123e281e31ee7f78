package transform

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexed token.
type TokenKind int

const (
	EOF TokenKind = iota
	Ident
	Number
	String
	Template
	Regex
	Punct
	JSX
)

var kindNames = [...]string{"EOF", "Ident", "Number", "String", "Template", "Regex", "Punct", "JSX"}

func (k TokenKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Token is one lexical token. Template literals and whole JSX elements are
// single tokens; their embedded expressions are lexed only to find where
// they end.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int // byte offset
	End   int // byte offset, exclusive
	Line  int // 1-based
	Col   int // 1-based, in runes

	// NewlineBefore is set when a line break separates this token from the
	// previous one.
	NewlineBefore bool
}

// Is reports whether t is the identifier or punctuator s.
func (t Token) Is(s string) bool {
	return (t.Kind == Ident || t.Kind == Punct) && t.Text == s
}

// Tokenize splits src into tokens. Comments and whitespace are dropped.
func Tokenize(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	var out []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == EOF {
			return out, nil
		}
		out = append(out, tok)
	}
}

const eof = -1

type lexer struct {
	src  string
	pos  int
	line int
	col  int

	// prev is the last significant token, used to tell a regex from a
	// division and a JSX element from a less-than.
	prev    Token
	hasPrev bool
}

func (l *lexer) peekN(n int) rune {
	p := l.pos
	for i := 0; ; i++ {
		if p >= len(l.src) {
			return eof
		}
		r, w := utf8.DecodeRuneInString(l.src[p:])
		if i == n {
			return r
		}
		p += w
	}
}

func (l *lexer) peek() rune {
	return l.peekN(0)
}

func (l *lexer) read() rune {
	if l.pos >= len(l.src) {
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.src[l.pos:], s)
}

func (l *lexer) consume(s string) {
	for range utf8.RuneCountInString(s) {
		l.read()
	}
}

func (l *lexer) errorf(line, col int, msg string) *Error {
	return &Error{Line: line, Column: col, Message: msg}
}

// skipSpace skips whitespace and comments and reports whether a line break
// was crossed.
func (l *lexer) skipSpace() (newline bool, err error) {
	for {
		r := l.peek()
		switch {
		case r == eof:
			return newline, nil
		case r == '\n':
			newline = true
			l.read()
		case unicode.IsSpace(r):
			l.read()
		case l.hasPrefix("//"):
			for r := l.peek(); r != eof && r != '\n'; r = l.peek() {
				l.read()
			}
		case l.hasPrefix("/*"):
			line, col := l.line, l.col
			l.consume("/*")
			for {
				if l.peek() == eof {
					return newline, l.errorf(line, col, "unterminated block comment")
				}
				if l.hasPrefix("*/") {
					l.consume("*/")
					break
				}
				if l.read() == '\n' {
					newline = true
				}
			}
		default:
			return newline, nil
		}
	}
}

func (l *lexer) next() (Token, error) {
	newline, err := l.skipSpace()
	if err != nil {
		return Token{}, err
	}

	tok := Token{Start: l.pos, Line: l.line, Col: l.col, NewlineBefore: newline}
	r := l.peek()

	switch {
	case r == eof:
		tok.Kind = EOF
		return tok, nil
	case isIdentStart(r):
		for isIdentPart(l.peek()) {
			l.read()
		}
		tok.Kind = Ident
	case isDigit(r) || (r == '.' && isDigit(l.peekN(1))):
		l.scanNumber()
		tok.Kind = Number
	case r == '"' || r == '\'':
		if err := l.scanString(r); err != nil {
			return Token{}, err
		}
		tok.Kind = String
	case r == '`':
		if err := l.scanTemplate(); err != nil {
			return Token{}, err
		}
		tok.Kind = Template
	case r == '/' && l.expressionStart():
		if err := l.scanRegex(); err != nil {
			return Token{}, err
		}
		tok.Kind = Regex
	case r == '<' && l.expressionStart() && (isIdentStart(l.peekN(1)) || l.peekN(1) == '>'):
		if err := l.scanJSXElement(); err != nil {
			return Token{}, err
		}
		tok.Kind = JSX
	default:
		p := matchPunct(l.src[l.pos:])
		if p == "" {
			return Token{}, l.errorf(tok.Line, tok.Col, "unexpected character "+quoteRune(r))
		}
		l.consume(p)
		tok.Kind = Punct
	}

	tok.End = l.pos
	tok.Text = l.src[tok.Start:tok.End]
	l.prev, l.hasPrev = tok, true
	return tok, nil
}

// expressionStart reports whether the next token begins an expression, in
// which case a slash opens a regex and a less-than may open JSX.
func (l *lexer) expressionStart() bool {
	if !l.hasPrev {
		return true
	}
	switch l.prev.Kind {
	case Punct:
		switch l.prev.Text {
		case ")", "]", "}", "++", "--":
			return false
		}
		return true
	case Ident:
		return exprKeywords[l.prev.Text]
	default:
		return false
	}
}

var exprKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true, "default": true,
}

func (l *lexer) scanNumber() {
	for {
		r := l.peek()
		switch {
		case isIdentPart(r) || r == '.':
			l.read()
		case (r == '+' || r == '-') && l.pos > 0 && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E') && !l.isHexNumber():
			l.read()
		default:
			return
		}
	}
}

func (l *lexer) isHexNumber() bool {
	start := l.pos
	for start > 0 && (isIdentPart(rune(l.src[start-1])) || l.src[start-1] == '.') {
		start--
	}
	lit := strings.ToLower(l.src[start:l.pos])
	return strings.HasPrefix(lit, "0x")
}

func (l *lexer) scanString(quote rune) error {
	line, col := l.line, l.col
	l.read()
	for {
		r := l.read()
		switch r {
		case eof, '\n':
			return l.errorf(line, col, "unterminated string literal")
		case '\\':
			if l.read() == eof {
				return l.errorf(line, col, "unterminated string literal")
			}
		case quote:
			return nil
		}
	}
}

func (l *lexer) scanTemplate() error {
	line, col := l.line, l.col
	l.read()
	for {
		switch {
		case l.peek() == eof:
			return l.errorf(line, col, "unterminated template literal")
		case l.peek() == '\\':
			l.read()
			l.read()
		case l.peek() == '`':
			l.read()
			return nil
		case l.hasPrefix("${"):
			l.consume("${")
			if err := l.scanBalanced(line, col, "template literal"); err != nil {
				return err
			}
		default:
			l.read()
		}
	}
}

// scanBalanced lexes an embedded expression up to and including its closing
// brace. The opening brace has already been consumed.
func (l *lexer) scanBalanced(line, col int, what string) error {
	savedPrev, savedHas := l.prev, l.hasPrev
	l.hasPrev = false
	defer func() { l.prev, l.hasPrev = savedPrev, savedHas }()

	depth := 0
	for {
		tok, err := l.next()
		if err != nil {
			return err
		}
		switch {
		case tok.Kind == EOF:
			return l.errorf(line, col, "unterminated "+what)
		case tok.Is("{"):
			depth++
		case tok.Is("}"):
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

func (l *lexer) scanRegex() error {
	line, col := l.line, l.col
	l.read()
	inClass := false
	for {
		r := l.read()
		switch r {
		case eof, '\n':
			return l.errorf(line, col, "unterminated regular expression")
		case '\\':
			if r := l.read(); r == eof || r == '\n' {
				return l.errorf(line, col, "unterminated regular expression")
			}
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if inClass {
				continue
			}
			for isIdentPart(l.peek()) {
				l.read()
			}
			return nil
		}
	}
}

// scanJSXElement consumes one JSX element or fragment including its
// children and closing tag.
func (l *lexer) scanJSXElement() error {
	line, col := l.line, l.col
	l.read() // <
	name := l.scanJSXName()

	for {
		if _, err := l.skipSpace(); err != nil {
			return err
		}
		switch {
		case l.peek() == eof:
			return l.errorf(line, col, "unterminated JSX element <"+name+">")
		case l.hasPrefix("/>"):
			l.consume("/>")
			return nil
		case l.peek() == '>':
			l.read()
			return l.scanJSXChildren(name, line, col)
		case l.peek() == '{':
			l.read()
			if err := l.scanBalanced(line, col, "JSX attribute"); err != nil {
				return err
			}
		case isIdentStart(l.peek()):
			l.scanJSXName()
			if _, err := l.skipSpace(); err != nil {
				return err
			}
			if l.peek() != '=' {
				continue
			}
			l.read()
			if _, err := l.skipSpace(); err != nil {
				return err
			}
			if err := l.scanJSXAttrValue(line, col); err != nil {
				return err
			}
		default:
			return l.errorf(l.line, l.col, "unexpected character "+quoteRune(l.peek())+" in JSX element <"+name+">")
		}
	}
}

func (l *lexer) scanJSXName() string {
	start := l.pos
	for r := l.peek(); isIdentPart(r) || r == '.' || r == '-' || r == ':'; r = l.peek() {
		l.read()
	}
	return l.src[start:l.pos]
}

func (l *lexer) scanJSXAttrValue(line, col int) error {
	switch r := l.peek(); {
	case r == '"' || r == '\'':
		// JSX attribute strings have no escapes and may span lines.
		l.read()
		for {
			c := l.read()
			if c == eof {
				return l.errorf(line, col, "unterminated JSX attribute")
			}
			if c == r {
				return nil
			}
		}
	case r == '{':
		l.read()
		return l.scanBalanced(line, col, "JSX attribute")
	case r == '<':
		return l.scanJSXElement()
	default:
		return l.errorf(l.line, l.col, "invalid JSX attribute value")
	}
}

func (l *lexer) scanJSXChildren(name string, line, col int) error {
	for {
		switch {
		case l.peek() == eof:
			return l.errorf(line, col, "unterminated JSX element <"+name+">")
		case l.peek() == '{':
			l.read()
			if err := l.scanBalanced(line, col, "JSX expression"); err != nil {
				return err
			}
		case l.hasPrefix("</"):
			closeLine, closeCol := l.line, l.col
			l.consume("</")
			l.skipSpace()
			closing := l.scanJSXName()
			l.skipSpace()
			if l.peek() != '>' {
				return l.errorf(closeLine, closeCol, "malformed closing tag </"+closing)
			}
			l.read()
			if closing != name {
				return l.errorf(closeLine, closeCol, "closing tag </"+closing+"> does not match <"+name+">")
			}
			return nil
		case l.peek() == '<':
			if err := l.scanJSXElement(); err != nil {
				return err
			}
		default:
			l.read()
		}
	}
}

var puncts = []string{
	">>>=", "...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<", ">>",
}

func matchPunct(s string) string {
	for _, p := range puncts {
		if strings.HasPrefix(s, p) {
			return p
		}
	}
	if s != "" && strings.ContainsRune("{}()[];,.<>+-*/%&|^!~?:=@#", rune(s[0])) {
		return s[:1]
	}
	return ""
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r) || (r > unicode.MaxASCII && unicode.IsDigit(r))
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}
