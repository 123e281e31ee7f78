// Package transform rewrites a single-file mobile app module into a plain
// script the sandbox can evaluate: module imports are removed, export
// syntax is stripped and the entry component is registered by name.
//
// The rewrite works on tokens rather than text patterns, so strings,
// comments, template literals and JSX text never trigger it. Removed
// statements are replaced by the line breaks they contained, keeping line
// numbers of runtime errors aligned with the edited source.
package transform

import (
	"fmt"
	"slices"
	"strings"
)

// Registry is the name of the export registry object passed to user code.
const Registry = "__exports"

// FallbackEntry is the entry name used when the module names none.
const FallbackEntry = "App"

// Unit is the result of transforming one source document.
type Unit struct {
	// Code is the rewritten source, still containing JSX.
	Code string
	// Entry is the name of the component to mount.
	Entry string
	// Imports lists the module specifiers that were removed, in order.
	Imports []string
}

// Transform rewrites src. Malformed input fails with *Error.
func Transform(src string) (*Unit, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	s := &scanner{
		src:      src,
		toks:     toks,
		declared: map[string]bool{},
	}
	if err := s.measure(); err != nil {
		return nil, err
	}
	if err := s.rewrite(); err != nil {
		return nil, err
	}
	return s.finish(), nil
}

type edit struct {
	start, end int
	repl       string
}

type scanner struct {
	src   string
	toks  []Token
	depth []int
	edits []edit

	declared    map[string]bool
	imports     []string
	firstFunc   string
	registered  string
	defaultName string
}

var closers = map[string]string{"{": "}", "(": ")", "[": "]"}

// measure records the bracket depth of every token, rejects unbalanced
// input and collects top-level declarations.
func (s *scanner) measure() error {
	s.depth = make([]int, len(s.toks))
	var stack []Token
	for i, t := range s.toks {
		s.depth[i] = len(stack)
		if t.Kind != Punct {
			continue
		}
		switch t.Text {
		case "{", "(", "[":
			stack = append(stack, t)
		case "}", ")", "]":
			if len(stack) == 0 {
				return errorAt(t, "unexpected %q", t.Text)
			}
			open := stack[len(stack)-1]
			if closers[open.Text] != t.Text {
				return errorAt(t, "unexpected %q, expected %q to close %q from line %d", t.Text, closers[open.Text], open.Text, open.Line)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return errorAt(open, "unclosed %q", open.Text)
	}

	for i, t := range s.toks {
		if s.depth[i] != 0 || !s.declarationStart(i) {
			continue
		}
		switch {
		case t.Is("function"):
			j := i + 1
			if s.at(j).Is("*") {
				j++
			}
			if name := s.at(j); name.Kind == Ident {
				s.declared[name.Text] = true
				if s.firstFunc == "" {
					s.firstFunc = name.Text
				}
			}
		case t.Is("class"), t.Is("const"), t.Is("let"), t.Is("var"):
			if name := s.at(i + 1); name.Kind == Ident && !name.Is("extends") {
				s.declared[name.Text] = true
			}
		}
	}
	return nil
}

func (s *scanner) rewrite() error {
	for i := 0; i < len(s.toks); i++ {
		if s.depth[i] != 0 || !s.statementStart(i) {
			continue
		}
		t := s.toks[i]

		var last int
		var err error
		switch {
		case t.Is("import") && !s.at(i+1).Is("(") && !s.at(i+1).Is("."):
			last, err = s.importDecl(i)
		case t.Is("export"):
			last, err = s.exportDecl(i)
		case t.Is(Registry):
			s.registryAssignment(i)
			continue
		default:
			continue
		}
		if err != nil {
			return err
		}
		i = last
	}
	return nil
}

func (s *scanner) importDecl(i int) (int, error) {
	imp := s.toks[i]

	j := i + 1
	var from Token
	if s.at(j).Kind == String {
		from = s.at(j)
	} else {
		for ; ; j++ {
			t := s.at(j)
			if t.Kind == EOF || t.Is(";") || ((t.Is("import") || t.Is("export")) && s.depth[j] == 0) {
				return 0, errorAt(imp, "import without a module specifier")
			}
			if t.Is("from") && s.at(j+1).Kind == String {
				j++
				from = s.at(j)
				break
			}
		}
	}

	last := j
	if s.at(last + 1).Is(";") {
		last++
	}
	s.remove(imp.Start, s.toks[last].End)
	s.imports = append(s.imports, unquote(from.Text))
	return last, nil
}

var declKeywords = map[string]bool{
	"function": true, "async": true, "class": true,
	"const": true, "let": true, "var": true,
}

func (s *scanner) exportDecl(i int) (int, error) {
	exp := s.toks[i]
	next := s.at(i + 1)

	switch {
	case next.Is("default"):
		return s.exportDefault(i)
	case next.Is("{"):
		return s.exportList(i)
	case next.Is("*"):
		j := i + 2
		if s.at(j).Is("as") {
			j += 2
		}
		if !s.at(j).Is("from") || s.at(j+1).Kind != String {
			return 0, errorAt(next, "export * without a module specifier")
		}
		last := j + 1
		if s.at(last + 1).Is(";") {
			last++
		}
		s.imports = append(s.imports, unquote(s.toks[j+1].Text))
		s.remove(exp.Start, s.toks[last].End)
		return last, nil
	case next.Kind == Ident && declKeywords[next.Text]:
		s.remove(exp.Start, next.Start)
		return i, nil
	default:
		return 0, errorAt(next, "unsupported export %q", next.Text)
	}
}

// keywords that cannot name a default export.
var keywords = map[string]bool{
	"if": true, "for": true, "while": true, "do": true, "switch": true,
	"try": true, "return": true, "throw": true, "break": true, "continue": true,
	"var": true, "let": true, "const": true, "import": true, "export": true,
	"default": true, "case": true, "else": true, "with": true, "debugger": true,
	"null": true, "true": true, "false": true, "undefined": true, "this": true,
	"new": true, "typeof": true, "void": true, "delete": true, "await": true,
}

// statementKeywords cannot start an expression.
var statementKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "do": true, "switch": true,
	"try": true, "return": true, "throw": true, "break": true, "continue": true,
	"var": true, "let": true, "const": true, "import": true, "export": true,
	"default": true, "case": true, "else": true, "with": true, "debugger": true,
}

func (s *scanner) exportDefault(i int) (int, error) {
	exp := s.toks[i]
	v := s.at(i + 2)

	switch {
	case v.Is("function") || (v.Is("async") && s.at(i+3).Is("function")):
		fn := i + 2
		if v.Is("async") {
			fn = i + 3
		}
		s.remove(exp.Start, v.Start)
		nameIdx := fn + 1
		if s.at(nameIdx).Is("*") {
			nameIdx++
		}
		return s.defaultDeclaration(nameIdx), nil

	case v.Is("class"):
		s.remove(exp.Start, v.Start)
		return s.defaultDeclaration(i + 3), nil

	case v.Kind == Ident && !keywords[v.Text] && s.endsStatement(i+3):
		last := i + 2
		if s.at(last + 1).Is(";") {
			last++
		}
		s.remove(exp.Start, s.toks[last].End)
		s.defaultName = v.Text
		return last, nil

	case v.Kind == EOF || v.Is(";") || v.Is("}") || v.Is(")") || v.Is("]") || v.Is(","):
		return 0, errorAt(v, "export default without a value")

	case s.startsExpression(v):
		name := s.freeName()
		s.replace(exp.Start, v.Start, "const "+name+" = ")
		s.defaultName = name
		return i + 1, nil

	default:
		return 0, errorAt(v, "unsupported default export %q", v.Text)
	}
}

// defaultDeclaration handles the name of a default-exported function or
// class, naming anonymous ones. It returns the last consumed token index.
func (s *scanner) defaultDeclaration(nameIdx int) int {
	if n := s.at(nameIdx); n.Kind == Ident && !n.Is("extends") {
		s.defaultName = n.Text
		if s.firstFunc == "" {
			s.firstFunc = n.Text
		}
		return nameIdx
	}
	kw := s.toks[nameIdx-1]
	name := s.freeName()
	s.replace(kw.End, kw.End, " "+name)
	s.defaultName = name
	return nameIdx - 1
}

func (s *scanner) exportList(i int) (int, error) {
	exp := s.toks[i]

	j := i + 2
	for ; !s.at(j).Is("}"); j++ {
		if s.at(j).Is("as") && s.at(j+1).Is("default") && j-1 > i+1 {
			s.defaultName = s.toks[j-1].Text
		}
	}

	last := j
	if s.at(last + 1).Is("from") {
		from := s.at(last + 2)
		if from.Kind != String {
			return 0, errorAt(s.at(last+1), "export from without a module specifier")
		}
		s.imports = append(s.imports, unquote(from.Text))
		last += 2
	}
	if s.at(last + 1).Is(";") {
		last++
	}
	s.remove(exp.Start, s.toks[last].End)
	return last, nil
}

// registryAssignment notes an existing `__exports.X = X` statement. The last
// one wins, which keeps a second transformation pass stable.
func (s *scanner) registryAssignment(i int) {
	name := s.at(i + 2)
	if s.at(i+1).Is(".") && name.Kind == Ident && s.at(i+3).Is("=") &&
		s.at(i+4).Kind == Ident && s.at(i+4).Text == name.Text {
		s.registered = name.Text
	}
}

func (s *scanner) finish() *Unit {
	entry := s.defaultName
	if entry == "" {
		entry = s.registered
	}
	if entry == "" {
		entry = s.firstFunc
	}
	if entry == "" {
		entry = FallbackEntry
	}

	code := s.apply()
	if s.registered != entry {
		if code != "" && !strings.HasSuffix(code, "\n") {
			code += "\n"
		}
		code += fmt.Sprintf("%s.%s = %s;\n", Registry, entry, entry)
	}
	return &Unit{Code: code, Entry: entry, Imports: s.imports}
}

func (s *scanner) apply() string {
	slices.SortStableFunc(s.edits, func(a, b edit) int { return a.start - b.start })
	var b strings.Builder
	pos := 0
	for _, e := range s.edits {
		b.WriteString(s.src[pos:e.start])
		b.WriteString(e.repl)
		pos = e.end
	}
	b.WriteString(s.src[pos:])
	return b.String()
}

// remove deletes src[start:end] but keeps its line breaks.
func (s *scanner) remove(start, end int) {
	s.replace(start, end, strings.Repeat("\n", strings.Count(s.src[start:end], "\n")))
}

func (s *scanner) replace(start, end int, repl string) {
	s.edits = append(s.edits, edit{start: start, end: end, repl: repl})
}

// freeName picks a top-level name for an anonymous default export.
func (s *scanner) freeName() string {
	name := FallbackEntry
	for n := 2; s.declared[name]; n++ {
		name = fmt.Sprintf("%s%d", FallbackEntry, n)
	}
	s.declared[name] = true
	return name
}

// at returns token i, or an EOF token positioned at the end of the source.
func (s *scanner) at(i int) Token {
	if i >= 0 && i < len(s.toks) {
		return s.toks[i]
	}
	line, col := 1, 1
	for _, r := range s.src {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Token{Kind: EOF, Start: len(s.src), End: len(s.src), Line: line, Col: col, NewlineBefore: true}
}

func (s *scanner) statementStart(i int) bool {
	if i == 0 || s.toks[i].NewlineBefore {
		return true
	}
	prev := s.toks[i-1]
	return prev.Is(";") || prev.Is("}") || prev.Is("{")
}

func (s *scanner) declarationStart(i int) bool {
	if s.statementStart(i) {
		return true
	}
	prev := s.toks[i-1]
	return prev.Is("export") || prev.Is("default") || prev.Is("async")
}

func (s *scanner) endsStatement(i int) bool {
	t := s.at(i)
	return t.Kind == EOF || t.Is(";") || t.NewlineBefore
}

func (s *scanner) startsExpression(t Token) bool {
	switch t.Kind {
	case Number, String, Template, Regex, JSX:
		return true
	case Ident:
		return !statementKeywords[t.Text]
	case Punct:
		switch t.Text {
		case "(", "[", "{", "!", "-", "+", "~":
			return true
		}
	}
	return false
}

func unquote(lit string) string {
	if len(lit) >= 2 {
		return lit[1 : len(lit)-1]
	}
	return lit
}
