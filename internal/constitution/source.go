package constitution

import (
	"path/filepath"
	"regexp"
	"strings"
)

// language selects the lexical rules used to read a file.
type language int

const (
	langCLike language = iota // JS, TS and other brace languages
	langGo
	langPython
)

func detectLanguage(path string) language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return langGo
	case ".py":
		return langPython
	default:
		return langCLike
	}
}

// SourceFile is a file prepared for rule evaluation.
type SourceFile struct {
	Path    string
	Content string
	// Lines are the raw lines of Content without terminators.
	Lines []string

	lang language
	// code is Content with comments and string literal bodies replaced
	// by spaces. Offsets and line breaks match Content exactly.
	code      string
	codeLines []string
	exists    func(string) bool
}

// NewSourceFile prepares content for evaluation. exists reports whether
// a sibling path exists; nil means nothing else exists.
func NewSourceFile(path, content string, exists func(string) bool) *SourceFile {
	if exists == nil {
		exists = func(string) bool { return false }
	}
	lang := detectLanguage(path)
	code := stripNonCode(content, lang)
	return &SourceFile{
		Path:      path,
		Content:   content,
		Lines:     splitLines(content),
		lang:      lang,
		code:      code,
		codeLines: splitLines(code),
		exists:    exists,
	}
}

// LineCount returns the number of lines. A trailing newline does not
// start a new line.
func (f *SourceFile) LineCount() int { return len(f.Lines) }

// lineAt converts a byte offset into a 1-based line number.
func (f *SourceFile) lineAt(offset int) int {
	if offset > len(f.Content) {
		offset = len(f.Content)
	}
	return strings.Count(f.Content[:offset], "\n") + 1
}

// IsTestFile reports whether path names a test file: *.test.*, *.spec.*
// or Go's *_test.go.
func IsTestFile(path string) bool {
	base := filepath.Base(path)
	return strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasSuffix(base, "_test.go")
}

// isIndexFile reports whether the basename without extension is "index".
func isIndexFile(path string) bool {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) == "index"
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// stripNonCode blanks comments and string literal bodies, keeping the
// quote characters and every newline so offsets stay aligned.
func stripNonCode(src string, lang language) string {
	b := []byte(src)
	out := make([]byte, len(b))
	copy(out, b)
	blank := func(from, to int) {
		for i := from; i < to && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}

	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case lang == langPython && c == '#':
			end := indexFrom(b, i, '\n')
			blank(i, end)
			i = end
		case lang != langPython && c == '/' && i+1 < len(b) && b[i+1] == '/':
			end := indexFrom(b, i, '\n')
			blank(i, end)
			i = end
		case lang != langPython && c == '/' && i+1 < len(b) && b[i+1] == '*':
			end := strings.Index(string(b[i+2:]), "*/")
			if end < 0 {
				blank(i, len(b))
				i = len(b)
			} else {
				blank(i, i+2+end+2)
				i = i + 2 + end + 2
			}
		case lang == langPython && (hasPrefixAt(b, i, `"""`) || hasPrefixAt(b, i, `'''`)):
			delim := string(b[i : i+3])
			end := strings.Index(string(b[i+3:]), delim)
			if end < 0 {
				blank(i+3, len(b))
				i = len(b)
			} else {
				blank(i+3, i+3+end)
				i = i + 3 + end + 3
			}
		case c == '"' || c == '\'' || (c == '`' && lang != langPython):
			end := scanString(b, i, lang)
			blank(i+1, end-1)
			i = end
		default:
			i++
		}
	}
	return string(out)
}

// scanString returns the offset just past the literal starting at i.
// Unterminated single-line literals stop at the end of the line.
func scanString(b []byte, i int, lang language) int {
	quote := b[i]
	raw := quote == '`'
	j := i + 1
	for j < len(b) {
		switch {
		case b[j] == '\\' && !(raw && lang == langGo):
			j += 2
			continue
		case b[j] == quote:
			return j + 1
		case b[j] == '\n' && !raw:
			return j
		}
		j++
	}
	return len(b)
}

func indexFrom(b []byte, i int, c byte) int {
	for j := i; j < len(b); j++ {
		if b[j] == c {
			return j
		}
	}
	return len(b)
}

func hasPrefixAt(b []byte, i int, p string) bool {
	return i+len(p) <= len(b) && string(b[i:i+len(p)]) == p
}

// Function is a function or method located in a source file.
type Function struct {
	Name       string
	StartLine  int
	EndLine    int
	Complexity int
}

// Lines returns the function's length including signature and closing line.
func (fn Function) Lines() int { return fn.EndLine - fn.StartLine + 1 }

var (
	goFuncRe     = regexp.MustCompile(`(?m)^[ \t]*func\s*(?:\([^)]*\)\s*)?(\w+)\s*[\[(]`)
	jsFuncRe     = regexp.MustCompile(`\bfunction\b\s*\*?\s*(\w*)\s*\(`)
	jsArrowRe    = regexp.MustCompile(`\b(\w+)\s*[:=]\s*(?:async\s+)?(?:\([^()]*\)|\w+)\s*(?::\s*[\w<>\[\]|, ]+)?\s*=>\s*\{`)
	jsMethodRe   = regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|private|protected|static|async|override|readonly|get|set)\s+)*(\w+)\s*(?:<[^>]*>)?\s*\([^;{}]*\)\s*(?::\s*[^;{}=]+)?\{`)
	pyDefRe      = regexp.MustCompile(`(?m)^([ \t]*)(?:async[ \t]+)?def[ \t]+(\w+)[ \t]*\(`)
	notFuncNames = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "catch": true,
		"function": true, "return": true, "with": true, "else": true, "do": true,
	}
)

var (
	cLikeDecisionRe = regexp.MustCompile(`\b(?:if|for|while|case|catch)\b|&&|\|\||\?\?|\?[^.?:]`)
	goDecisionRe    = regexp.MustCompile(`\b(?:if|for|case)\b|&&|\|\|`)
	pyDecisionRe    = regexp.MustCompile(`\b(?:if|elif|for|while|except|and|or|case)\b`)
)

// Functions locates every function in the file with its span and
// cyclomatic complexity (1 + decision points in the body).
func (f *SourceFile) Functions() []Function {
	if f.lang == langPython {
		return f.pythonFunctions()
	}

	type start struct {
		name   string
		offset int // offset of the match start
		brace  int // offset of the opening brace
	}
	var starts []start
	seenBrace := make(map[int]bool)
	add := func(name string, matchStart, searchFrom int) {
		brace := strings.IndexByte(f.code[searchFrom:], '{')
		if brace < 0 {
			return
		}
		brace += searchFrom
		if seenBrace[brace] {
			return
		}
		seenBrace[brace] = true
		starts = append(starts, start{name: name, offset: matchStart, brace: brace})
	}

	if f.lang == langGo {
		for _, m := range goFuncRe.FindAllStringSubmatchIndex(f.code, -1) {
			sig := f.code[m[1]-1:]
			open := matchingParenEnd(sig)
			if open < 0 {
				continue
			}
			// Skip declarations without a body (e.g. assembly stubs).
			rest := sig[open:]
			nl := strings.IndexByte(rest, '\n')
			if nl >= 0 && !strings.Contains(rest[:nl], "{") {
				continue
			}
			add(f.code[m[2]:m[3]], m[0], m[1]-1+open)
		}
	} else {
		for _, m := range jsFuncRe.FindAllStringSubmatchIndex(f.code, -1) {
			name := f.code[m[2]:m[3]]
			if name == "" {
				name = "<anonymous>"
			}
			add(name, m[0], m[1])
		}
		for _, m := range jsArrowRe.FindAllStringSubmatchIndex(f.code, -1) {
			add(f.code[m[2]:m[3]], m[0], m[1]-1)
		}
		for _, m := range jsMethodRe.FindAllStringSubmatchIndex(f.code, -1) {
			name := f.code[m[2]:m[3]]
			if notFuncNames[name] {
				continue
			}
			add(name, m[0], m[1]-1)
		}
	}

	decision := cLikeDecisionRe
	if f.lang == langGo {
		decision = goDecisionRe
	}

	var fns []Function
	for _, s := range starts {
		end := matchBrace(f.code, s.brace)
		if end < 0 {
			continue
		}
		body := f.code[s.brace+1 : end]
		fns = append(fns, Function{
			Name:       s.name,
			StartLine:  f.lineAt(s.offset + leadingSpace(f.code[s.offset:])),
			EndLine:    f.lineAt(end),
			Complexity: 1 + len(decision.FindAllStringIndex(body, -1)),
		})
	}
	sortFunctions(fns)
	return fns
}

func (f *SourceFile) pythonFunctions() []Function {
	var fns []Function
	for _, m := range pyDefRe.FindAllStringSubmatchIndex(f.code, -1) {
		indent := indentWidth(f.code[m[2]:m[3]])
		startLine := f.lineAt(m[0] + (m[3] - m[2]))
		endLine := startLine
		for ln := startLine + 1; ln <= len(f.codeLines); ln++ {
			line := f.codeLines[ln-1]
			if strings.TrimSpace(line) == "" {
				continue
			}
			if indentWidth(line) <= indent {
				break
			}
			endLine = ln
		}
		body := strings.Join(f.codeLines[startLine:endLine], "\n")
		fns = append(fns, Function{
			Name:       f.code[m[4]:m[5]],
			StartLine:  startLine,
			EndLine:    endLine,
			Complexity: 1 + len(pyDecisionRe.FindAllStringIndex(body, -1)),
		})
	}
	return fns
}

func sortFunctions(fns []Function) {
	for i := 1; i < len(fns); i++ {
		for j := i; j > 0 && fns[j].StartLine < fns[j-1].StartLine; j-- {
			fns[j], fns[j-1] = fns[j-1], fns[j]
		}
	}
}

// matchBrace returns the offset of the brace closing the one at open,
// or -1 when the file ends first. code must already be stripped.
func matchBrace(code string, open int) int {
	depth := 0
	for i := open; i < len(code); i++ {
		switch code[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchingParenEnd returns the offset just past the parenthesis group
// closing the first '(' or '[' in s (the parameter list of a Go func,
// including type parameters and results).
func matchingParenEnd(s string) int {
	depth := 0
	started := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
			started = true
		case ')', ']':
			depth--
			if started && depth == 0 {
				return i + 1
			}
		case '{':
			if !started {
				return -1
			}
		}
	}
	return -1
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\n"))
}

func indentWidth(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

var (
	jsImportRe   = regexp.MustCompile(`(?m)^[ \t]*(?:import\b[^(]|export\b[^\n]*\bfrom\s*["'])`)
	jsRequireRe  = regexp.MustCompile(`\brequire\s*\(\s*["'\x60]`)
	pyImportRe   = regexp.MustCompile(`(?m)^[ \t]*(?:import|from)[ \t]+[\w.]+`)
	goImportOne  = regexp.MustCompile(`(?m)^import\s+(?:[\w.]+\s+)?"`)
	goImportOpen = regexp.MustCompile(`(?m)^import\s*\(`)
	goImportSpec = regexp.MustCompile(`^\s*(?:[\w.]+\s+)?"`)
)

// Dependencies counts import/require statements at file level.
func (f *SourceFile) Dependencies() int {
	switch f.lang {
	case langPython:
		return len(pyImportRe.FindAllStringIndex(f.code, -1))
	case langGo:
		n := len(goImportOne.FindAllStringIndex(f.code, -1))
		for _, m := range goImportOpen.FindAllStringIndex(f.code, -1) {
			startLine := f.lineAt(m[1])
			for ln := startLine + 1; ln <= len(f.codeLines); ln++ {
				line := f.codeLines[ln-1]
				if strings.HasPrefix(strings.TrimSpace(line), ")") {
					break
				}
				if goImportSpec.MatchString(line) {
					n++
				}
			}
		}
		return n
	default:
		return len(jsImportRe.FindAllStringIndex(f.code, -1)) +
			len(jsRequireRe.FindAllStringIndex(f.code, -1))
	}
}
