package constitution

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Rule evaluates one article against a prepared source file.
type Rule interface {
	Article() ArticleID
	Name() string
	Check(f *SourceFile) []Violation
}

// RuleSet is an immutable ordered list of rules.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet builds a rule set from rules in evaluation order.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{rules: make([]Rule, len(rules))}
	copy(rs.rules, rules)
	return rs
}

// DefaultRuleSet holds one rule per article, I through IX.
func DefaultRuleSet() *RuleSet {
	return NewRuleSet(
		traceabilityRule{},
		presenceRule{id: ArticleII, name: "library-first"},
		testFirstRule{},
		presenceRule{id: ArticleIV, name: "cli-interface"},
		presenceRule{id: ArticleV, name: "observability"},
		presenceRule{id: ArticleVI, name: "versioning"},
		simplicityRule{limits: SimplicityThresholds},
		antiAbstractionRule{},
		documentationRule{},
	)
}

// Rules returns the rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Evaluate runs every rule against f. A rule that panics yields a single
// error-severity violation naming the rule; the other rules still run.
func (rs *RuleSet) Evaluate(f *SourceFile) []Violation {
	var out []Violation
	for _, r := range rs.rules {
		vs, err := runRule(r, f)
		if err != nil {
			out = append(out, Violation{
				Article:     r.Article(),
				ArticleName: articleName(r.Article()),
				File:        f.Path,
				Message:     err.Error(),
				Severity:    SeverityError,
				Metadata:    map[string]string{"rule": r.Name()},
			})
			continue
		}
		for _, v := range vs {
			if v.ArticleName == "" {
				v.ArticleName = articleName(v.Article)
			}
			if v.File == "" {
				v.File = f.Path
			}
			out = append(out, v)
		}
	}
	return out
}

func runRule(r Rule, f *SourceFile) (vs []Violation, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rule %s could not be evaluated: %v", r.Name(), p)
		}
	}()
	return r.Check(f), nil
}

func violation(id ArticleID, f *SourceFile, line int, sev Severity, msg, suggestion string) Violation {
	return Violation{
		Article:     id,
		ArticleName: articleName(id),
		File:        f.Path,
		Line:        line,
		Message:     msg,
		Severity:    sev,
		Suggestion:  suggestion,
	}
}

// --- Article I ---

var traceabilityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bREQ-[A-Z0-9][A-Z0-9-]*`),
	regexp.MustCompile(`(?i)\brequirements?:`),
	regexp.MustCompile(`@req(?:uirement)?\b`),
	regexp.MustCompile(`\bImplements:\s*\S+`),
}

type traceabilityRule struct{}

func (traceabilityRule) Article() ArticleID { return ArticleI }
func (traceabilityRule) Name() string       { return "traceability" }

func (traceabilityRule) Check(f *SourceFile) []Violation {
	if IsTestFile(f.Path) || isIndexFile(f.Path) {
		return nil
	}
	for _, re := range traceabilityPatterns {
		if re.MatchString(f.Content) {
			return nil
		}
	}
	return []Violation{violation(ArticleI, f, 1, SeverityMedium,
		"no requirement reference found",
		"reference the requirement this file implements, e.g. \"Implements: REQ-001\"")}
}

// --- Articles II, IV, V, VI ---

// presenceRule covers articles satisfied by the file being present at all.
type presenceRule struct {
	id   ArticleID
	name string
}

func (r presenceRule) Article() ArticleID          { return r.id }
func (r presenceRule) Name() string                { return r.name }
func (presenceRule) Check(*SourceFile) []Violation { return nil }

// --- Article III ---

type testFirstRule struct{}

func (testFirstRule) Article() ArticleID { return ArticleIII }
func (testFirstRule) Name() string       { return "test-first" }

func (testFirstRule) Check(f *SourceFile) []Violation {
	if IsTestFile(f.Path) || isIndexFile(f.Path) {
		return nil
	}
	candidates := SiblingTestPaths(f.Path)
	for _, c := range candidates {
		if f.exists(c) {
			return nil
		}
	}
	return []Violation{violation(ArticleIII, f, 0, SeverityMedium,
		"no sibling test file found",
		"add "+filepath.Base(candidates[0]))}
}

// SiblingTestPaths lists the test files that satisfy Article III for path,
// in the same directory: <stem>.test.<ext>, <stem>.spec.<ext>, and for Go
// <stem>_test.go, for Python test_<stem>.py and <stem>_test.py.
func SiblingTestPaths(path string) []string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	switch detectLanguage(path) {
	case langGo:
		return []string{filepath.Join(dir, stem+"_test.go")}
	case langPython:
		return []string{
			filepath.Join(dir, "test_"+stem+ext),
			filepath.Join(dir, stem+"_test"+ext),
		}
	default:
		return []string{
			filepath.Join(dir, stem+".test"+ext),
			filepath.Join(dir, stem+".spec"+ext),
		}
	}
}

// --- Article VII ---

type simplicityRule struct {
	limits Thresholds
}

func (simplicityRule) Article() ArticleID { return ArticleVII }
func (simplicityRule) Name() string       { return "simplicity" }

func (r simplicityRule) Check(f *SourceFile) []Violation {
	var out []Violation
	if n := f.LineCount(); n > r.limits.FileLines {
		v := violation(ArticleVII, f, 0, SeverityHigh,
			fmt.Sprintf("file has %d lines (limit %d)", n, r.limits.FileLines),
			"split the file into smaller focused modules")
		v.Metadata = map[string]string{"check": "file-length", "value": fmt.Sprint(n)}
		out = append(out, v)
	}
	for _, fn := range f.Functions() {
		if n := fn.Lines(); n > r.limits.FunctionLines {
			v := violation(ArticleVII, f, fn.StartLine, SeverityMedium,
				fmt.Sprintf("function %s has %d lines (limit %d)", fn.Name, n, r.limits.FunctionLines),
				"extract helpers from the function body")
			v.Metadata = map[string]string{"check": "function-length", "function": fn.Name, "value": fmt.Sprint(n)}
			out = append(out, v)
		}
		if fn.Complexity > r.limits.Complexity {
			v := violation(ArticleVII, f, fn.StartLine, SeverityMedium,
				fmt.Sprintf("function %s has cyclomatic complexity %d (limit %d)", fn.Name, fn.Complexity, r.limits.Complexity),
				"reduce branching or split the function")
			v.Metadata = map[string]string{"check": "complexity", "function": fn.Name, "value": fmt.Sprint(fn.Complexity)}
			out = append(out, v)
		}
	}
	if n := f.Dependencies(); n > r.limits.Dependencies {
		v := violation(ArticleVII, f, 0, SeverityMedium,
			fmt.Sprintf("file has %d imports (limit %d)", n, r.limits.Dependencies),
			"reduce the file's dependencies")
		v.Metadata = map[string]string{"check": "dependencies", "value": fmt.Sprint(n)}
		out = append(out, v)
	}
	return out
}

// --- Article VIII ---

var (
	extendsBaseRe      = regexp.MustCompile(`\bclass\s+\w+(?:\s*<[^>{]*>)?\s+extends\s+(Base[A-Z]\w*)`)
	pyExtendsBaseRe    = regexp.MustCompile(`(?m)^[ \t]*class[ \t]+\w+[ \t]*\([^)]*\b(Base[A-Z]\w*)`)
	abstractClassRe    = regexp.MustCompile(`\babstract\s+class\s+(\w+)`)
	pyAbstractClassRe  = regexp.MustCompile(`(?m)^[ \t]*class[ \t]+(\w+)[ \t]*\([^)]*\b(?:ABC|metaclass\s*=\s*ABCMeta)\b`)
	implementsFactory  = regexp.MustCompile(`\bimplements\s+[^{]*?\b(\w*Factory)\b`)
	factoryClassRe     = regexp.MustCompile(`\bclass\s+(\w*(?:Factory|Manager))\b`)
	pyFactoryClassRe   = regexp.MustCompile(`(?m)^([ \t]*)class[ \t]+(\w*(?:Factory|Manager))\b[^\n]*:`)
	goEmptyFactoryRe   = regexp.MustCompile(`\btype\s+(\w*(?:Factory|Manager))\s+struct\s*\{\s*\}`)
	classFieldRe       = regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|private|protected|readonly|static|declare)\s+)*#?\w+\s*[?!]?\s*[:=][^=>]`)
	thisAssignRe       = regexp.MustCompile(`\bthis\.#?\w+\s*=[^=]`)
	ctorParamPropRe    = regexp.MustCompile(`\bconstructor\s*\([^)]*\b(?:private|public|protected|readonly)\s`)
	pySelfAssignRe     = regexp.MustCompile(`\bself\.\w+\s*(?::[^=\n]+)?=[^=]`)
	pyClassAttributeRe = regexp.MustCompile(`^\s*\w+\s*(?::[^=\n]+)?=[^=]`)
)

type antiAbstractionRule struct{}

func (antiAbstractionRule) Article() ArticleID { return ArticleVIII }
func (antiAbstractionRule) Name() string       { return "anti-abstraction" }

func (antiAbstractionRule) Check(f *SourceFile) []Violation {
	var out []Violation
	add := func(offset int, msg, suggestion string) {
		out = append(out, violation(ArticleVIII, f, f.lineAt(offset), SeverityHigh, msg, suggestion))
	}

	switch f.lang {
	case langGo:
		for _, m := range goEmptyFactoryRe.FindAllStringSubmatchIndex(f.code, -1) {
			add(m[0], fmt.Sprintf("stateless %s type adds indirection", f.code[m[2]:m[3]]),
				"replace it with plain functions")
		}
	case langPython:
		for _, m := range pyExtendsBaseRe.FindAllStringSubmatchIndex(f.code, -1) {
			add(m[0], fmt.Sprintf("class extends speculative base %s", f.code[m[2]:m[3]]),
				"use composition or the framework directly")
		}
		for _, m := range pyAbstractClassRe.FindAllStringSubmatchIndex(f.code, -1) {
			add(m[0], fmt.Sprintf("abstract class %s", f.code[m[2]:m[3]]),
				"introduce abstractions only when a second implementation exists")
		}
		for _, m := range pyFactoryClassRe.FindAllStringSubmatchIndex(f.code, -1) {
			if !pythonClassHasState(f, m) {
				add(m[0], fmt.Sprintf("stateless %s class adds indirection", f.code[m[4]:m[5]]),
					"replace it with module-level functions")
			}
		}
	default:
		for _, m := range extendsBaseRe.FindAllStringSubmatchIndex(f.code, -1) {
			add(m[0], fmt.Sprintf("class extends speculative base %s", f.code[m[2]:m[3]]),
				"use composition or the framework directly")
		}
		for _, m := range abstractClassRe.FindAllStringSubmatchIndex(f.code, -1) {
			add(m[0], fmt.Sprintf("abstract class %s", f.code[m[2]:m[3]]),
				"introduce abstractions only when a second implementation exists")
		}
		for _, m := range factoryClassRe.FindAllStringSubmatchIndex(f.code, -1) {
			if !classHasState(f.code, m[1]) {
				add(m[0], fmt.Sprintf("stateless %s class adds indirection", f.code[m[2]:m[3]]),
					"replace it with plain functions")
			}
		}
		for _, m := range implementsFactory.FindAllStringSubmatchIndex(f.code, -1) {
			add(m[0], fmt.Sprintf("class implements factory interface %s", f.code[m[2]:m[3]]),
				"construct values directly")
		}
	}
	return out
}

// classHasState reports whether the class whose header ends at from
// declares fields or assigns to this.
func classHasState(code string, from int) bool {
	open := strings.IndexByte(code[from:], '{')
	if open < 0 {
		return true
	}
	open += from
	end := matchBrace(code, open)
	if end < 0 {
		return true
	}
	body := code[open+1 : end]
	return classFieldRe.MatchString(topLevel(body)) ||
		thisAssignRe.MatchString(body) ||
		ctorParamPropRe.MatchString(body)
}

// topLevel drops everything nested inside braces.
func topLevel(body string) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '{':
			depth++
		case c == '}':
			depth--
		case depth == 0 || c == '\n':
			b.WriteByte(c)
		}
	}
	return b.String()
}

func pythonClassHasState(f *SourceFile, m []int) bool {
	indent := indentWidth(f.code[m[2]:m[3]])
	header := f.lineAt(m[0] + (m[3] - m[2]))
	bodyIndent := -1
	for ln := header + 1; ln <= len(f.codeLines); ln++ {
		line := f.codeLines[ln-1]
		if strings.TrimSpace(line) == "" {
			continue
		}
		w := indentWidth(line)
		if w <= indent {
			break
		}
		if bodyIndent < 0 {
			bodyIndent = w
		}
		if pySelfAssignRe.MatchString(line) {
			return true
		}
		if w == bodyIndent && pyClassAttributeRe.MatchString(line) {
			return true
		}
	}
	return false
}

// --- Article IX ---

var (
	pyDocstringRe = regexp.MustCompile(`(?m)^[ \t]*[rRuUbB]?("""|''')`)
	declarationRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?(?:package|func|type|function|class|interface|const|let|var|def|enum)\b`)
)

type documentationRule struct{}

func (documentationRule) Article() ArticleID { return ArticleIX }
func (documentationRule) Name() string       { return "documentation" }

func (documentationRule) Check(f *SourceFile) []Violation {
	if IsTestFile(f.Path) || hasDocumentation(f) {
		return nil
	}
	return []Violation{violation(ArticleIX, f, 1, SeverityLow,
		"no documentation block found",
		"document the file's purpose in a doc comment")}
}

func hasDocumentation(f *SourceFile) bool {
	if f.lang == langPython {
		if pyDocstringRe.MatchString(f.Content) {
			return true
		}
	} else if strings.Contains(f.Content, "/**") {
		return true
	}
	for i := 0; i+1 < len(f.Lines); i++ {
		if isLineComment(f.Lines[i], f.lang) && declarationRe.MatchString(f.Lines[i+1]) {
			return true
		}
	}
	return false
}

func isLineComment(line string, lang language) bool {
	t := strings.TrimSpace(line)
	if lang == langPython {
		return strings.HasPrefix(t, "#") && !strings.HasPrefix(t, "#!")
	}
	return strings.HasPrefix(t, "//")
}
