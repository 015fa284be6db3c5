package constitution

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compliantHeader satisfies Articles I and IX.
const compliantHeader = "/**\n * Cart totals.\n * Implements: REQ-001\n */\n"

func newTestChecker(existing ...string) *Checker {
	c := NewChecker()
	set := make(map[string]bool, len(existing))
	for _, p := range existing {
		set[p] = true
	}
	c.exists = func(p string) bool { return set[p] }
	return c
}

func byArticle(vs []Violation, id ArticleID) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.Article == id {
			out = append(out, v)
		}
	}
	return out
}

func TestArticleI_Traceability(t *testing.T) {
	c := newTestChecker()

	vs := byArticle(c.CheckSource("src/cart.ts", "export const x = 1;\n"), ArticleI)
	require.Len(t, vs, 1)
	assert.Equal(t, SeverityMedium, vs[0].Severity)
	assert.Equal(t, "Specification First", vs[0].ArticleName)

	for _, src := range []string{
		"// Implements: REQ-12\n",
		"// see REQ-AUTH-3\n",
		"/** @requirement login */\n",
		"# Requirement: checkout\n",
	} {
		assert.Empty(t, byArticle(c.CheckSource("src/cart.ts", src), ArticleI), src)
	}

	assert.Empty(t, byArticle(c.CheckSource("src/cart.test.ts", "x\n"), ArticleI))
	assert.Empty(t, byArticle(c.CheckSource("src/index.ts", "x\n"), ArticleI))
}

func TestArticleIII_SiblingTest(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		existing []string
		want     int
	}{
		{"test sibling", "src/cart.ts", []string{"src/cart.test.ts"}, 0},
		{"spec sibling", "src/cart.ts", []string{"src/cart.spec.ts"}, 0},
		{"go sibling", "pkg/cart.go", []string{"pkg/cart_test.go"}, 0},
		{"python sibling", "app/cart.py", []string{"app/test_cart.py"}, 0},
		{"test in other directory", "src/cart.ts", []string{"test/cart.test.ts"}, 1},
		{"missing", "src/cart.ts", nil, 1},
		{"test file itself", "src/cart.test.ts", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestChecker(tt.existing...)
			vs := byArticle(c.CheckSource(tt.path, compliantHeader), ArticleIII)
			require.Len(t, vs, tt.want)
			if tt.want > 0 {
				assert.Equal(t, SeverityMedium, vs[0].Severity)
			}
		})
	}
}

func TestArticleVII_FileLengthBoundary(t *testing.T) {
	c := newTestChecker()
	body := func(lines int) string {
		var b strings.Builder
		b.WriteString(compliantHeader)
		for i := 4; i < lines; i++ {
			fmt.Fprintf(&b, "export const v%d = %d;\n", i, i)
		}
		return b.String()
	}

	assert.Empty(t, byArticle(c.CheckSource("src/a.ts", body(500)), ArticleVII))

	vs := byArticle(c.CheckSource("src/a.ts", body(501)), ArticleVII)
	require.Len(t, vs, 1)
	assert.Equal(t, SeverityHigh, vs[0].Severity)
	assert.Equal(t, "file-length", vs[0].Metadata["check"])
}

func TestArticleVII_FunctionLength(t *testing.T) {
	var b strings.Builder
	b.WriteString(compliantHeader)
	b.WriteString("function long() {\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "  const v%d = %d;\n", i, i)
	}
	b.WriteString("}\n")

	vs := byArticle(newTestChecker().CheckSource("src/a.js", b.String()), ArticleVII)
	require.Len(t, vs, 1)
	assert.Equal(t, SeverityMedium, vs[0].Severity)
	assert.Equal(t, 5, vs[0].Line)
	assert.Equal(t, "function-length", vs[0].Metadata["check"])
	assert.Equal(t, "52", vs[0].Metadata["value"])
}

func TestArticleVII_Complexity(t *testing.T) {
	var b strings.Builder
	b.WriteString(compliantHeader)
	b.WriteString("function branchy(x) {\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "  if (x === %d) { return %d; }\n", i, i)
	}
	b.WriteString("  return -1;\n}\n")

	vs := byArticle(newTestChecker().CheckSource("src/a.js", b.String()), ArticleVII)
	require.Len(t, vs, 1)
	assert.Equal(t, "complexity", vs[0].Metadata["check"])
	assert.Equal(t, "11", vs[0].Metadata["value"])
}

func TestArticleVII_Dependencies(t *testing.T) {
	var b strings.Builder
	b.WriteString(compliantHeader)
	for i := 0; i < 11; i++ {
		fmt.Fprintf(&b, "import m%d from 'm%d';\n", i, i)
	}

	vs := byArticle(newTestChecker().CheckSource("src/a.ts", b.String()), ArticleVII)
	require.Len(t, vs, 1)
	assert.Equal(t, "dependencies", vs[0].Metadata["check"])
	assert.Equal(t, SeverityMedium, vs[0].Severity)
}

func TestArticleVIII_AntiAbstraction(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want int
	}{
		{"extends base", "src/svc.ts", "class Svc extends BaseSvc {}\n", 1},
		{"abstract class", "src/shape.ts", "export abstract class Shape {\n  abstract area(): number;\n}\n", 1},
		{"stateless factory", "src/widget.ts", "class WidgetFactory {\n  create() {\n    return new Widget();\n  }\n}\n", 1},
		{"stateful manager", "src/session.ts", "class SessionManager {\n  private sessions = new Map();\n  get(id) { return this.sessions.get(id); }\n}\n", 0},
		{"manager assigning this", "src/pool.js", "class PoolManager {\n  constructor(size) {\n    this.size = size;\n  }\n}\n", 0},
		{"implements factory", "src/conn.ts", "class Pg implements ConnectionFactory {\n  private url = '';\n}\n", 1},
		{"go empty factory", "pkg/client.go", "package pkg\n\ntype ClientFactory struct{}\n", 1},
		{"go factory with state", "pkg/client.go", "package pkg\n\ntype ClientFactory struct {\n\tbase string\n}\n", 0},
		{"python base class", "app/svc.py", "class Svc(BaseService):\n    pass\n", 1},
		{"plain class", "src/cart.ts", "export class Cart {\n  items = [];\n}\n", 0},
		{"mentioned in comment", "src/cart.ts", "// class Svc extends BaseSvc {}\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := byArticle(newTestChecker().CheckSource(tt.path, tt.src), ArticleVIII)
			require.Len(t, vs, tt.want)
			for _, v := range vs {
				assert.Equal(t, SeverityHigh, v.Severity)
			}
		})
	}
}

func TestArticleIX_Documentation(t *testing.T) {
	c := newTestChecker()

	vs := byArticle(c.CheckSource("src/a.ts", "export const x = 1;\n"), ArticleIX)
	require.Len(t, vs, 1)
	assert.Equal(t, SeverityLow, vs[0].Severity)

	assert.Empty(t, byArticle(c.CheckSource("src/a.ts", "/** Cart. */\nexport const x = 1;\n"), ArticleIX))
	assert.Empty(t, byArticle(c.CheckSource("pkg/a.go", "// Package a does things.\npackage a\n"), ArticleIX))
	assert.Empty(t, byArticle(c.CheckSource("app/a.py", "\"\"\"Cart helpers.\"\"\"\nimport os\n"), ArticleIX))
	assert.Empty(t, byArticle(c.CheckSource("src/a.test.ts", "it('x', () => {});\n"), ArticleIX))
}

func TestInformationalArticlesNeverFire(t *testing.T) {
	vs := newTestChecker().CheckSource("src/a.ts", "x\n")
	for _, id := range []ArticleID{ArticleII, ArticleIV, ArticleV, ArticleVI} {
		assert.Empty(t, byArticle(vs, id), "article %s", id)
	}
}

type panicRule struct{}

func (panicRule) Article() ArticleID            { return ArticleVII }
func (panicRule) Name() string                  { return "exploding" }
func (panicRule) Check(*SourceFile) []Violation { panic("boom") }

func TestRuleSet_PanickingRuleBecomesErrorViolation(t *testing.T) {
	rs := NewRuleSet(panicRule{}, documentationRule{})
	vs := rs.Evaluate(NewSourceFile("src/a.ts", "export const x = 1;\n", nil))

	require.Len(t, vs, 2)
	assert.Equal(t, SeverityError, vs[0].Severity)
	assert.Equal(t, "exploding", vs[0].Metadata["rule"])
	assert.Contains(t, vs[0].Message, "boom")
	assert.Equal(t, ArticleIX, vs[1].Article)
}

func TestLookupArticle(t *testing.T) {
	a, err := LookupArticle("Article vii")
	require.NoError(t, err)
	assert.Equal(t, "Simplicity", a.Name)

	_, err = LookupArticle("X")
	assert.Error(t, err)

	assert.Len(t, Articles(), 9)
	assert.Equal(t, []ArticleID{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX"}, ArticleIDs())
}
