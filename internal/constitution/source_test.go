package constitution

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripNonCode_PreservesLayout(t *testing.T) {
	src := "const a = \"hidden // not a comment\"; // hidden\n/* hidden\n still hidden */ let b = 'x';\n"
	code := stripNonCode(src, langCLike)

	require.Len(t, code, len(src))
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(code, "\n"))
	assert.NotContains(t, code, "hidden")
	assert.Contains(t, code, "const a =")
	assert.Contains(t, code, "let b =")
}

func TestStripNonCode_PythonComments(t *testing.T) {
	src := "x = 1  # if and or\ns = \"\"\"if\nwhile\"\"\"\n"
	code := stripNonCode(src, langPython)

	assert.NotContains(t, code, "if")
	assert.NotContains(t, code, "while")
	assert.Contains(t, code, "x = 1")
}

func TestFunctions_Go(t *testing.T) {
	src := `package x

// Add adds.
func Add(a, b int) int {
	if a > 0 && b > 0 {
		return a + b
	}
	return 0
}

func (s *S) Method() (int, error) {
	return 0, nil
}
`
	fns := NewSourceFile("x.go", src, nil).Functions()

	require.Len(t, fns, 2)
	assert.Equal(t, Function{Name: "Add", StartLine: 4, EndLine: 9, Complexity: 3}, fns[0])
	assert.Equal(t, Function{Name: "Method", StartLine: 11, EndLine: 13, Complexity: 1}, fns[1])
}

func TestFunctions_JavaScript(t *testing.T) {
	src := `function a(x) {
  return x ? 1 : 2;
}
const b = (y) => {
  if (y) { return 1; }
  return y?.z ?? 0;
};
class K {
  run(v) {
    for (const i of v) {}
  }
}
`
	fns := NewSourceFile("k.js", src, nil).Functions()

	require.Len(t, fns, 3)
	assert.Equal(t, Function{Name: "a", StartLine: 1, EndLine: 3, Complexity: 2}, fns[0])
	assert.Equal(t, Function{Name: "b", StartLine: 4, EndLine: 7, Complexity: 3}, fns[1])
	assert.Equal(t, Function{Name: "run", StartLine: 9, EndLine: 11, Complexity: 2}, fns[2])
}

func TestFunctions_Python(t *testing.T) {
	src := `def f(x):
    if x and x > 1:
        return 1
    return 0


class A:
    def m(self):
        return 1
`
	fns := NewSourceFile("a.py", src, nil).Functions()

	require.Len(t, fns, 2)
	assert.Equal(t, Function{Name: "f", StartLine: 1, EndLine: 4, Complexity: 3}, fns[0])
	assert.Equal(t, Function{Name: "m", StartLine: 8, EndLine: 9, Complexity: 1}, fns[1])
}

func TestDependencies(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want int
	}{
		{
			name: "go import block",
			path: "x.go",
			src:  "package x\n\nimport (\n\t\"fmt\"\n\tstr \"strings\"\n\n\t_ \"embed\"\n)\n",
			want: 3,
		},
		{
			name: "js imports, require and re-export",
			path: "x.ts",
			src:  "import a from 'a';\nimport {\n  b,\n} from 'b';\nconst c = require('c');\nexport { d } from './d';\n",
			want: 4,
		},
		{
			name: "python",
			path: "x.py",
			src:  "import os\nfrom x import y\nimport a, b\n",
			want: 3,
		},
		{
			name: "commented import ignored",
			path: "x.js",
			src:  "// import nope from 'nope';\nimport yes from 'yes';\n",
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSourceFile(tt.path, tt.src, nil).Dependencies())
		})
	}
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("src/cart.test.ts"))
	assert.True(t, IsTestFile("src/cart.spec.js"))
	assert.True(t, IsTestFile("pkg/cart_test.go"))
	assert.False(t, IsTestFile("src/cart.ts"))
	assert.False(t, IsTestFile("src/testing.go"))
}

func TestLineCount_TrailingNewline(t *testing.T) {
	assert.Equal(t, 2, NewSourceFile("a.js", "a\nb\n", nil).LineCount())
	assert.Equal(t, 2, NewSourceFile("a.js", "a\nb", nil).LineCount())
	assert.Equal(t, 0, NewSourceFile("a.js", "", nil).LineCount())
}
