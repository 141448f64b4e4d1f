package code

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteProgram(t *testing.T) {
	e := NewYaegiExecutor()
	res, err := e.Execute(context.Background(), `package main

import "fmt"

func main() {
	sum := 0
	for i := 1; i <= 10; i++ {
		sum += i
	}
	fmt.Println(sum)
}
`)
	require.NoError(t, err)
	assert.Equal(t, "55\n", res.Stdout)
	assert.Empty(t, res.Value, "main func value must not be reported")
}

func TestExecuteStatements(t *testing.T) {
	e := NewYaegiExecutor()
	res, err := e.Execute(context.Background(), "import \"strings\"\nstrings.ToUpper(\"paris\")")
	require.NoError(t, err)
	assert.Equal(t, "PARIS", res.Value)
}

func TestExecuteStatementsWithImportAndPrint(t *testing.T) {
	e := NewYaegiExecutor()
	res, err := e.Execute(context.Background(), "import \"fmt\"\nfmt.Println(42)")
	require.NoError(t, err)
	assert.Equal(t, "42\n", res.Stdout)
	assert.Empty(t, res.Value)
}

func TestExecuteStatementsImplicitImport(t *testing.T) {
	e := NewYaegiExecutor()
	res, err := e.Execute(context.Background(), "s := strings.Repeat(\"ab\", 2)\nfmt.Println(s)")
	require.NoError(t, err)
	assert.Equal(t, "abab\n", res.Stdout)
	assert.Empty(t, res.Value)
}

func TestExecuteTrailingExpression(t *testing.T) {
	e := NewYaegiExecutor()
	res, err := e.Execute(context.Background(), "x := 6 * 7\nx")
	require.NoError(t, err)
	assert.Equal(t, "42", res.Value)
	assert.Empty(t, res.Stdout)
}

func TestPrepare(t *testing.T) {
	e := NewYaegiExecutor()

	tests := []struct {
		name      string
		src       string
		imports   []string
		body      string
		showValue bool
	}{
		{
			name:    "explicit import is hoisted",
			src:     "import \"fmt\"\nfmt.Println(1)",
			imports: []string{`import "fmt"`},
			body:    "\nfmt.Println(1)",
		},
		{
			name:    "referenced package is imported implicitly",
			src:     "fmt.Println(math.Sqrt(4))",
			imports: []string{`import "fmt"`, `import "math"`},
			body:    "fmt.Println(math.Sqrt(4))",
		},
		{
			name:      "local variables shadow package names",
			src:       "sort := 3\nsort",
			body:      "sort := 3\nsort",
			showValue: true,
		},
		{
			name:      "trailing call is reported",
			src:       "strings.ToUpper(\"a\")",
			imports:   []string{`import "strings"`},
			body:      "strings.ToUpper(\"a\")",
			showValue: true,
		},
		{
			name: "assignment yields no value",
			src:  "x := 1",
			body: "x := 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sn, err := e.prepare(tt.src)
			require.NoError(t, err)
			assert.False(t, sn.program)
			assert.Equal(t, tt.body, sn.body)
			assert.Equal(t, tt.showValue, sn.showValue)
			for _, imp := range tt.imports {
				assert.Contains(t, sn.imports, imp)
			}
			if len(tt.imports) == 0 {
				assert.Empty(t, strings.TrimSpace(sn.imports))
			}
		})
	}

	sn, err := e.prepare("package main\nfunc main() {}")
	require.NoError(t, err)
	assert.True(t, sn.program)
}

func TestForbiddenImport(t *testing.T) {
	e := NewYaegiExecutor()
	_, err := e.Execute(context.Background(), "package main\nimport \"os\"\nfunc main() { os.Exit(1) }")
	assert.ErrorIs(t, err, ErrForbiddenImport)

	_, err = e.Execute(context.Background(), "import (\n\t\"fmt\"\n\t\"net/http\"\n)\nfmt.Println(http.MethodGet)")
	require.ErrorIs(t, err, ErrForbiddenImport)
	assert.Contains(t, err.Error(), "net/http")
}

func TestSyntaxError(t *testing.T) {
	_, err := NewYaegiExecutor().Execute(context.Background(), "func (")
	assert.Error(t, err)
}

func TestTimeout(t *testing.T) {
	e := NewYaegiExecutor(func(o *YaegiOptions) { o.Timeout = 100 * time.Millisecond })
	_, err := e.Execute(context.Background(), "package main\nfunc main() { for {} }")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestTruncate(t *testing.T) {
	e := NewYaegiExecutor(func(o *YaegiOptions) { o.MaxOutput = 4 })
	assert.Equal(t, "abcd\n... output truncated", e.truncate("abcdef"))
	assert.Equal(t, "ab", e.truncate("ab"))
}
