package code

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// DefaultAllowedPackages are the standard library packages snippets may
// import. Filesystem, process, network and unsafe packages are excluded.
var DefaultAllowedPackages = []string{
	"bytes",
	"encoding/base64",
	"encoding/hex",
	"encoding/json",
	"errors",
	"fmt",
	"math",
	"math/big",
	"math/rand",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
	"unicode/utf8",
}

// ErrForbiddenImport is returned when a snippet imports a package outside the allowlist.
var ErrForbiddenImport = errors.New("forbidden import")

// YaegiOptions configure the interpreter sandbox.
type YaegiOptions struct {
	AllowedPackages []string
	Timeout         time.Duration
	// MaxOutput truncates captured stdout (bytes); 0 means unlimited.
	MaxOutput int
}

// YaegiExecutor executes Go code using the yaegi interpreter. Every call gets
// a fresh interpreter so snippets cannot observe each other.
type YaegiExecutor struct {
	opts    YaegiOptions
	allowed map[string]bool
	// byName maps a package name to its import path for implicit imports.
	byName  map[string]string
	symbols map[string]map[string]reflect.Value
}

var _ Executor = (*YaegiExecutor)(nil)

// NewYaegiExecutor creates a sandboxed executor.
func NewYaegiExecutor(optFns ...func(o *YaegiOptions)) *YaegiExecutor {
	opts := YaegiOptions{
		AllowedPackages: DefaultAllowedPackages,
		Timeout:         10 * time.Second,
		MaxOutput:       16 * 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	allowed := make(map[string]bool, len(opts.AllowedPackages))
	byName := make(map[string]string, len(opts.AllowedPackages))
	for _, p := range opts.AllowedPackages {
		allowed[p] = true
		byName[path.Base(p)] = p
	}

	// stdlib.Symbols keys have the form "import/path/pkgname"
	symbols := make(map[string]map[string]reflect.Value)
	for key, syms := range stdlib.Symbols {
		if allowed[path.Dir(key)] {
			symbols[key] = syms
		}
	}

	return &YaegiExecutor{opts: opts, allowed: allowed, byName: byName, symbols: symbols}
}

// snippet is source split for evaluation. Statement snippets evaluate their
// import declarations first, then the statements.
type snippet struct {
	program   bool
	imports   string
	body      string
	showValue bool
}

// Execute validates imports, then evaluates src. Complete programs
// (package main with func main) are run; anything else is evaluated as a
// sequence of statements, with allowed packages it references but does not
// import imported implicitly.
func (e *YaegiExecutor) Execute(ctx context.Context, src string) (Result, error) {
	sn, err := e.prepare(src)
	if err != nil {
		return Result{}, err
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	i := interp.New(interp.Options{Stdout: &stdout, Stderr: &stderr})
	if err := i.Use(e.symbols); err != nil {
		return Result{}, fmt.Errorf("failed to load stdlib: %w", err)
	}

	result := func() Result {
		return Result{Stdout: e.truncate(stdout.String()), Stderr: e.truncate(stderr.String())}
	}

	if strings.TrimSpace(sn.imports) != "" {
		if _, err := i.EvalWithContext(ctx, sn.imports); err != nil {
			return result(), e.evalError(ctx, err)
		}
	}

	if strings.TrimSpace(sn.body) == "" {
		return result(), nil
	}

	v, err := i.EvalWithContext(ctx, sn.body)

	res := result()
	if err != nil {
		return res, e.evalError(ctx, err)
	}

	if sn.showValue && v.IsValid() && v.Kind() != reflect.Func && v.CanInterface() {
		if val := v.Interface(); val != nil {
			res.Value = fmt.Sprintf("%v", val)
		}
	}

	return res, nil
}

func (e *YaegiExecutor) evalError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("execution timed out: %w", ctxErr)
	}
	return fmt.Errorf("evaluation failed: %w", err)
}

// prepare checks the imports of src against the allowlist and splits
// statement snippets into their import block and body.
func (e *YaegiExecutor) prepare(src string) (snippet, error) {
	const header = "package main\n"

	if strings.HasPrefix(strings.TrimSpace(src), "package ") {
		f, err := parser.ParseFile(token.NewFileSet(), "snippet.go", src, parser.ImportsOnly)
		if err == nil {
			if err := e.checkImports(f.Imports); err != nil {
				return snippet{}, err
			}
		}
		return snippet{program: true, body: src}, nil
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "snippet.go", header+src, parser.ImportsOnly)
	if err != nil {
		// syntax errors are reported by the interpreter
		return snippet{body: src, showValue: true}, nil
	}

	if err := e.checkImports(f.Imports); err != nil {
		return snippet{}, err
	}

	end := 0
	for _, d := range f.Decls {
		if gd, ok := d.(*ast.GenDecl); ok && gd.Tok == token.IMPORT {
			end = fset.Position(gd.End()).Offset - len(header)
		}
	}

	sn := snippet{imports: src[:end], body: src[end:], showValue: true}

	imported := make(map[string]bool, len(f.Imports))
	for _, imp := range f.Imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		name := path.Base(p)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		imported[name] = true
	}

	wrapped, err := parser.ParseFile(token.NewFileSet(), "snippet.go", header+"func _() {\n"+sn.body+"\n}", 0)
	if err != nil {
		return sn, nil
	}

	var implicit []string
	for _, id := range wrapped.Unresolved {
		if p, ok := e.byName[id.Name]; ok && !imported[id.Name] {
			imported[id.Name] = true
			implicit = append(implicit, fmt.Sprintf("import %q", p))
		}
	}
	if len(implicit) > 0 {
		sn.imports += "\n" + strings.Join(implicit, "\n")
	}

	if fn, ok := wrapped.Decls[len(wrapped.Decls)-1].(*ast.FuncDecl); ok {
		sn.showValue = yieldsValue(fn.Body.List)
	}

	return sn, nil
}

// yieldsValue reports whether the last statement is an expression worth
// reporting. Print calls are excluded; their output is already captured.
func yieldsValue(stmts []ast.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}

	es, ok := stmts[len(stmts)-1].(*ast.ExprStmt)
	if !ok {
		return false
	}

	call, ok := es.X.(*ast.CallExpr)
	if !ok {
		return true
	}

	switch fun := call.Fun.(type) {
	case *ast.Ident:
		return fun.Name != "print" && fun.Name != "println"
	case *ast.SelectorExpr:
		pkg, ok := fun.X.(*ast.Ident)
		return !ok || pkg.Name != "fmt" || !strings.HasPrefix(fun.Sel.Name, "Print")
	}

	return true
}

// checkImports rejects packages outside the allowlist.
func (e *YaegiExecutor) checkImports(imports []*ast.ImportSpec) error {
	var forbidden []string
	for _, imp := range imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if !e.allowed[p] {
			forbidden = append(forbidden, p)
		}
	}

	if len(forbidden) > 0 {
		return fmt.Errorf("%w: %s (allowed: %s)", ErrForbiddenImport, strings.Join(forbidden, ", "), strings.Join(e.allowedList(), ", "))
	}

	return nil
}

func (e *YaegiExecutor) allowedList() []string {
	out := make([]string, 0, len(e.allowed))
	for p := range e.allowed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (e *YaegiExecutor) truncate(s string) string {
	if e.opts.MaxOutput > 0 && len(s) > e.opts.MaxOutput {
		return s[:e.opts.MaxOutput] + "\n... output truncated"
	}
	return s
}
