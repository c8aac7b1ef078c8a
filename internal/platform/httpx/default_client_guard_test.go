// SPDX-License-Identifier: MIT

package httpx

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Outbound calls to Supabase and the proxy must carry timeouts and tracing,
// so production code builds its clients here.
func TestOutboundClientsComeFromHTTPX(t *testing.T) {
	root := filepath.Join("..", "..", "..")
	self, err := filepath.Abs(".")
	require.NoError(t, err)

	var findings []string
	fset := token.NewFileSet()
	for _, dir := range []string{"internal", "cmd"} {
		err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			abs, err := filepath.Abs(filepath.Dir(path))
			if err != nil {
				return err
			}
			file, err := parser.ParseFile(fset, path, nil, 0)
			if err != nil {
				return err
			}
			findings = append(findings, outboundViolations(fset, file, abs == self)...)
			return nil
		})
		require.NoError(t, err)
	}

	slices.Sort(findings)
	require.Empty(t, findings, "build outbound clients with httpx.NewClient")
}

func outboundViolations(fset *token.FileSet, file *ast.File, inHTTPX bool) []string {
	var out []string
	ast.Inspect(file, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.SelectorExpr:
			if isHTTPSelector(n, "DefaultClient", "Get", "Post", "PostForm", "Head") {
				out = append(out, fset.Position(n.Pos()).String()+": http."+n.Sel.Name)
			}
		case *ast.CompositeLit:
			if sel, ok := n.Type.(*ast.SelectorExpr); ok && !inHTTPX && isHTTPSelector(sel, "Client") {
				out = append(out, fset.Position(n.Pos()).String()+": http.Client literal")
			}
		}
		return true
	})
	return out
}

func isHTTPSelector(sel *ast.SelectorExpr, names ...string) bool {
	ident, ok := sel.X.(*ast.Ident)
	return ok && ident.Name == "http" && slices.Contains(names, sel.Sel.Name)
}
