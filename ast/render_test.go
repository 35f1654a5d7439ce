package ast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/declang/declang/ast"
	"github.com/declang/declang/parser"
)

func TestRenderFileRoundTripsAssignmentsAndCalls(t *testing.T) {
	src := `x = 1
y = x + 2
print(y)
`
	file, err := parser.Parse("f.gn", src)
	require.False(t, err.HasError())
	out := ast.RenderFile(file)

	reparsed, rerr := parser.Parse("f.gn", out)
	require.False(t, rerr.HasError(), "re-parsing rendered output failed: %s\n%s", rerr.Error(), out)
	require.Len(t, reparsed.Root.Stmts, 3)
}

func TestRenderKeepsBlockCommentAsOwnStatement(t *testing.T) {
	src := "x = 1\n\n# standalone\n\ny = 2\n"
	file, err := parser.Parse("f.gn", src)
	require.False(t, err.HasError())
	out := ast.RenderFile(file)
	require.Contains(t, out, "# standalone")
}

func TestRenderFunctionCallWithBlock(t *testing.T) {
	src := `my_bag("a") {
  count = 1
}
`
	file, err := parser.Parse("f.gn", src)
	require.False(t, err.HasError())
	out := ast.RenderFile(file)
	reparsed, rerr := parser.Parse("f.gn", out)
	require.False(t, rerr.HasError(), "re-parsing rendered output failed: %s\n%s", rerr.Error(), out)
	call := reparsed.Root.Stmts[0].(*ast.FunctionCall)
	require.Equal(t, "my_bag", call.Name())
	require.NotNil(t, call.Block)
}
