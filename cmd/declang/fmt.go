package main

import (
	"fmt"
	"os"

	"github.com/declang/declang/ast"
	"github.com/declang/declang/parser"
)

// formatFile parses path and prints its AST back out as source, exercising
// the same ast.Render path a host embedding this package could use to
// normalize a file's layout.
func formatFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	file, perr := parser.Parse(path, string(src))
	if perr.HasError() {
		fmt.Fprintln(os.Stderr, perr.Error())
		return fmt.Errorf("parsing failed")
	}
	fmt.Print(ast.RenderFile(file))
	return nil
}
