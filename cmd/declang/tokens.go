package main

import (
	"fmt"
	"os"

	"github.com/declang/declang/lexer"
)

// printTokens tokenizes path and prints each token, one per line — a
// small diagnostic used while developing the grammar, kept as a CLI
// subcommand the same way a compiler's `-dump-tokens` flag would be.
func printTokens(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lx := lexer.New(path, string(src))
	toks, lerr := lx.Tokenize()
	if lerr.HasError() {
		fmt.Fprintln(os.Stderr, lerr.Error())
		return fmt.Errorf("tokenizing failed")
	}
	for _, t := range toks {
		fmt.Println(t.String())
	}
	return nil
}
