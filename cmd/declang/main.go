// Command declang is a demo host for the embeddable interpreter in package
// declang: it evaluates a file, prints its top-level variables and any
// host-declared items, and can re-run on every save with --watch.
// Grounded on opal-lang-opal/runtime/cli/harness.go's cobra setup.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/declang/declang"
)

// fileConfig is the optional .declang.yaml config file read from the
// evaluated file's directory, grounded on the teacher's convention of a small
// top-level options struct decoded straight from a config file.
type fileConfig struct {
	SearchPath []string `yaml:"search_path"`
}

func loadFileConfig(dir string) fileConfig {
	var cfg fileConfig
	data, err := os.ReadFile(filepath.Join(dir, ".declang.yaml"))
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(data, &cfg)
	return cfg
}

// fileDelegate implements declang.Delegate by reading imports directly off
// disk, resolved against cfg.SearchPath, and printing to stdout.
type fileDelegate struct {
	baseDir    string
	searchPath []string
}

func (d *fileDelegate) LoadImport(fromDir, importPath string) (string, string, error) {
	candidates := append([]string{fromDir}, d.searchPath...)
	for _, dir := range candidates {
		resolved := filepath.Join(dir, importPath)
		data, err := os.ReadFile(resolved)
		if err == nil {
			return string(data), resolved, nil
		}
	}
	return "", "", fmt.Errorf("could not find %q under %v", importPath, candidates)
}

func (d *fileDelegate) Print(line string) {
	fmt.Println(line)
}

func runFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	cfg := loadFileConfig(dir)

	delegate := &fileDelegate{baseDir: dir, searchPath: cfg.SearchPath}
	runner := declang.New(dir, delegate)

	result, runErr := runner.Run(delegate, path, string(src))
	if runErr.HasError() {
		fmt.Fprintln(os.Stderr, runErr.Error())
		return fmt.Errorf("evaluation failed")
	}

	for name, v := range result.RootValues {
		fmt.Printf("%s = %s\n", name, v.String())
	}
	for _, it := range result.Items {
		fmt.Printf("%s(%q) { %d fields }\n", it.Type, it.Name, len(it.KeyValueMap))
	}
	return nil
}

func newRunCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Evaluate a declang file and print its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !watch {
				return runFile(path)
			}
			return watchAndRun(path)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run on every save")
	return cmd
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file>",
		Short: "Print the token stream for a declang file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTokens(args[0])
		},
	}
}

func newFmtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fmt <file>",
		Short: "Pretty-print a parsed file's AST back to source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return formatFile(args[0])
		},
	}
}

// watchAndRun runs path once, then re-runs it every time it's written,
// using fsnotify the way a save-triggered dev loop typically does.
func watchAndRun(path string) error {
	if err := runFile(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := runFile(path); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func main() {
	root := &cobra.Command{
		Use:   "declang",
		Short: "Evaluate declang configuration files",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newTokensCmd())
	root.AddCommand(newFmtCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
