package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/pathtree/internal/template"
	"github.com/agentic-research/pathtree/internal/tree"
)

var (
	treeName   string
	rootDir    string
	includes   []string
	setVars    []string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "pathtree",
	Short:         "Pathtree: templated directory trees and on-disk queries",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&treeName, "tree", "t", "", "Tree definition name or file")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", ".", "Top-level directory of the tree")
	rootCmd.PersistentFlags().StringArrayVarP(&includes, "include", "I", nil, "Extra directory to search for tree definitions (repeatable)")
	rootCmd.PersistentFlags().StringArrayVarP(&setVars, "set", "s", nil, "Variable assignment key=value (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "HCL configuration file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadTree resolves flags and config into a loaded tree rooted at --dir.
func loadTree() (*tree.Node, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	name := treeName
	if name == "" {
		return nil, fmt.Errorf("no tree definition given (use --tree)")
	}
	dir := rootDir
	if dir == "." && cfg.RootDir != "" {
		dir = cfg.RootDir
	}

	dirs := append(append([]string{}, includes...), cfg.TreeDirs...)
	for i, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("include dir %s: %w", d, err)
		}
		dirs[i] = abs
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("dir %s: %w", dir, err)
	}
	if !filepath.IsAbs(name) {
		// Allow naming a definition file relative to the working directory.
		if abs, err := filepath.Abs(name); err == nil {
			if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
				name = abs
			}
		}
	}

	vars, err := parseSetVars(setVars)
	if err != nil {
		return nil, err
	}
	for k, v := range cfg.variables() {
		if _, ok := vars[k]; !ok {
			vars[k] = v
		}
	}

	loader := tree.NewLoader(dirs...)
	return loader.Load(name, absDir, vars)
}

func parseSetVars(pairs []string) (template.Bindings, error) {
	vars := template.Bindings{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", pair)
		}
		vars[k] = v
	}
	return vars, nil
}
