package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentic-research/pathtree/internal/template"
	"github.com/agentic-research/pathtree/internal/tree"
)

var lsCmd = &cobra.Command{
	Use:   "ls [short-name]",
	Short: "List on-disk paths of a template, or every template the tree defines",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := loadTree()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			paths, err := node.GetAll(args[0], template.GlobAll)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		}
		for _, line := range listTemplates(node, "") {
			fmt.Println(line)
		}
		return nil
	},
}

func listTemplates(n *tree.Node, prefix string) []string {
	var out []string
	for short, text := range n.Templates {
		out = append(out, fmt.Sprintf("%s%s\t%s", prefix, short, text))
	}
	for name, sub := range n.SubTrees {
		out = append(out, listTemplates(sub, prefix+name+"/")...)
	}
	sort.Strings(out)
	return out
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
