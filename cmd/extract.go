package cmd

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [short-name] [filename]",
	Short: "Recover variable values from a concrete path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := loadTree()
		if err != nil {
			return err
		}
		vars, err := node.ExtractVariables(args[0], args[1])
		if err != nil {
			return err
		}
		out := make(map[string]any, len(vars))
		for name, value := range vars {
			if value == "" {
				out[name] = nil
			} else {
				out[name] = value
			}
		}
		fmt.Println(oj.JSON(out, 2))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
