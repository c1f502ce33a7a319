package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/pathtree/internal/query"
)

var scanOut string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find every file on disk matched by the tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := loadTree()
		if err != nil {
			return err
		}
		matches, err := query.Scan(node)
		if err != nil {
			return err
		}
		if scanOut != "" {
			store, err := query.OpenStore(scanOut)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Save(matches); err != nil {
				return err
			}
		}
		for _, m := range matches {
			fmt.Printf("%s\t%s\n", m.ShortName, m.Filename)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanOut, "out", "", "Write matches to a sqlite database")
	rootCmd.AddCommand(scanCmd)
}
