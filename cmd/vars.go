package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var varsCmd = &cobra.Command{
	Use:   "vars [short-name]",
	Short: "Show variable value domains from a scan, tree-wide or per template",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery()
		if err != nil {
			return err
		}
		short := ""
		if len(args) == 1 {
			short = args[0]
		}
		domains, err := q.Variables(short)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(domains))
		for name := range domains {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			values := domains[name]
			shown := make([]string, len(values))
			for i, v := range values {
				if v == "" {
					shown[i] = "<unset>"
				} else {
					shown[i] = v
				}
			}
			fmt.Printf("%s\t%s\n", name, strings.Join(shown, ", "))
		}
		return nil
	},
}

func init() {
	varsCmd.Flags().StringVar(&queryCache, "cache", "", "Sqlite database to reuse or fill with scan results")
	rootCmd.AddCommand(varsCmd)
}
