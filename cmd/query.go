package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/pathtree/internal/query"
)

var (
	queryJSON  bool
	queryCache string
)

var queryCmd = &cobra.Command{
	Use:   "query [short-name] [key=value ...]",
	Short: "List on-disk matches of one template, filtered by variable values",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery()
		if err != nil {
			return err
		}
		vars, err := parseSetVars(append(append([]string{}, setVars...), args[1:]...))
		if err != nil {
			return err
		}
		matches, err := q.Query(args[0], vars)
		if err != nil {
			return err
		}
		if queryJSON {
			out := make([]map[string]any, 0, len(matches))
			for _, m := range matches {
				vs := make(map[string]any, len(m.Variables))
				for k, v := range m.Variables {
					vs[k] = v
				}
				out = append(out, map[string]any{
					"filename":   m.Filename,
					"short_name": m.ShortName,
					"variables":  vs,
				})
			}
			fmt.Println(oj.JSON(out, 2))
			return nil
		}
		for _, m := range matches {
			names := make([]string, 0, len(m.Variables))
			for name := range m.Variables {
				names = append(names, name)
			}
			sort.Strings(names)
			line := m.Filename
			for _, name := range names {
				line += fmt.Sprintf("\t%s=%s", name, m.Variables[name])
			}
			fmt.Println(line)
		}
		return nil
	},
}

// buildQuery loads matches from the cache database when one exists,
// otherwise scans the tree (and fills the cache if requested).
func buildQuery() (*query.Query, error) {
	if queryCache != "" {
		if _, err := os.Stat(queryCache); err == nil {
			store, err := query.OpenStore(queryCache)
			if err != nil {
				return nil, err
			}
			defer store.Close()
			matches, err := store.Load()
			if err != nil {
				return nil, err
			}
			return query.NewFromMatches(matches)
		}
	}

	node, err := loadTree()
	if err != nil {
		return nil, err
	}
	if queryCache != "" {
		matches, err := query.Scan(node)
		if err != nil {
			return nil, err
		}
		store, err := query.OpenStore(queryCache)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if err := store.Save(matches); err != nil {
			return nil, err
		}
	}
	return query.New(node)
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Emit matches as JSON")
	queryCmd.Flags().StringVar(&queryCache, "cache", "", "Sqlite database to reuse or fill with scan results")
	rootCmd.AddCommand(queryCmd)
}
