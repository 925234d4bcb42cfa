package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paddock-labs/equinet/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg := source.NewRegistry()

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKINDS\tRATE (rpm)\tENDPOINTS\tAUTH")
		for _, d := range reg.All() {
			kinds := make([]string, len(d.Kinds))
			for i, k := range d.Kinds {
				kinds[i] = string(k)
			}
			auth := ""
			if d.RequiresAuth {
				auth = "required"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
				d.Name, strings.Join(kinds, ","), d.RateLimit, len(d.Endpoints), auth)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
