package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ORBLab/internal/registry"
)

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List registered strategies and whether each one resolves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			strategiesFile, _ := cmd.Flags().GetString("strategies")
			costsFile, _ := cmd.Flags().GetString("costs")

			strategies, err := registry.LoadStrategies(strategiesFile)
			if err != nil {
				return err
			}
			costs, err := registry.LoadCosts(costsFile)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INSTRUMENT\tANCHOR\tSTATUS\tDETAIL")
			for _, k := range strategies.Keys() {
				status, detail := "ok", ""
				if _, err := strategies.Resolve(k.Instrument, k.Anchor); err != nil {
					status, detail = "config_error", err.Error()
				} else if _, err := costs.Lookup(k.Instrument); err != nil {
					status, detail = "config_error", err.Error()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Instrument, k.Anchor, status, detail)
			}
			return tw.Flush()
		},
	}
}
