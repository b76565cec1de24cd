package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/js5"
)

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarize the archives of a cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCache(true, func(c *js5.Cache) error {
				rows := make([]archiveRow, 0, c.ArchiveCount())
				for id := range c.ArchiveCount() {
					ar, err := c.Archive(uint8(id)) //nolint:gosec // bounded by ArchiveCount
					if err != nil {
						return err
					}
					format, err := ar.Settings().Format()
					if err != nil {
						return err
					}
					rows = append(rows, archiveRow{
						Archive: ar.ID(),
						Groups:  len(ar.GroupIDs()),
						Version: ar.Version(),
						Format:  format.String(),
					})
				}

				out := cmd.OutOrStdout()
				if done, err := writeStructured(out, a.cfg.Output.Format, rows); done || err != nil {
					return err
				}

				fmt.Fprintf(out, "cache: %s\n", c.Store().Dir())
				fmt.Fprintf(out, "archives: %d\n", len(rows))
				if len(rows) == 0 {
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ARCHIVE\tGROUPS\tVERSION\tFORMAT")
				for _, r := range rows {
					version := "-"
					if r.Version != nil {
						version = fmt.Sprint(*r.Version)
					}
					fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", r.Archive, r.Groups, version, r.Format)
				}
				return tw.Flush()
			})
		},
	}
}
