package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/js5"
)

func (a *app) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <archive>",
		Short: "List the groups of an archive",
		Example: `  # List groups of archive 2
  js5 ls 2 --dir ./cache

  # As JSON
  js5 ls 2 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := parseArchive(args[0])
			if err != nil {
				return err
			}
			return a.withCache(true, func(c *js5.Cache) error {
				ar, err := c.Archive(archive)
				if err != nil {
					return err
				}
				rows := make([]groupRow, 0, len(ar.GroupIDs()))
				for _, id := range ar.GroupIDs() {
					g, _ := ar.Group(id)
					rows = append(rows, groupRow{
						Group:    id,
						Version:  g.Version,
						CRC:      fmt.Sprintf("%08x", uint32(g.CRC)), //nolint:gosec // hex display
						Files:    len(g.Files),
						NameHash: g.NameHash,
					})
				}

				out := cmd.OutOrStdout()
				if done, err := writeStructured(out, a.cfg.Output.Format, rows); done || err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "GROUP\tVERSION\tCRC\tFILES\tNAME")
				for _, r := range rows {
					name := "-"
					if r.NameHash != nil {
						name = fmt.Sprint(*r.NameHash)
					}
					fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", r.Group, r.Version, r.CRC, r.Files, name)
				}
				return tw.Flush()
			})
		},
	}
}
