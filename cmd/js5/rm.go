package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/js5"
)

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <archive> <group>",
		Short: "Remove a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := parseArchive(args[0])
			if err != nil {
				return err
			}
			ref := parseRef(args[1])

			return a.withCache(false, func(c *js5.Cache) error {
				ar, err := c.Archive(archive)
				if err != nil {
					return err
				}
				id := ref.id
				if ref.byName {
					g, ok := ar.Settings().FindByName(js5.NameHash(ref.name))
					if !ok {
						return fmt.Errorf("%w: archive %d group %s", js5.ErrNotFound, archive, ref)
					}
					id = g.ID
				}
				if err := ar.RemoveGroup(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed archive %d group %d\n", archive, id)
				return nil
			})
		},
	}
}
