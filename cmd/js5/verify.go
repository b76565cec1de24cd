package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/js5"
)

func (a *app) verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [archive...]",
		Short: "Check stored groups against their checksums",
		Long: `Check every group of the named archives, or of all archives, against the
CRC, whirlpool digest and sizes recorded in the settings, then decode it.

Encrypted groups need their keys, supplied as a YAML or JSON file:

  keys:
    - archive: 5
      group: 1
      key: [1, 2, 3, 4]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			archives := make([]uint8, 0, len(args))
			for _, arg := range args {
				id, err := parseArchive(arg)
				if err != nil {
					return err
				}
				archives = append(archives, id)
			}
			keys, err := loadKeys(a.cfg.Verify.Keys)
			if err != nil {
				return err
			}

			return a.withCache(true, func(c *js5.Cache) error {
				opts := []js5.VerifyOption{js5.VerifyWithWorkers(a.cfg.Verify.Workers)}
				if keys != nil {
					opts = append(opts, js5.VerifyWithKeys(keys))
				}
				results, err := c.Verify(cmd.Context(), archives, opts...)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				failed := 0
				for _, r := range results {
					if r.OK() {
						continue
					}
					failed++
					fmt.Fprintf(out, "FAIL archive %d group %d: %v\n", r.Archive, r.Group, r.Err)
				}
				fmt.Fprintf(out, "%d groups checked, %d failed\n", len(results), failed)
				if failed > 0 {
					return fmt.Errorf("%d groups failed verification", failed)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.Int("workers", 0, "checking workers (0 = one per CPU)")
	f.String("keys", "", "YAML or JSON file of group keys")
	a.bind("verify.workers", f.Lookup("workers"))
	a.bind("verify.keys", f.Lookup("keys"))
	return cmd
}
