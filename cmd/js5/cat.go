package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meigma/js5"
	"github.com/meigma/js5/internal/fileutil"
)

func (a *app) catCmd() *cobra.Command {
	var (
		keyFlag string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "cat <archive> <group> [file]",
		Short: "Extract files from a group",
		Long: `Extract files from a group.

Groups and files are named by id or by name. A single file is written to
stdout unless --out is given; with --out every selected file is written to
<out>/<file id> through a temp file and rename.`,
		Example: `  # Print file 0 of group 10 in archive 2
  js5 cat 2 10 0

  # Extract every file of an encrypted group
  js5 cat 5 1 --key 1,2,3,4 --out ./extracted`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := parseArchive(args[0])
			if err != nil {
				return err
			}
			key, err := parseKey(keyFlag)
			if err != nil {
				return err
			}
			groupArg := parseRef(args[1])

			return a.withCache(true, func(c *js5.Cache) error {
				ar, err := c.Archive(archive)
				if err != nil {
					return err
				}
				var g *js5.Group
				if groupArg.byName {
					g, err = ar.ReadGroupByName(groupArg.name, key)
				} else {
					g, err = ar.ReadGroup(groupArg.id, key)
				}
				if err != nil {
					return err
				}

				files := g.Files
				if len(args) == 3 {
					f, err := selectFile(g, parseRef(args[2]))
					if err != nil {
						return fmt.Errorf("archive %d group %s: %w", archive, groupArg, err)
					}
					files = []js5.File{*f}
				}

				if out == "" {
					if len(files) != 1 {
						return fmt.Errorf("group %s has %d files: name one or pass --out", groupArg, len(files))
					}
					_, err := cmd.OutOrStdout().Write(files[0].Data)
					return err
				}
				for _, f := range files {
					target := filepath.Join(out, strconv.FormatUint(uint64(f.ID), 10))
					if err := fileutil.WriteAtomic(target, f.Data, 0o640); err != nil {
						return err
					}
					a.logger.Info("extracted file", "archive", archive, "group", g.ID, "file", f.ID, "path", target, "bytes", len(f.Data))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&keyFlag, "key", "", "XTEA key as four comma-separated words")
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory to write files to")
	return cmd
}

func selectFile(g *js5.Group, ref groupRef) (*js5.File, error) {
	var (
		f  *js5.File
		ok bool
	)
	if ref.byName {
		f, ok = g.FileByName(ref.name)
	} else {
		f, ok = g.File(ref.id)
	}
	if !ok {
		return nil, fmt.Errorf("%w: file %s", js5.ErrNotFound, ref)
	}
	return f, nil
}
