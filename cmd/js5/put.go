package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meigma/js5"
)

func (a *app) putCmd() *cobra.Command {
	var (
		keyFlag string
		version uint32
		chunks  uint8
		name    string
		names   bool
	)
	cmd := &cobra.Command{
		Use:   "put <archive> <group> <path>...",
		Short: "Write a group from local files",
		Long: `Write a group from local files, replacing any existing group with that id.

Files are numbered 0..n-1 in argument order. Naming the archive after the
last existing one creates it. The archive settings are written when the
command finishes.`,
		Example: `  # Store two files as group 3 of archive 0, named by their base names
  js5 put 0 3 ./a.dat ./b.dat --names --compression lzma`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := parseArchive(args[0])
			if err != nil {
				return err
			}
			ref := parseRef(args[1])
			if ref.byName {
				return fmt.Errorf("invalid group id %q", args[1])
			}
			key, err := parseKey(keyFlag)
			if err != nil {
				return err
			}

			g := &js5.Group{ID: ref.id, Version: version, Chunks: chunks}
			if name != "" {
				h := js5.NameHash(name)
				g.NameHash = &h
			}
			for i, path := range args[2:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				f := js5.File{ID: uint32(i), Data: data} //nolint:gosec // argument count fits
				if names {
					h := js5.NameHash(filepath.Base(path))
					f.NameHash = &h
				}
				g.Files = append(g.Files, f)
			}

			return a.withCache(false, func(c *js5.Cache) error {
				ar, err := c.Archive(archive)
				if err != nil {
					return err
				}
				if err := ar.WriteGroup(g, key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote archive %d group %d (%d files)\n", archive, g.ID, len(g.Files))
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&keyFlag, "key", "", "XTEA key as four comma-separated words")
	f.Uint32Var(&version, "version", 0, "group version")
	f.Uint8Var(&chunks, "chunks", 1, "chunks to interleave multi-file groups into")
	f.StringVar(&name, "name", "", "group name to hash into the settings")
	f.BoolVar(&names, "names", false, "hash each file's base name into the settings")
	f.String("compression", "", "compression (none, bzip2, gzip, lzma)")
	f.Bool("whirlpool", false, "record whirlpool digests")
	f.Bool("sizes", false, "record stored and uncompressed sizes")
	a.bind("write.compression", f.Lookup("compression"))
	a.bind("write.whirlpool", f.Lookup("whirlpool"))
	a.bind("write.sizes", f.Lookup("sizes"))
	return cmd
}
