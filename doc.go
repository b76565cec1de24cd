// Package js5 reads and writes JS5 game caches on disk.
//
// A cache directory holds one sector file (main_file_cache.dat2), one index
// file per archive (main_file_cache.idx0 .. idxN-1) and a master index
// (main_file_cache.idx255) whose containers are the archive settings. Each
// archive stores groups; each group packs one or more files into a single
// container that may be compressed, XTEA encrypted and version-stamped.
//
// # Quick Start
//
// Open a cache and read a group:
//
//	c, err := js5.Open("./cache")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	a, err := c.Archive(2)
//	if err != nil {
//	    return err
//	}
//	g, err := a.ReadGroup(10, js5.ZeroKey)
//
// Write a group and commit the archive settings:
//
//	err = a.WriteGroup(&js5.Group{
//	    ID:    10,
//	    Files: []js5.File{{ID: 0, Data: data}},
//	}, js5.ZeroKey)
//	...
//	err = c.Close() // writes settings of every dirty archive, then closes files
//
// Settings are held in memory while an archive is open and only reach disk
// when the archive (or the cache owning it) is closed. A process that exits
// without closing leaves group data on disk that the old settings do not
// describe.
//
// # Packages
//
// The subpackages expose each layer on its own: [github.com/meigma/js5/disk]
// is the sector store, [github.com/meigma/js5/container] the compression and
// encryption envelope, [github.com/meigma/js5/group] the multi-file packing
// and [github.com/meigma/js5/settings] the archive metadata codec.
package js5
