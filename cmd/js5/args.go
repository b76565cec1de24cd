package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/meigma/js5"
)

func parseArchive(s string) (uint8, error) {
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil || uint8(id) == js5.MasterIndex {
		return 0, fmt.Errorf("invalid archive id %q", s)
	}
	return uint8(id), nil
}

// groupRef is a group or file named either by id or by name.
type groupRef struct {
	id     uint32
	name   string
	byName bool
}

func parseRef(s string) groupRef {
	if id, err := strconv.ParseUint(s, 10, 32); err == nil {
		return groupRef{id: uint32(id)}
	}
	return groupRef{name: s, byName: true}
}

func (r groupRef) String() string {
	if r.byName {
		return strconv.Quote(r.name)
	}
	return strconv.FormatUint(uint64(r.id), 10)
}

// parseKey reads four comma-separated words. Words may be signed, as key
// dumps commonly store them, or unsigned, in decimal or 0x-prefixed hex.
func parseKey(s string) (js5.Key, error) {
	if s == "" {
		return js5.ZeroKey, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != len(js5.Key{}) {
		return js5.ZeroKey, fmt.Errorf("key %q: want %d words", s, len(js5.Key{}))
	}
	var words [4]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 0, 64)
		if err != nil {
			return js5.ZeroKey, fmt.Errorf("key %q: %w", s, err)
		}
		words[i] = v
	}
	return keyFromWords(words[:])
}

func keyFromWords(words []int64) (js5.Key, error) {
	var k js5.Key
	if len(words) != len(k) {
		return k, fmt.Errorf("key has %d words, want %d", len(words), len(k))
	}
	for i, v := range words {
		if v < -1<<31 || v > 1<<32-1 {
			return js5.ZeroKey, fmt.Errorf("key word %d out of range", v)
		}
		k[i] = uint32(v) //nolint:gosec // range checked above
	}
	return k, nil
}

// keyEntry is one record of a keys file:
//
//	keys:
//	  - archive: 5
//	    group: 1
//	    key: [-1, 2, 3, 4]
type keyEntry struct {
	Archive uint8   `mapstructure:"archive"`
	Group   uint32  `mapstructure:"group"`
	Key     []int64 `mapstructure:"key"`
}

type keyID struct {
	archive uint8
	group   uint32
}

// loadKeys reads a YAML or JSON keys file.
func loadKeys(path string) (js5.KeyFunc, error) {
	if path == "" {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read keys: %w", err)
	}
	var entries []keyEntry
	if err := v.UnmarshalKey("keys", &entries); err != nil {
		return nil, fmt.Errorf("decode keys: %w", err)
	}

	keys := make(map[keyID]js5.Key, len(entries))
	for _, e := range entries {
		k, err := keyFromWords(e.Key)
		if err != nil {
			return nil, fmt.Errorf("keys for archive %d group %d: %w", e.Archive, e.Group, err)
		}
		keys[keyID{e.Archive, e.Group}] = k
	}
	return func(archive uint8, group uint32) js5.Key {
		return keys[keyID{archive, group}]
	}, nil
}
