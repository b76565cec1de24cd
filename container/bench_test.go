package container

import (
	"testing"

	"github.com/meigma/js5/internal/testutil"
)

func BenchmarkEncodeDecode(b *testing.B) {
	data := testutil.Compressible(7, 256<<10)
	for _, c := range []Compression{CompressionNone, CompressionBzip2, CompressionGzip, CompressionLZMA} {
		for _, key := range []Key{ZeroKey, {1, 2, 3, 4}} {
			name := c.String()
			if !key.IsZero() {
				name += "/xtea"
			}
			b.Run(name, func(b *testing.B) {
				var stored int
				b.SetBytes(int64(len(data)))
				b.ReportAllocs()
				for range b.N {
					enc, err := (&Container{Data: data, Key: key, Compression: c}).Encode()
					if err != nil {
						b.Fatal(err)
					}
					stored = len(enc)
					if _, err := Decode(enc, key); err != nil {
						b.Fatal(err)
					}
				}
				b.ReportMetric(float64(stored)/float64(len(data)), "ratio")
			})
		}
	}
}
