package checksum

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(0), CRC(nil))
	// crc32("123456789") = 0xCBF43926
	assert.Equal(t, int32(-873187034), CRC([]byte("123456789")))
}

func TestWhirlpool(t *testing.T) {
	t.Parallel()

	// ISO/IEC 10118-3 test vector for the empty string.
	want := "19fa61d75522a4669b44e39c1d2e1726c530232130d407f89afee0964997f7a7" +
		"3e83be698b288febcf88e3e03c4f0757ea8964e59b63d93708b138cc42a66eb3"
	got := Whirlpool(nil)
	assert.Equal(t, want, hex.EncodeToString(got[:]))

	assert.NotEqual(t, Whirlpool([]byte("a")), Whirlpool([]byte("b")))
}
