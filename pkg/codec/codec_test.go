package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Bytes(vals ...int64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

func uint64Bytes(vals ...uint64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

func float64Bytes(vals ...float64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func uvarint(v uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	return buf[:n]
}

func hugeUvarint() []byte { return uvarint(^uint64(0)) }

func TestLookup(t *testing.T) {
	for _, id := range []uint16{IDIdentity, IDZstd, IDLZ4, IDDelta, IDFloat, IDBitPack, IDRLE, IDSnappy} {
		c, err := Lookup(id)
		require.NoError(t, err)
		assert.Equal(t, id, c.ID())
	}

	_, err := Lookup(999)
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestByName(t *testing.T) {
	c, err := ByName("zstd")
	require.NoError(t, err)
	assert.Equal(t, IDZstd, c.ID())

	_, err = ByName("no-such-codec")
	assert.Error(t, err)

	assert.Contains(t, Names(), "identity")
}

func TestRegister_External(t *testing.T) {
	ext := externalCodec{}
	Register(ext)
	c, err := Lookup(ext.ID())
	require.NoError(t, err)
	assert.Equal(t, "external", c.Name())
}

type externalCodec struct{ IdentityCodec }

func (externalCodec) ID() uint16   { return 200 }
func (externalCodec) Name() string { return "external" }

// roundTripInputs are byte sequences every codec must reproduce exactly. All
// lengths are multiples of 8 so the structured codecs accept them too.
func roundTripInputs(t *testing.T) map[string][]byte {
	t.Helper()
	rnd := rand.New(rand.NewSource(7))
	random := make([]byte, 64*1024)
	_, err := rnd.Read(random)
	require.NoError(t, err)

	counter := make([]int64, 4096)
	for i := range counter {
		counter[i] = int64(i*4 - 1000)
	}
	floats := make([]float64, 4096)
	for i := range floats {
		floats[i] = 20.0 + math.Sin(float64(i)/100)
	}
	small := make([]uint64, 1024)
	for i := range small {
		small[i] = uint64(rnd.Intn(4000))
	}

	return map[string][]byte{
		"empty":        {},
		"single value": int64Bytes(42),
		"random":       random,
		"zeros":        make([]byte, 8192),
		"counter":      int64Bytes(counter...),
		"floats":       float64Bytes(floats...),
		"small uints":  uint64Bytes(small...),
	}
}

func TestRoundTrip_AllCodecs(t *testing.T) {
	inputs := roundTripInputs(t)

	for _, id := range []uint16{IDIdentity, IDZstd, IDLZ4, IDDelta, IDFloat, IDBitPack, IDRLE, IDSnappy} {
		c, err := Lookup(id)
		require.NoError(t, err)

		t.Run(c.Name(), func(t *testing.T) {
			for name, raw := range inputs {
				compressed, sidecar, err := c.Compress(raw)
				require.NoError(t, err, "compress %q", name)

				got, err := c.Decompress(compressed, sidecar)
				require.NoError(t, err, "decompress %q", name)
				assert.True(t, bytes.Equal(raw, got), "round trip mismatch for %q", name)
			}
		})
	}
}

func TestIdentity_NoTransform(t *testing.T) {
	raw := []byte("already compressed payload")
	compressed, sidecar, err := IdentityCodec{}.Compress(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, compressed)
	assert.Nil(t, sidecar)
}

func TestStructuredCodecs_RejectBadShape(t *testing.T) {
	odd := make([]byte, 13)
	for _, c := range []Codec{DeltaCodec{}, FloatCodec{}, BitPackCodec{}} {
		_, _, err := c.Compress(odd)
		assert.ErrorIs(t, err, ErrDataShape, "codec %s", c.Name())
	}
}

func TestDelta_CompressesCounters(t *testing.T) {
	vals := make([]int64, 8192)
	for i := range vals {
		vals[i] = int64(1700000000 + i)
	}
	raw := int64Bytes(vals...)

	compressed, _, err := DeltaCodec{}.Compress(raw)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(raw)/4, "counters should shrink heavily")
}

func TestFloat_SidecarBounds(t *testing.T) {
	raw := float64Bytes(3.5, -1.25, 9.75, 0)

	_, sidecar, err := FloatCodec{}.Compress(raw)
	require.NoError(t, err)

	min, max, ok := SidecarBounds(sidecar)
	require.True(t, ok)
	assert.Equal(t, -1.25, min)
	assert.Equal(t, 9.75, max)

	_, _, ok = SidecarBounds(nil)
	assert.False(t, ok)
}

func TestBitPack_PacksSmallValues(t *testing.T) {
	vals := make([]uint64, 4096)
	for i := range vals {
		vals[i] = uint64(i % 16) // 4-bit values
	}
	raw := uint64Bytes(vals...)

	compressed, _, err := BitPackCodec{}.Compress(raw)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(raw)/8, "4-bit values should pack 16:1")
}

func TestRLE_CompressesRuns(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAA}, 100000)
	compressed, _, err := RLECodec{}.Compress(raw)
	require.NoError(t, err)
	assert.Less(t, len(compressed), 16)
}

func TestDecompress_CorruptPayloads(t *testing.T) {
	testCases := []struct {
		name    string
		codec   Codec
		payload []byte
	}{
		{"zstd garbage", ZstdCodec{}, []byte{0x01, 0x02, 0x03, 0x04}},
		{"snappy garbage", SnappyCodec{}, []byte{0xFF, 0xFF, 0xFF}},
		{"lz4 bad mode", LZ4Codec{}, []byte{9, 8, 0, 0}},
		{"lz4 empty", LZ4Codec{}, []byte{}},
		{"delta truncated first value", DeltaCodec{}, []byte{1, 2, 3}},
		{"bitpack width over 64", BitPackCodec{}, []byte{65, 1, 0}},
		{"rle zero run", RLECodec{}, []byte{0, 0xAA}},
		{"rle missing value", RLECodec{}, []byte{5}},
		{"lz4 oversized length prefix", LZ4Codec{}, append([]byte{1}, hugeUvarint()...)},
		{"bitpack oversized count", BitPackCodec{}, append([]byte{0}, hugeUvarint()...)},
		{"bitpack zero-width oversized count", BitPackCodec{}, append([]byte{0}, uvarint(1<<33)...)},
		{"rle oversized run", RLECodec{}, append(uvarint(1<<33), 0xAA)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.codec.Decompress(tc.payload, nil)
			assert.ErrorIs(t, err, ErrCorruptPayload)
		})
	}
}
