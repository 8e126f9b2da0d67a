package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// RLECodec run-length encodes the byte stream as (uvarint count, value)
// pairs. It shines on sparse or constant data; worst case it doubles the
// input, which the block checksum and index tolerate fine.
type RLECodec struct{}

func (RLECodec) ID() uint16   { return IDRLE }
func (RLECodec) Name() string { return "rle" }

func (RLECodec) Compress(raw []byte) ([]byte, []byte, error) {
	out := make([]byte, 0, len(raw)/4+16)
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(raw); {
		j := i + 1
		for j < len(raw) && raw[j] == raw[i] {
			j++
		}
		n := binary.PutUvarint(tmp[:], uint64(j-i))
		out = append(out, tmp[:n]...)
		out = append(out, raw[i])
		i = j
	}
	return out, nil, nil
}

func (RLECodec) Decompress(compressed, _ []byte) ([]byte, error) {
	out := make([]byte, 0, len(compressed)*2)
	pos := 0
	for pos < len(compressed) {
		count, n := binary.Uvarint(compressed[pos:])
		if n <= 0 || count == 0 {
			return nil, wrapCorrupt("rle", errors.New("bad run length"))
		}
		// A block decodes to at most a u32 of raw bytes.
		if count > math.MaxUint32 || uint64(len(out))+count > math.MaxUint32 {
			return nil, wrapCorrupt("rle", errors.New("run length exceeds block bounds"))
		}
		pos += n
		if pos >= len(compressed) {
			return nil, wrapCorrupt("rle", errors.New("run missing value byte"))
		}
		b := compressed[pos]
		pos++
		for i := uint64(0); i < count; i++ {
			out = append(out, b)
		}
	}
	return out, nil
}

func init() {
	Register(RLECodec{})
}
