package codec

import (
	"encoding/binary"
	"errors"
	"math"
	"math/bits"
)

// BitPackCodec packs a little-endian uint64 stream into the minimal bit
// width that holds the block's largest value. The payload is a one-byte
// width, the uvarint value count, and the packed bits, LSB first. Input that
// is not a whole number of uint64s is a shape error.
type BitPackCodec struct{}

func (BitPackCodec) ID() uint16   { return IDBitPack }
func (BitPackCodec) Name() string { return "bitpack" }

func (BitPackCodec) Compress(raw []byte) ([]byte, []byte, error) {
	if len(raw)%8 != 0 {
		return nil, nil, ErrDataShape
	}
	count := len(raw) / 8

	width := 0
	for i := 0; i < len(raw); i += 8 {
		if w := bits.Len64(binary.LittleEndian.Uint64(raw[i:])); w > width {
			width = w
		}
	}

	head := make([]byte, 1+binary.MaxVarintLen64)
	head[0] = byte(width)
	n := binary.PutUvarint(head[1:], uint64(count))
	out := head[:1+n]

	if width == 0 {
		return out, nil, nil
	}

	packed := make([]byte, (count*width+7)/8)
	bitPos := 0
	for i := 0; i < len(raw); i += 8 {
		v := binary.LittleEndian.Uint64(raw[i:])
		for b := 0; b < width; b++ {
			if v&(1<<b) != 0 {
				packed[bitPos/8] |= 1 << (bitPos % 8)
			}
			bitPos++
		}
	}
	return append(out, packed...), nil, nil
}

func (BitPackCodec) Decompress(compressed, _ []byte) ([]byte, error) {
	if len(compressed) < 2 {
		return nil, wrapCorrupt("bitpack", errors.New("payload shorter than header"))
	}
	width := int(compressed[0])
	if width > 64 {
		return nil, wrapCorrupt("bitpack", errors.New("bit width over 64"))
	}
	count, n := binary.Uvarint(compressed[1:])
	if n <= 0 {
		return nil, wrapCorrupt("bitpack", errors.New("bad count varint"))
	}
	// A block's raw length is a u32, so a count past MaxUint32/8 values can
	// only come from a corrupt prefix; it would also overflow the packed
	// length arithmetic below.
	if count > math.MaxUint32/8 {
		return nil, wrapCorrupt("bitpack", errors.New("value count exceeds block bounds"))
	}
	packed := compressed[1+n:]

	if width > 0 && len(packed) != int(count*uint64(width)+7)/8 {
		return nil, wrapCorrupt("bitpack", errors.New("packed section length mismatch"))
	}

	out := make([]byte, count*8)
	if width == 0 {
		return out, nil
	}

	bitPos := 0
	for i := uint64(0); i < count; i++ {
		var v uint64
		for b := 0; b < width; b++ {
			if packed[bitPos/8]&(1<<(bitPos%8)) != 0 {
				v |= 1 << b
			}
			bitPos++
		}
		binary.LittleEndian.PutUint64(out[i*8:], v)
	}
	return out, nil
}

func init() {
	Register(BitPackCodec{})
}
