package codec

import (
	"encoding/binary"
	"errors"
)

// DeltaCodec encodes a little-endian int64 stream as its first value followed
// by zigzag-varint deltas. Monotonic or slowly changing sequences (row ids,
// timestamps, counters) shrink to a byte or two per value. Input that is not
// a whole number of int64s is a shape error.
type DeltaCodec struct{}

func (DeltaCodec) ID() uint16   { return IDDelta }
func (DeltaCodec) Name() string { return "delta" }

func (DeltaCodec) Compress(raw []byte) ([]byte, []byte, error) {
	if len(raw)%8 != 0 {
		return nil, nil, ErrDataShape
	}
	if len(raw) == 0 {
		return []byte{}, nil, nil
	}

	out := make([]byte, 8, len(raw)/2+8)
	copy(out, raw[:8])
	prev := int64(binary.LittleEndian.Uint64(raw[:8]))

	var tmp [binary.MaxVarintLen64]byte
	for i := 8; i < len(raw); i += 8 {
		v := int64(binary.LittleEndian.Uint64(raw[i:]))
		n := binary.PutUvarint(tmp[:], zigzag(v-prev))
		out = append(out, tmp[:n]...)
		prev = v
	}
	return out, nil, nil
}

func (DeltaCodec) Decompress(compressed, _ []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return []byte{}, nil
	}
	if len(compressed) < 8 {
		return nil, wrapCorrupt("delta", errors.New("payload shorter than first value"))
	}

	out := make([]byte, 8, len(compressed)*2)
	copy(out, compressed[:8])
	prev := int64(binary.LittleEndian.Uint64(compressed[:8]))

	var tmp [8]byte
	pos := 8
	for pos < len(compressed) {
		u, n := binary.Uvarint(compressed[pos:])
		if n <= 0 {
			return nil, wrapCorrupt("delta", errors.New("bad delta varint"))
		}
		pos += n
		prev += unzigzag(u)
		binary.LittleEndian.PutUint64(tmp[:], uint64(prev))
		out = append(out, tmp[:]...)
	}
	return out, nil
}

func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func init() {
	Register(DeltaCodec{})
}
