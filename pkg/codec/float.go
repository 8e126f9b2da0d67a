package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// FloatCodec encodes a little-endian float64 stream as the first value
// followed by XOR-with-previous residuals, varint encoded; adjacent samples
// of slowly moving signals share most mantissa bits, so residuals are short.
// The decode is bit-exact.
//
// Each block carries a 16-byte sidecar holding the block's min and max, which
// lets tools report value ranges without decoding and keeps every block
// self-describing. Input that is not a whole number of float64s is a shape
// error.
type FloatCodec struct{}

func (FloatCodec) ID() uint16   { return IDFloat }
func (FloatCodec) Name() string { return "float" }

func (FloatCodec) Compress(raw []byte) ([]byte, []byte, error) {
	if len(raw)%8 != 0 {
		return nil, nil, ErrDataShape
	}
	if len(raw) == 0 {
		return []byte{}, nil, nil
	}

	out := make([]byte, 8, len(raw)/2+8)
	copy(out, raw[:8])
	prev := binary.LittleEndian.Uint64(raw[:8])
	min := math.Float64frombits(prev)
	max := min

	var tmp [binary.MaxVarintLen64]byte
	for i := 8; i < len(raw); i += 8 {
		bits := binary.LittleEndian.Uint64(raw[i:])
		if v := math.Float64frombits(bits); v < min {
			min = v
		} else if v > max {
			max = v
		}
		n := binary.PutUvarint(tmp[:], bits^prev)
		out = append(out, tmp[:n]...)
		prev = bits
	}

	sidecar := make([]byte, 16)
	binary.LittleEndian.PutUint64(sidecar[0:8], math.Float64bits(min))
	binary.LittleEndian.PutUint64(sidecar[8:16], math.Float64bits(max))
	return out, sidecar, nil
}

func (FloatCodec) Decompress(compressed, _ []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return []byte{}, nil
	}
	if len(compressed) < 8 {
		return nil, wrapCorrupt("float", errors.New("payload shorter than first value"))
	}

	out := make([]byte, 8, len(compressed)*2)
	copy(out, compressed[:8])
	prev := binary.LittleEndian.Uint64(compressed[:8])

	var tmp [8]byte
	pos := 8
	for pos < len(compressed) {
		u, n := binary.Uvarint(compressed[pos:])
		if n <= 0 {
			return nil, wrapCorrupt("float", errors.New("bad residual varint"))
		}
		pos += n
		prev ^= u
		binary.LittleEndian.PutUint64(tmp[:], prev)
		out = append(out, tmp[:]...)
	}
	return out, nil
}

// SidecarBounds decodes the min/max pair a FloatCodec block carries.
func SidecarBounds(sidecar []byte) (min, max float64, ok bool) {
	if len(sidecar) != 16 {
		return 0, 0, false
	}
	min = math.Float64frombits(binary.LittleEndian.Uint64(sidecar[0:8]))
	max = math.Float64frombits(binary.LittleEndian.Uint64(sidecar[8:16]))
	return min, max, true
}

func init() {
	Register(FloatCodec{})
}
