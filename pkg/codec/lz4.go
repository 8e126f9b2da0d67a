package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

const (
	lz4ModeRaw   = 0
	lz4ModeBlock = 1
)

// LZ4Codec compresses blocks with the lz4 block format. The payload carries
// a one-byte mode and the uvarint raw length in front of the block, because
// lz4 block decoding needs the destination size up front. Incompressible
// input is stored raw rather than expanded.
type LZ4Codec struct{}

func (LZ4Codec) ID() uint16   { return IDLZ4 }
func (LZ4Codec) Name() string { return "lz4" }

func (LZ4Codec) Compress(raw []byte) ([]byte, []byte, error) {
	head := make([]byte, 1+binary.MaxVarintLen64)
	n := binary.PutUvarint(head[1:], uint64(len(raw)))
	head = head[:1+n]

	var c lz4.Compressor
	dst := make([]byte, lz4.CompressBlockBound(len(raw)))
	sz, err := c.CompressBlock(raw, dst)
	if err != nil {
		return nil, nil, fmt.Errorf("codec: lz4 compress: %w", err)
	}
	if sz == 0 || sz >= len(raw) {
		head[0] = lz4ModeRaw
		return append(head, raw...), nil, nil
	}
	head[0] = lz4ModeBlock
	return append(head, dst[:sz]...), nil, nil
}

func (LZ4Codec) Decompress(compressed, _ []byte) ([]byte, error) {
	if len(compressed) < 1 {
		return nil, wrapCorrupt("lz4", fmt.Errorf("empty payload"))
	}
	mode := compressed[0]
	rawLen, n := binary.Uvarint(compressed[1:])
	if n <= 0 {
		return nil, wrapCorrupt("lz4", fmt.Errorf("bad length prefix"))
	}
	body := compressed[1+n:]

	switch mode {
	case lz4ModeRaw:
		if uint64(len(body)) != rawLen {
			return nil, wrapCorrupt("lz4", fmt.Errorf("raw body is %d bytes, expected %d", len(body), rawLen))
		}
		out := make([]byte, rawLen)
		copy(out, body)
		return out, nil
	case lz4ModeBlock:
		// The block format cannot expand a byte beyond 255x; a prefix past
		// that is corrupt, not just big, so reject before allocating.
		if rawLen > uint64(len(body))*255 {
			return nil, wrapCorrupt("lz4", fmt.Errorf("length prefix %d exceeds lz4 expansion bound", rawLen))
		}
		out := make([]byte, rawLen)
		sz, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, wrapCorrupt("lz4", err)
		}
		if uint64(sz) != rawLen {
			return nil, wrapCorrupt("lz4", fmt.Errorf("decoded %d bytes, expected %d", sz, rawLen))
		}
		return out, nil
	default:
		return nil, wrapCorrupt("lz4", fmt.Errorf("unknown mode byte %d", mode))
	}
}

func init() {
	Register(LZ4Codec{})
}
