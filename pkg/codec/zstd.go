package codec

import (
	"github.com/klauspost/compress/zstd"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// ZstdCodec compresses each block as an independent zstd frame. Good default
// for text, JSON, logs and mixed structured data.
type ZstdCodec struct{}

func (ZstdCodec) ID() uint16   { return IDZstd }
func (ZstdCodec) Name() string { return "zstd" }

func (ZstdCodec) Compress(raw []byte) ([]byte, []byte, error) {
	return zstdEncoder.EncodeAll(raw, nil), nil, nil
}

func (ZstdCodec) Decompress(compressed, _ []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, wrapCorrupt("zstd", err)
	}
	return out, nil
}

func init() {
	Register(ZstdCodec{})
}
