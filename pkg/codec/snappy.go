package codec

import (
	"github.com/golang/snappy"
)

// SnappyCodec compresses blocks with snappy: low ratio, very fast decode.
type SnappyCodec struct{}

func (SnappyCodec) ID() uint16   { return IDSnappy }
func (SnappyCodec) Name() string { return "snappy" }

func (SnappyCodec) Compress(raw []byte) ([]byte, []byte, error) {
	return snappy.Encode(nil, raw), nil, nil
}

func (SnappyCodec) Decompress(compressed, _ []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, wrapCorrupt("snappy", err)
	}
	return out, nil
}

func init() {
	Register(SnappyCodec{})
}
