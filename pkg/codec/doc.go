// Package codec provides the pluggable block compression contract for ANCF1
// containers, the id-keyed registry, and the built-in codecs.
//
// # Contract
//
// A Codec compresses and decompresses one block at a time with no state
// shared between blocks; that independence is what makes random access into
// a compressed file possible. Codecs are identified by a small stable
// integer id recorded in the file header, which binds every block of a file
// to one codec.
//
// Compress may return a per-block sidecar blob alongside the compressed
// payload. The sidecar is stored immediately before the payload on disk and
// handed back verbatim on Decompress, so a block never needs state from
// other blocks or a global table to decode.
//
// # Built-in Codecs
//
//	id 0  identity  verbatim storage, baseline and fallback
//	id 1  zstd      general purpose, best ratio (klauspost/compress)
//	id 2  lz4       general purpose, fastest decode (pierrec/lz4)
//	id 3  delta     int64 streams, zigzag-varint deltas
//	id 4  float     float64 streams, XOR residuals + min/max sidecar
//	id 5  bitpack   uint64 streams packed to the block's max bit width
//	id 6  rle       byte run-length encoding
//	id 7  snappy    general purpose, low ratio, cheap (golang/snappy)
//
// Structured codecs (delta, float, bitpack) reject input whose length is not
// a multiple of the element size with ErrDataShape.
//
// # Registration
//
// Built-ins self-register in init. External codecs implement Codec and call
// Register before any file using their id is opened or written:
//
//	codec.Register(myCodec{})
//	c, err := codec.Lookup(42)
//
// Looking up an id with no registration returns ErrUnknownCodec; a reader
// opening a file whose header names such an id must fail the open, since
// the file cannot be interpreted.
//
// # Thread Safety
//
// The registry is safe for concurrent use, and every Codec implementation
// must be stateless and safe to share across goroutines.
package codec
