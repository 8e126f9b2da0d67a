// Package format defines the ANCF1 on-disk layout: the fixed file header,
// the per-block index entries, the trailing footer, and the in-memory block
// index built from them.
//
// # File Layout
//
// An ANCF1 file is a header, a run of independently compressed blocks, a
// block index, and a footer:
//
//	[HEADER: 56 bytes]
//	[BLOCK 0] [BLOCK 1] ... [BLOCK N-1]
//	[BLOCK INDEX: 32 bytes x N]
//	[FOOTER: 8 bytes, the u64 LE offset of the block index]
//
// All integers are little-endian.
//
// # Header
//
//	magic[14] | version:u16 | codec_id:u16 | block_size:u32 |
//	block_count:u64 | flags:u64 | reserved (zero through byte 56)
//
// The magic is "ANCF1\n" followed by eight zero bytes. The header is written
// as zeroes when a file is created and rewritten with real values when the
// writer finalizes; block_count is therefore only meaningful on a finalized
// file.
//
// # Block Index Entry
//
//	offset:u64 | comp_len:u32 | raw_len:u32 | checksum:u32 |
//	metadata_len:u16 | pad[10]
//
// offset points at the block's stored region, which is the optional codec
// sidecar (metadata_len bytes) immediately followed by the compressed
// payload (comp_len bytes). checksum is the low 32 bits of xxhash64 over
// that whole stored region.
//
// # Flags
//
// Bits 0-2 are defined (checksum, per-block metadata, columnar). Bits 3-63
// are reserved; a file with any of them set is rejected at parse time so
// that readers never silently ignore a capability they do not implement.
//
// # Block Index
//
// BlockIndex holds the ordered entries plus a cumulative raw-length prefix
// sum, which lets ResolveRange map a logical byte range onto the minimal
// covering run of blocks with a binary search.
package format
