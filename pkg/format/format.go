package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic identifies an ANCF1 container: the ASCII tag, a newline, and eight
// zero bytes that double as a version-0 marker.
var Magic = [14]byte{'A', 'N', 'C', 'F', '1', '\n', 0, 0, 0, 0, 0, 0, 0, 0}

const (
	// Version is the only on-disk format version this package understands.
	Version uint16 = 1

	// HeaderSize is the fixed size of the file header in bytes:
	// magic[14] + version(2) + codec_id(2) + block_size(4) +
	// block_count(8) + flags(8) + reserved.
	HeaderSize = 56

	// EntrySize is the fixed size of one block index entry in bytes:
	// offset(8) + comp_len(4) + raw_len(4) + checksum(4) +
	// metadata_len(2) + pad(10).
	EntrySize = 32

	// FooterSize is the size of the trailing index-offset footer in bytes.
	FooterSize = 8

	// DefaultBlockSize is the nominal raw bytes per block: 64 KiB.
	DefaultBlockSize uint32 = 64 * 1024
)

// Feature flags stored in the header. Bits 3..63 are reserved and must be
// zero; a file with an unknown bit set is rejected rather than misread.
const (
	FlagHasChecksum  uint64 = 1 << 0
	FlagPerBlockMeta uint64 = 1 << 1
	FlagIsColumnar   uint64 = 1 << 2

	knownFlags = FlagHasChecksum | FlagPerBlockMeta | FlagIsColumnar
)

// Errors
var (
	ErrBadMagic           = errors.New("format: bad magic byte sequence")
	ErrUnsupportedVersion = errors.New("format: unsupported format version")
	ErrReservedBytes      = errors.New("format: reserved header bytes are not zero")
	ErrUnknownFlags       = errors.New("format: unknown feature flag bits set")
	ErrMalformedIndex     = errors.New("format: malformed block index")
	ErrOutOfRange         = errors.New("format: out of range")
)

// Header is the decoded representation of the fixed file header. BlockCount
// is only meaningful after the file has been finalized; until then the
// on-disk header is all zeroes.
type Header struct {
	Version    uint16
	CodecID    uint16
	BlockSize  uint32
	BlockCount uint64
	Flags      uint64
}

// HasFlag reports whether the given feature flag bit is set.
func (h Header) HasFlag(flag uint64) bool {
	return h.Flags&flag != 0
}

// MarshalBinary serializes the header to exactly HeaderSize bytes.
func (h Header) MarshalBinary() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:14], Magic[:])
	binary.LittleEndian.PutUint16(buf[14:16], h.Version)
	binary.LittleEndian.PutUint16(buf[16:18], h.CodecID)
	binary.LittleEndian.PutUint32(buf[18:22], h.BlockSize)
	binary.LittleEndian.PutUint64(buf[22:30], h.BlockCount)
	binary.LittleEndian.PutUint64(buf[30:38], h.Flags)
	// reserved bytes stay zero
	return buf
}

// ParseHeader decodes and validates a HeaderSize-byte buffer. It fails if the
// magic or version mismatch, if reserved bytes are nonzero, or if flag bits
// outside the known set are on.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header truncated at %d bytes", ErrBadMagic, len(buf))
	}
	if string(buf[0:14]) != string(Magic[:]) {
		return Header{}, ErrBadMagic
	}

	h := Header{
		Version:    binary.LittleEndian.Uint16(buf[14:16]),
		CodecID:    binary.LittleEndian.Uint16(buf[16:18]),
		BlockSize:  binary.LittleEndian.Uint32(buf[18:22]),
		BlockCount: binary.LittleEndian.Uint64(buf[22:30]),
		Flags:      binary.LittleEndian.Uint64(buf[30:38]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, h.Version)
	}
	for i := 38; i < HeaderSize; i++ {
		if buf[i] != 0 {
			return Header{}, ErrReservedBytes
		}
	}
	if h.Flags&^knownFlags != 0 {
		return Header{}, fmt.Errorf("%w: flags=0x%016x", ErrUnknownFlags, h.Flags)
	}
	return h, nil
}

// Entry locates and describes a single stored block.
type Entry struct {
	// Offset is the absolute byte offset of the block's stored region,
	// including the sidecar prefix when present.
	Offset uint64
	// CompLen is the compressed payload length, excluding the sidecar.
	CompLen uint32
	// RawLen is the decoded length of the block.
	RawLen uint32
	// Checksum is the low 32 bits of xxhash64 over the stored region.
	Checksum uint32
	// MetaLen is the length of the codec sidecar written before the payload.
	MetaLen uint16
}

// StoredLen returns the total bytes the block occupies on disk.
func (e Entry) StoredLen() uint32 {
	return uint32(e.MetaLen) + e.CompLen
}

// MarshalBinary serializes the entry to exactly EntrySize bytes.
func (e Entry) MarshalBinary() []byte {
	buf := make([]byte, EntrySize)
	binary.LittleEndian.PutUint64(buf[0:8], e.Offset)
	binary.LittleEndian.PutUint32(buf[8:12], e.CompLen)
	binary.LittleEndian.PutUint32(buf[12:16], e.RawLen)
	binary.LittleEndian.PutUint32(buf[16:20], e.Checksum)
	binary.LittleEndian.PutUint16(buf[20:22], e.MetaLen)
	// pad bytes stay zero
	return buf
}

// ParseEntry decodes an EntrySize-byte buffer.
func ParseEntry(buf []byte) (Entry, error) {
	if len(buf) < EntrySize {
		return Entry{}, fmt.Errorf("%w: entry truncated at %d bytes", ErrMalformedIndex, len(buf))
	}
	return Entry{
		Offset:   binary.LittleEndian.Uint64(buf[0:8]),
		CompLen:  binary.LittleEndian.Uint32(buf[8:12]),
		RawLen:   binary.LittleEndian.Uint32(buf[12:16]),
		Checksum: binary.LittleEndian.Uint32(buf[16:20]),
		MetaLen:  binary.LittleEndian.Uint16(buf[20:22]),
	}, nil
}

// MarshalFooter serializes the index-offset footer.
func MarshalFooter(indexOffset uint64) []byte {
	buf := make([]byte, FooterSize)
	binary.LittleEndian.PutUint64(buf, indexOffset)
	return buf
}

// ParseFooter decodes the index-offset footer.
func ParseFooter(buf []byte) (uint64, error) {
	if len(buf) < FooterSize {
		return 0, fmt.Errorf("%w: footer truncated at %d bytes", ErrMalformedIndex, len(buf))
	}
	return binary.LittleEndian.Uint64(buf[:FooterSize]), nil
}
