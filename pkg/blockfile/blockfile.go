// Package blockfile writes and reads block-indexed container files. The
// compressed file is the working form: a Reader serves any block, or any
// logical byte range, without decompressing the rest of the file.
package blockfile

import (
	"errors"

	"github.com/cespare/xxhash/v2"
	"github.com/kmorran/ancf/pkg/format"
)

// Errors
var (
	// ErrFinalized is returned when writing to a writer after Finalize.
	ErrFinalized = errors.New("blockfile: writer is finalized")

	// ErrWriterFailed is returned once a write-time error has left the file
	// unfinalized and unusable; the writer does not attempt rollback.
	ErrWriterFailed = errors.New("blockfile: writer failed, file is not usable")

	// ErrNotSeekable is returned when the write target cannot seek; an
	// append-only sink cannot support the header rewrite Finalize needs.
	ErrNotSeekable = errors.New("blockfile: target does not support seeking")

	// ErrChecksumMismatch is returned by ReadBlock when a block's stored
	// bytes fail integrity verification. The error is local to that block;
	// the reader and every other block stay usable.
	ErrChecksumMismatch = errors.New("blockfile: block checksum mismatch")

	// ErrBlockCorrupt is returned when a block decodes to a length other
	// than the one its index entry records.
	ErrBlockCorrupt = errors.New("blockfile: block decoded length mismatch")
)

// Options configure a new container file.
type Options struct {
	// CodecID selects the registered codec every block is encoded with.
	// Default: 0 (identity).
	CodecID uint16

	// BlockSize is the nominal raw bytes per block, used by the io.Writer
	// chunking path. WriteBlock callers may pass any block length they like.
	// Default: 64 KiB.
	BlockSize uint32

	// Flags are the feature flag bits for the header. FlagPerBlockMeta is
	// managed by the writer itself. Default: FlagHasChecksum.
	Flags uint64

	// Concurrency is the number of compression workers. Values above one
	// compress independent blocks in parallel while the file and index are
	// still written in strict submission order. Default: 1 (synchronous).
	Concurrency int

	flagsSet bool
}

// WithFlags returns o with explicit feature flags, allowing checksums to be
// switched off (a zero Flags field is otherwise taken as "use the default").
func (o Options) WithFlags(flags uint64) Options {
	o.Flags = flags
	o.flagsSet = true
	return o
}

func (o Options) norm() Options {
	if o.BlockSize < 1 {
		o.BlockSize = format.DefaultBlockSize
	}
	if !o.flagsSet && o.Flags == 0 {
		o.Flags = format.FlagHasChecksum
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return o
}

// HeaderInfo reports the identifying fields of an open container.
type HeaderInfo struct {
	Version    uint16
	CodecID    uint16
	CodecName  string
	BlockSize  uint32
	BlockCount uint64
	Flags      uint64
}

// checksum32 hashes a block's stored region (sidecar prefix plus compressed
// payload) with xxhash64, keeping the low 32 bits for the index entry.
func checksum32(sidecar, payload []byte) uint32 {
	h := xxhash.New()
	_, _ = h.Write(sidecar)
	_, _ = h.Write(payload)
	return uint32(h.Sum64())
}
