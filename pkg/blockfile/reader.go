package blockfile

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kmorran/ancf/pkg/codec"
	"github.com/kmorran/ancf/pkg/format"
)

// Reader serves random-access reads over a finalized container. The header,
// footer and full block index are validated once at open; after that every
// block read is a single positioned read plus a decompress, so a Reader is
// safe for concurrent use by multiple goroutines.
type Reader struct {
	ra     io.ReaderAt
	size   int64
	header format.Header
	index  *format.BlockIndex
	codec  codec.Codec

	closer io.Closer // set by OpenFile
}

// Open validates the container held by ra and returns a Reader over it.
// Validation is strict and failure is fatal: a bad magic, an unsupported
// version or codec, reserved bits set, or an index that does not describe
// size bytes all reject the file at open rather than at first read.
func Open(ra io.ReaderAt, size int64) (*Reader, error) {
	if size < format.HeaderSize+format.FooterSize {
		return nil, fmt.Errorf("%w: file of %d bytes is too short", format.ErrMalformedIndex, size)
	}

	headerBuf := make([]byte, format.HeaderSize)
	if _, err := ra.ReadAt(headerBuf, 0); err != nil {
		return nil, fmt.Errorf("blockfile: reading header: %w", err)
	}
	header, err := format.ParseHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	c, err := codec.Lookup(header.CodecID)
	if err != nil {
		return nil, err
	}

	footerBuf := make([]byte, format.FooterSize)
	if _, err := ra.ReadAt(footerBuf, size-format.FooterSize); err != nil {
		return nil, fmt.Errorf("blockfile: reading footer: %w", err)
	}
	indexOffset, err := format.ParseFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	indexEnd := uint64(size - format.FooterSize)
	if indexOffset < format.HeaderSize || indexOffset > indexEnd {
		return nil, fmt.Errorf("%w: index offset %d outside file", format.ErrMalformedIndex, indexOffset)
	}
	indexLen := indexEnd - indexOffset
	if indexLen%format.EntrySize != 0 {
		return nil, fmt.Errorf("%w: index region of %d bytes is not a whole number of entries", format.ErrMalformedIndex, indexLen)
	}

	count := header.BlockCount
	if got := indexLen / format.EntrySize; got != count {
		return nil, fmt.Errorf("%w: header declares %d blocks, index holds %d", format.ErrMalformedIndex, count, got)
	}

	indexBuf := make([]byte, indexLen)
	if _, err := ra.ReadAt(indexBuf, int64(indexOffset)); err != nil {
		return nil, fmt.Errorf("blockfile: reading block index: %w", err)
	}
	index, err := format.ParseBlockIndex(indexBuf, int(count))
	if err != nil {
		return nil, err
	}
	for i := 0; i < index.Len(); i++ {
		e, _ := index.Entry(i)
		if e.Offset < format.HeaderSize || e.Offset+uint64(e.StoredLen()) > indexOffset {
			return nil, fmt.Errorf("%w: block %d extends outside the data region", format.ErrMalformedIndex, i)
		}
	}

	return &Reader{
		ra:     ra,
		size:   size,
		header: header,
		index:  index,
		codec:  c,
	}, nil
}

// OpenFile opens the container at path. Close releases the file handle.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := Open(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// HeaderInfo reports the container's identity fields.
func (r *Reader) HeaderInfo() HeaderInfo {
	return HeaderInfo{
		Version:    r.header.Version,
		CodecID:    r.header.CodecID,
		CodecName:  r.codec.Name(),
		BlockSize:  r.header.BlockSize,
		BlockCount: r.header.BlockCount,
		Flags:      r.header.Flags,
	}
}

// NumBlocks returns the number of blocks in the container.
func (r *Reader) NumBlocks() int { return r.index.Len() }

// Entries returns the block index entries in block order.
func (r *Reader) Entries() []format.Entry { return r.index.Entries() }

// RawSize returns the total uncompressed size of the container's payload.
func (r *Reader) RawSize() uint64 { return r.index.RawSize() }

// CompressedSize returns the total stored size of all blocks, sidecars
// included.
func (r *Reader) CompressedSize() uint64 { return r.index.CompressedSize() }

// Ratio returns compressed size over raw size, or 0 for an empty container.
func (r *Reader) Ratio() float64 {
	raw := r.RawSize()
	if raw == 0 {
		return 0
	}
	return float64(r.CompressedSize()) / float64(raw)
}

// ReadBlock decompresses block i and returns its raw bytes. The stored
// region is fetched in one positioned read; the checksum (when the container
// carries them) and the decoded length are both verified before the bytes
// are returned, so corruption in one block is reported on that block alone.
func (r *Reader) ReadBlock(i int) ([]byte, error) {
	e, err := r.index.Entry(i)
	if err != nil {
		return nil, err
	}

	stored := make([]byte, e.StoredLen())
	if _, err := r.ra.ReadAt(stored, int64(e.Offset)); err != nil {
		return nil, fmt.Errorf("blockfile: reading block %d: %w", i, err)
	}
	sidecar := stored[:e.MetaLen]
	payload := stored[e.MetaLen:]

	if r.header.HasFlag(format.FlagHasChecksum) {
		if got := checksum32(sidecar, payload); got != e.Checksum {
			return nil, fmt.Errorf("%w: block %d: stored %08x, computed %08x", ErrChecksumMismatch, i, e.Checksum, got)
		}
	}

	raw, err := r.codec.Decompress(payload, sidecar)
	if err != nil {
		return nil, fmt.Errorf("%w: block %d: %v", ErrBlockCorrupt, i, err)
	}
	if uint32(len(raw)) != e.RawLen {
		return nil, fmt.Errorf("%w: block %d: decoded %d bytes, index says %d", ErrBlockCorrupt, i, len(raw), e.RawLen)
	}
	return raw, nil
}

// ReadRange returns length raw bytes starting at the uncompressed offset
// start, touching only the blocks the range intersects. Cancellation is
// checked between blocks, never mid-block.
func (r *Reader) ReadRange(ctx context.Context, start, length uint64) ([]byte, error) {
	if length == 0 {
		if start > r.RawSize() {
			return nil, fmt.Errorf("%w: offset %d beyond end %d", format.ErrOutOfRange, start, r.RawSize())
		}
		return []byte{}, nil
	}

	first, last, err := r.index.ResolveRange(start, length)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, length)
	for i := first; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := r.ReadBlock(i)
		if err != nil {
			return nil, err
		}
		blockStart := r.index.BlockStart(i)
		lo := uint64(0)
		if start > blockStart {
			lo = start - blockStart
		}
		hi := uint64(len(raw))
		if end := start + length; end < blockStart+hi {
			hi = end - blockStart
		}
		out = append(out, raw[lo:hi]...)
	}
	return out, nil
}

// Close releases the underlying file when the Reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
