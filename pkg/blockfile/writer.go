package blockfile

import (
	"fmt"
	"io"
	"os"

	"github.com/segmentio/ksuid"

	"github.com/kmorran/ancf/pkg/codec"
	"github.com/kmorran/ancf/pkg/format"
)

// Writer produces a container file block by block. Payloads are accepted in
// order, compressed by the configured codec (optionally across several
// workers) and appended at a single monotonic write cursor; Finalize seals
// the file by appending the block index and footer and rewriting the header
// with the totals that were unknown at create time.
//
// A Writer is not safe for concurrent use; there is exactly one writer
// session per target.
type Writer struct {
	ws    io.WriteSeeker
	opts  Options
	codec codec.Codec
	index *format.BlockIndex

	offset    uint64 // current write cursor, mirrors the stream position
	pending   []byte // buffered raw bytes for the io.Writer chunking path
	submitted int    // blocks accepted so far, parallel path included

	pipe *pipeline // nil when Concurrency == 1

	finalized bool
	err       error // sticky; any write-time failure poisons the session

	// set by CreateFile for atomic publication
	file      *os.File
	tmpPath   string
	finalPath string
}

// Create starts a new container on ws, which must be positioned at the start
// of an empty target. Targets that cannot seek are rejected immediately:
// finalization has to rewrite the header region, which a pure append sink
// cannot do. A placeholder header is written so block offsets are final from
// the first write.
func Create(ws io.WriteSeeker, opts Options) (*Writer, error) {
	opts = opts.norm()

	c, err := codec.Lookup(opts.CodecID)
	if err != nil {
		return nil, err
	}
	if opts.Flags&^(format.FlagHasChecksum|format.FlagPerBlockMeta) != 0 {
		return nil, fmt.Errorf("%w: flags=0x%016x", format.ErrUnknownFlags, opts.Flags)
	}
	if _, err := ws.Seek(0, io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSeekable, err)
	}

	// Placeholder header, overwritten in Finalize once totals are known.
	if _, err := ws.Write(make([]byte, format.HeaderSize)); err != nil {
		return nil, fmt.Errorf("blockfile: writing placeholder header: %w", err)
	}

	w := &Writer{
		ws:     ws,
		opts:   opts,
		codec:  c,
		index:  format.NewBlockIndex(64),
		offset: format.HeaderSize,
	}
	if opts.Concurrency > 1 {
		w.pipe = newPipeline(w, opts.Concurrency)
	}
	return w, nil
}

// CreateFile starts a new container at path, writing through a uniquely
// named temporary file in the same directory. The file is renamed into place
// only after Finalize succeeds, so a crash or write error never leaves a
// partial container at path.
func CreateFile(path string, opts Options) (*Writer, error) {
	tmp := fmt.Sprintf("%s.tmp-%s", path, ksuid.New().String())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	w, err := Create(f, opts)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}
	w.file = f
	w.tmpPath = tmp
	w.finalPath = path
	return w, nil
}

// WriteBlock compresses raw as one independent block and appends it,
// returning the block's index. With parallel compression enabled the write
// happens asynchronously; the returned index is still assigned here, in
// submission order, and any failure surfaces on a later call or on Finalize.
func (w *Writer) WriteBlock(raw []byte) (int, error) {
	if err := w.writable(); err != nil {
		return 0, err
	}

	idx := w.submitted
	w.submitted++

	if w.pipe != nil {
		w.pipe.submit(raw)
		return idx, nil
	}
	if err := w.appendBlock(raw); err != nil {
		w.fail(err)
		return 0, err
	}
	return idx, nil
}

// Write buffers p and flushes whole BlockSize blocks as they fill up,
// implementing io.Writer for streaming producers. A trailing partial block
// is flushed by Finalize.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.writable(); err != nil {
		return 0, err
	}

	w.pending = append(w.pending, p...)
	bs := int(w.opts.BlockSize)
	for len(w.pending) >= bs {
		raw := make([]byte, bs)
		copy(raw, w.pending[:bs])
		w.pending = w.pending[bs:]
		if _, err := w.WriteBlock(raw); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Finalize flushes any buffered partial block, waits for in-flight
// compressions, appends the serialized block index and the footer, and
// rewrites the header with the final block count and flags. The writer
// accepts no blocks afterwards. When the writer was opened with CreateFile,
// a successful Finalize also publishes the file at its final path.
func (w *Writer) Finalize() error {
	if err := w.writable(); err != nil {
		return err
	}

	if len(w.pending) > 0 {
		raw := w.pending
		w.pending = nil
		if _, err := w.WriteBlock(raw); err != nil {
			return err
		}
	}
	if w.pipe != nil {
		if err := w.pipe.wait(); err != nil {
			w.fail(err)
			return err
		}
	}

	indexOffset := w.offset
	if _, err := w.ws.Write(w.index.MarshalBinary()); err != nil {
		w.fail(err)
		return fmt.Errorf("blockfile: writing block index: %w", err)
	}
	if _, err := w.ws.Write(format.MarshalFooter(indexOffset)); err != nil {
		w.fail(err)
		return fmt.Errorf("blockfile: writing footer: %w", err)
	}

	flags := w.opts.Flags
	for _, e := range w.index.Entries() {
		if e.MetaLen > 0 {
			flags |= format.FlagPerBlockMeta
			break
		}
	}
	header := format.Header{
		Version:    format.Version,
		CodecID:    w.codec.ID(),
		BlockSize:  w.opts.BlockSize,
		BlockCount: uint64(w.index.Len()),
		Flags:      flags,
	}
	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		w.fail(err)
		return fmt.Errorf("blockfile: seeking to header: %w", err)
	}
	if _, err := w.ws.Write(header.MarshalBinary()); err != nil {
		w.fail(err)
		return fmt.Errorf("blockfile: rewriting header: %w", err)
	}

	w.finalized = true

	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			w.fail(err)
			return err
		}
		if err := w.file.Close(); err != nil {
			w.fail(err)
			return err
		}
		if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
			w.fail(err)
			return err
		}
	}
	return nil
}

// Abort discards an unfinalized writer. For CreateFile writers the temporary
// file is removed; nothing is ever published at the final path.
func (w *Writer) Abort() error {
	if w.finalized {
		return ErrFinalized
	}
	w.fail(ErrWriterFailed)
	if w.pipe != nil {
		_ = w.pipe.wait()
	}
	if w.file != nil {
		_ = w.file.Close()
		return os.Remove(w.tmpPath)
	}
	return nil
}

// NumBlocks returns the number of blocks accepted so far.
func (w *Writer) NumBlocks() int { return w.submitted }

func (w *Writer) writable() error {
	if w.finalized {
		return ErrFinalized
	}
	if w.err != nil {
		return fmt.Errorf("%w: %v", ErrWriterFailed, w.err)
	}
	if w.pipe != nil {
		if err := w.pipe.firstErr(); err != nil {
			w.fail(err)
			return fmt.Errorf("%w: %v", ErrWriterFailed, err)
		}
	}
	return nil
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// appendBlock runs the synchronous path: compress, checksum, append, index.
func (w *Writer) appendBlock(raw []byte) error {
	compressed, sidecar, err := w.codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("blockfile: compressing block %d: %w", w.index.Len(), err)
	}
	return w.appendEncoded(raw, compressed, sidecar)
}

// appendEncoded appends an already compressed block at the current cursor
// and records its index entry. Both paths funnel through here, so block
// layout and numbering stay strictly positional.
func (w *Writer) appendEncoded(raw, compressed, sidecar []byte) error {
	entry := format.Entry{
		Offset:  w.offset,
		CompLen: uint32(len(compressed)),
		RawLen:  uint32(len(raw)),
		MetaLen: uint16(len(sidecar)),
	}
	if w.opts.Flags&format.FlagHasChecksum != 0 {
		entry.Checksum = checksum32(sidecar, compressed)
	}

	if len(sidecar) > 0 {
		if _, err := w.ws.Write(sidecar); err != nil {
			return fmt.Errorf("blockfile: writing block sidecar: %w", err)
		}
	}
	if _, err := w.ws.Write(compressed); err != nil {
		return fmt.Errorf("blockfile: writing block payload: %w", err)
	}
	w.offset += uint64(entry.StoredLen())

	return w.index.Append(entry)
}
