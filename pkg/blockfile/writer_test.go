package blockfile_test

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorran/ancf/pkg/blockfile"
	"github.com/kmorran/ancf/pkg/codec"
	"github.com/kmorran/ancf/pkg/format"
)

// memFile is an in-memory io.WriteSeeker / io.ReaderAt standing in for a
// real file in tests.
type memFile struct {
	buf []byte
	pos int64
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + int64(len(p)); end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:], p)
	m.pos += int64(len(p))
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.buf)) + offset
	}
	if m.pos < 0 {
		return 0, fmt.Errorf("negative seek position %d", m.pos)
	}
	return m.pos, nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) size() int64 { return int64(len(m.buf)) }

type noSeek struct{ memFile }

func (n *noSeek) Seek(int64, int) (int64, error) {
	return 0, errors.New("pipe does not support seeking")
}

// pattern fills n bytes with a deterministic byte sequence keyed by seed.
func pattern(seed byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i%251)
	}
	return out
}

// int64Payload encodes n little-endian int64 values stepping by delta.
func int64Payload(n int, delta int64) []byte {
	out := make([]byte, n*8)
	v := int64(1000)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
		v += delta
	}
	return out
}

// floatPayload encodes n little-endian float64 samples of a slow ramp.
func floatPayload(n int) []byte {
	out := make([]byte, n*8)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(20.0+0.25*float64(i)))
	}
	return out
}

// smallUintPayload encodes n little-endian uint64 values below 1024.
func smallUintPayload(n int) []byte {
	out := make([]byte, n*8)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(i%1024))
	}
	return out
}

// build writes blocks into an in-memory container and finalizes it.
func build(t *testing.T, opts blockfile.Options, blocks ...[]byte) *memFile {
	t.Helper()
	mf := &memFile{}
	w, err := blockfile.Create(mf, opts)
	require.NoError(t, err)
	for i, b := range blocks {
		idx, err := w.WriteBlock(b)
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
	require.NoError(t, w.Finalize())
	return mf
}

func TestWriter_RoundTripAllCodecs(t *testing.T) {
	inputs := map[uint16][][]byte{
		codec.IDIdentity: {pattern(1, 1000), pattern(7, 333)},
		codec.IDZstd:     {pattern(1, 65536), pattern(9, 100)},
		codec.IDLZ4:      {pattern(2, 65536), pattern(3, 17)},
		codec.IDSnappy:   {pattern(4, 4096), pattern(5, 1)},
		codec.IDRLE:      {pattern(0, 2048), {9, 9, 9, 9}},
		codec.IDDelta:    {int64Payload(100, 4), int64Payload(512, -3)},
		codec.IDFloat:    {floatPayload(256)},
		codec.IDBitPack:  {smallUintPayload(128)},
	}

	for id, blocks := range inputs {
		c, err := codec.Lookup(id)
		require.NoError(t, err)
		t.Run(c.Name(), func(t *testing.T) {
			mf := build(t, blockfile.Options{CodecID: id}, blocks...)

			r, err := blockfile.Open(mf, mf.size())
			require.NoError(t, err)
			require.Equal(t, len(blocks), r.NumBlocks())
			for i, want := range blocks {
				got, err := r.ReadBlock(i)
				require.NoError(t, err)
				assert.Equal(t, want, got, "block %d", i)
			}
		})
	}
}

func TestWriter_HeaderFields(t *testing.T) {
	mf := build(t, blockfile.Options{CodecID: codec.IDZstd, BlockSize: 4096},
		pattern(1, 4096), pattern(2, 100))

	r, err := blockfile.Open(mf, mf.size())
	require.NoError(t, err)

	info := r.HeaderInfo()
	assert.Equal(t, uint16(format.Version), info.Version)
	assert.Equal(t, codec.IDZstd, info.CodecID)
	assert.Equal(t, "zstd", info.CodecName)
	assert.Equal(t, uint32(4096), info.BlockSize)
	assert.Equal(t, uint64(2), info.BlockCount)
	assert.Equal(t, format.FlagHasChecksum, info.Flags&format.FlagHasChecksum)
}

func TestWriter_ChunkedStreaming(t *testing.T) {
	data := pattern(11, 150000)

	mf := &memFile{}
	w, err := blockfile.Create(mf, blockfile.Options{CodecID: codec.IDZstd, BlockSize: 65536})
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Finalize())

	r, err := blockfile.Open(mf, mf.size())
	require.NoError(t, err)
	require.Equal(t, 3, r.NumBlocks())

	entries := r.Entries()
	assert.Equal(t, uint32(65536), entries[0].RawLen)
	assert.Equal(t, uint32(65536), entries[1].RawLen)
	assert.Equal(t, uint32(150000-2*65536), entries[2].RawLen)

	got, err := r.ReadRange(context.Background(), 0, uint64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriter_ParallelPreservesOrder(t *testing.T) {
	const n = 32
	blocks := make([][]byte, n)
	for i := range blocks {
		blocks[i] = pattern(byte(i), 1000+i*37)
	}

	mf := &memFile{}
	w, err := blockfile.Create(mf, blockfile.Options{CodecID: codec.IDZstd, Concurrency: 4})
	require.NoError(t, err)
	for i, b := range blocks {
		idx, err := w.WriteBlock(b)
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
	require.NoError(t, w.Finalize())

	r, err := blockfile.Open(mf, mf.size())
	require.NoError(t, err)
	require.Equal(t, n, r.NumBlocks())

	var prevEnd uint64 = format.HeaderSize
	for i, want := range blocks {
		got, err := r.ReadBlock(i)
		require.NoError(t, err)
		assert.Equal(t, want, got, "block %d", i)

		e := r.Entries()[i]
		assert.Equal(t, prevEnd, e.Offset, "block %d offset", i)
		prevEnd = e.Offset + uint64(e.StoredLen())
	}
}

func TestWriter_ParallelCallerReusesBuffer(t *testing.T) {
	const n = 16
	want := make([][]byte, n)

	mf := &memFile{}
	w, err := blockfile.Create(mf, blockfile.Options{CodecID: codec.IDZstd, Concurrency: 4})
	require.NoError(t, err)

	// One shared buffer, rewritten before every WriteBlock.
	buf := make([]byte, 4096)
	for i := 0; i < n; i++ {
		copy(buf, pattern(byte(i), len(buf)))
		want[i] = pattern(byte(i), len(buf))
		_, err := w.WriteBlock(buf)
		require.NoError(t, err)
	}
	require.NoError(t, w.Finalize())

	r, err := blockfile.Open(mf, mf.size())
	require.NoError(t, err)
	for i := range want {
		got, err := r.ReadBlock(i)
		require.NoError(t, err)
		assert.Equal(t, want[i], got, "block %d", i)
	}
}

func TestWriter_FinalizedRejectsWrites(t *testing.T) {
	mf := &memFile{}
	w, err := blockfile.Create(mf, blockfile.Options{})
	require.NoError(t, err)
	_, err = w.WriteBlock(pattern(1, 10))
	require.NoError(t, err)
	require.NoError(t, w.Finalize())

	_, err = w.WriteBlock(pattern(2, 10))
	assert.ErrorIs(t, err, blockfile.ErrFinalized)
	_, err = w.Write(pattern(2, 10))
	assert.ErrorIs(t, err, blockfile.ErrFinalized)
	assert.ErrorIs(t, w.Finalize(), blockfile.ErrFinalized)
}

func TestWriter_RejectsNonSeekableTarget(t *testing.T) {
	_, err := blockfile.Create(&noSeek{}, blockfile.Options{})
	assert.ErrorIs(t, err, blockfile.ErrNotSeekable)
}

func TestWriter_RejectsUnknownCodec(t *testing.T) {
	_, err := blockfile.Create(&memFile{}, blockfile.Options{CodecID: 999})
	assert.ErrorIs(t, err, codec.ErrUnknownCodec)
}

func TestWriter_EmptyContainer(t *testing.T) {
	mf := build(t, blockfile.Options{})

	r, err := blockfile.Open(mf, mf.size())
	require.NoError(t, err)
	assert.Equal(t, 0, r.NumBlocks())
	assert.Equal(t, uint64(0), r.RawSize())

	_, err = r.ReadBlock(0)
	assert.ErrorIs(t, err, format.ErrOutOfRange)
}

func TestCreateFile_PublishesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.ancf")

	w, err := blockfile.CreateFile(path, blockfile.Options{CodecID: codec.IDZstd})
	require.NoError(t, err)
	_, err = w.WriteBlock(pattern(3, 2000))
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should not exist before Finalize")

	require.NoError(t, w.Finalize())

	r, err := blockfile.OpenFile(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.ReadBlock(0)
	require.NoError(t, err)
	assert.Equal(t, pattern(3, 2000), got)
}

func TestCreateFile_AbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.ancf")

	w, err := blockfile.CreateFile(path, blockfile.Options{})
	require.NoError(t, err)
	_, err = w.WriteBlock(pattern(1, 100))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	leftovers, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
