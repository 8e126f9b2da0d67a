package format

import (
	"fmt"
	"sort"
)

// BlockIndex is the ordered collection of block entries for one file. It is
// built once, either progressively by a writer or from the serialized index
// by a reader, and is never mutated afterwards; readers may share it freely
// across goroutines.
type BlockIndex struct {
	entries []Entry
	// cum[i] is the total raw length of blocks 0..i-1, so cum[len(entries)]
	// is the logical payload size. Kept in sync by Append.
	cum []uint64
}

// NewBlockIndex returns an empty index with room for n entries.
func NewBlockIndex(n int) *BlockIndex {
	return &BlockIndex{
		entries: make([]Entry, 0, n),
		cum:     append(make([]uint64, 0, n+1), 0),
	}
}

// Append records the next block entry. Entries must be appended in block
// order; offsets must not move backwards or overlap the previous entry.
func (x *BlockIndex) Append(e Entry) error {
	if n := len(x.entries); n > 0 {
		prev := x.entries[n-1]
		if e.Offset < prev.Offset+uint64(prev.StoredLen()) {
			return fmt.Errorf("%w: entry %d offset %d overlaps previous block", ErrMalformedIndex, n, e.Offset)
		}
	}
	x.entries = append(x.entries, e)
	x.cum = append(x.cum, x.cum[len(x.cum)-1]+uint64(e.RawLen))
	return nil
}

// Len returns the number of entries.
func (x *BlockIndex) Len() int { return len(x.entries) }

// Entry returns the i-th entry, bounds-checked.
func (x *BlockIndex) Entry(i int) (Entry, error) {
	if i < 0 || i >= len(x.entries) {
		return Entry{}, fmt.Errorf("%w: block %d of %d", ErrOutOfRange, i, len(x.entries))
	}
	return x.entries[i], nil
}

// Entries exposes the underlying slice for inspection. Callers must not
// modify it.
func (x *BlockIndex) Entries() []Entry { return x.entries }

// RawSize returns the total decoded payload size of all blocks.
func (x *BlockIndex) RawSize() uint64 { return x.cum[len(x.cum)-1] }

// CompressedSize returns the total stored size of all blocks, sidecars
// included, excluding header, index and footer.
func (x *BlockIndex) CompressedSize() uint64 {
	var n uint64
	for _, e := range x.entries {
		n += uint64(e.StoredLen())
	}
	return n
}

// BlockStart returns the logical byte offset at which block i begins.
func (x *BlockIndex) BlockStart(i int) uint64 { return x.cum[i] }

// ResolveRange returns the half-open interval [first, last+1) of block
// indices whose raw spans cover the logical byte range [start, start+length).
// Resolution is a binary search over the raw-length prefix sums; a range that
// sits inside one block resolves to exactly that block.
func (x *BlockIndex) ResolveRange(start, length uint64) (first, last int, err error) {
	if length == 0 {
		return 0, -1, fmt.Errorf("%w: empty range", ErrOutOfRange)
	}
	total := x.RawSize()
	// length > total first, so start > total-length cannot wrap around.
	if length > total || start > total-length {
		return 0, 0, fmt.Errorf("%w: range of %d bytes at %d beyond payload size %d", ErrOutOfRange, length, start, total)
	}
	end := start + length

	// First block whose span extends past start.
	first = sort.Search(len(x.entries), func(i int) bool {
		return x.cum[i+1] > start
	})
	// First block whose span reaches end; the range's last block.
	last = sort.Search(len(x.entries), func(i int) bool {
		return x.cum[i+1] >= end
	})
	return first, last, nil
}

// MarshalBinary serializes the index as Len() consecutive EntrySize records.
func (x *BlockIndex) MarshalBinary() []byte {
	buf := make([]byte, 0, len(x.entries)*EntrySize)
	for _, e := range x.entries {
		buf = append(buf, e.MarshalBinary()...)
	}
	return buf
}

// ParseBlockIndex reconstructs an index from its serialized form and derives
// the prefix sums. The buffer must hold exactly count entries.
func ParseBlockIndex(buf []byte, count int) (*BlockIndex, error) {
	if len(buf) != count*EntrySize {
		return nil, fmt.Errorf("%w: %d bytes for %d entries", ErrMalformedIndex, len(buf), count)
	}
	x := NewBlockIndex(count)
	for i := 0; i < count; i++ {
		e, err := ParseEntry(buf[i*EntrySize : (i+1)*EntrySize])
		if err != nil {
			return nil, err
		}
		if err := x.Append(e); err != nil {
			return nil, err
		}
	}
	return x, nil
}
