package codec

import (
	"errors"
	"fmt"
	"sync"
)

// Stable codec IDs stored in the file header.
const (
	IDIdentity uint16 = 0
	IDZstd     uint16 = 1
	IDLZ4      uint16 = 2
	IDDelta    uint16 = 3
	IDFloat    uint16 = 4
	IDBitPack  uint16 = 5
	IDRLE      uint16 = 6
	IDSnappy   uint16 = 7
)

// Errors
var (
	// ErrUnknownCodec is returned by Lookup for an unregistered id. A reader
	// that hits this while opening a file must treat it as fatal: the file
	// cannot be interpreted.
	ErrUnknownCodec = errors.New("codec: unknown codec id")

	// ErrDataShape is returned by structured codecs when the input length
	// does not fit the codec's element size.
	ErrDataShape = errors.New("codec: input does not fit codec element size")

	// ErrCorruptPayload is returned when a compressed payload cannot be
	// decoded back to its raw form.
	ErrCorruptPayload = errors.New("codec: corrupt compressed payload")
)

// Codec compresses and decompresses individual blocks. Implementations must
// be stateless and safe for concurrent use, and must handle every block
// independently: no cross-block state is permitted, since that is the
// invariant that makes random access possible.
//
// Compress may emit a per-block sidecar (for example a float min/max pair)
// that is stored in front of the compressed payload and handed back verbatim
// to Decompress; codecs without per-block metadata return a nil sidecar.
// Decompress must be deterministic and total for any bytes the matching
// Compress produced.
type Codec interface {
	// ID is the stable numeric identifier stored in the file header.
	ID() uint16
	// Name is the human-readable codec name for CLI display.
	Name() string
	Compress(raw []byte) (compressed, sidecar []byte, err error)
	Decompress(compressed, sidecar []byte) ([]byte, error)
}

func wrapCorrupt(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptPayload, name, err)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[uint16]Codec)
)

// Register makes a codec available under its ID, replacing any previous
// registration. External codecs must be registered before a file using their
// id is opened or written.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.ID()] = c
}

// Lookup resolves a codec from its on-disk id.
func Lookup(id uint16) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if c, ok := registry[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, id)
}

// ByName resolves a registered codec from its display name.
func ByName(name string) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, c := range registry {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("codec: no codec named %q", name)
}

// Names lists the display names of all registered codecs.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for _, c := range registry {
		names = append(names, c.Name())
	}
	return names
}
