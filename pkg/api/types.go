package api

import (
	"context"

	"github.com/kmorran/ancf/pkg/blockfile"
	"github.com/kmorran/ancf/pkg/format"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ContainerInfo is the /info payload describing the served container.
type ContainerInfo struct {
	Path           string  `json:"path"`
	Version        uint16  `json:"version"`
	CodecID        uint16  `json:"codec_id"`
	Codec          string  `json:"codec"`
	BlockSize      uint32  `json:"block_size"`
	BlockCount     uint64  `json:"block_count"`
	Flags          uint64  `json:"flags"`
	RawSize        uint64  `json:"raw_size"`
	CompressedSize uint64  `json:"compressed_size"`
	Ratio          float64 `json:"ratio"`
}

// BlockInfo is one block's index entry as reported by /blocks.
type BlockInfo struct {
	Index      int    `json:"index"`
	Offset     uint64 `json:"offset"`
	CompLen    uint32 `json:"comp_len"`
	RawLen     uint32 `json:"raw_len"`
	Checksum   uint32 `json:"checksum"`
	SidecarLen uint16 `json:"sidecar_len"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string // empty disables authentication
}

// IBlockReader defines the read operations the gateway serves. It is
// satisfied by *blockfile.Reader.
type IBlockReader interface {
	HeaderInfo() blockfile.HeaderInfo
	NumBlocks() int
	Entries() []format.Entry
	RawSize() uint64
	CompressedSize() uint64
	Ratio() float64
	ReadBlock(i int) ([]byte, error)
	ReadRange(ctx context.Context, start, length uint64) ([]byte, error)
}
