package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kmorran/ancf/pkg/blockfile"
	"github.com/kmorran/ancf/pkg/format"
)

// Server holds the API server state
type Server struct {
	reader  IBlockReader
	path    string
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server serving reads against one container.
func NewServer(reader IBlockReader, path string, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		reader:  reader,
		path:    path,
		config:  config,
		metrics: metrics,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleInfo reports the container header plus derived size statistics.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	h := s.reader.HeaderInfo()
	sendSuccess(w, ContainerInfo{
		Path:           s.path,
		Version:        h.Version,
		CodecID:        h.CodecID,
		Codec:          h.CodecName,
		BlockSize:      h.BlockSize,
		BlockCount:     h.BlockCount,
		Flags:          h.Flags,
		RawSize:        s.reader.RawSize(),
		CompressedSize: s.reader.CompressedSize(),
		Ratio:          s.reader.Ratio(),
	})
}

// handleListBlocks returns the block index as JSON.
func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	entries := s.reader.Entries()
	blocks := make([]BlockInfo, len(entries))
	for i, e := range entries {
		blocks[i] = BlockInfo{
			Index:      i,
			Offset:     e.Offset,
			CompLen:    e.CompLen,
			RawLen:     e.RawLen,
			Checksum:   e.Checksum,
			SidecarLen: e.MetaLen,
		}
	}
	sendSuccess(w, blocks)
}

// handleReadBlock serves one decompressed block as an octet stream.
func (s *Server) handleReadBlock(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.metrics.RecordRead("block", false, 0, time.Since(start))
		sendError(w, "Block index must be an integer", http.StatusBadRequest)
		return
	}

	raw, err := s.reader.ReadBlock(index)
	if err != nil {
		s.metrics.RecordRead("block", false, 0, time.Since(start))
		sendReadError(w, err)
		return
	}

	s.metrics.RecordRead("block", true, len(raw), time.Since(start))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	_, _ = w.Write(raw)
}

// handleReadRange serves the logical byte range [start, start+len) as an
// octet stream, decompressing only the blocks the range touches.
func (s *Server) handleReadRange(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	start, err := parseUintParam(r, "start")
	if err != nil {
		s.metrics.RecordRead("range", false, 0, time.Since(started))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	length, err := parseUintParam(r, "len")
	if err != nil {
		s.metrics.RecordRead("range", false, 0, time.Since(started))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := s.reader.ReadRange(r.Context(), start, length)
	if err != nil {
		s.metrics.RecordRead("range", false, 0, time.Since(started))
		sendReadError(w, err)
		return
	}

	s.metrics.RecordRead("range", true, len(raw), time.Since(started))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	_, _ = w.Write(raw)
}

func parseUintParam(r *http.Request, name string) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing query parameter %q", name)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be a non-negative integer", name)
	}
	return v, nil
}

// sendSuccess wraps data in the JSON response envelope.
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// sendError sends an error JSON response with the given status.
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}

// sendReadError maps read failures onto HTTP statuses: requests outside the
// container are the client's fault, everything else is served as corruption
// or server failure.
func sendReadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, format.ErrOutOfRange):
		sendError(w, err.Error(), http.StatusRequestedRangeNotSatisfiable)
	case errors.Is(err, blockfile.ErrChecksumMismatch), errors.Is(err, blockfile.ErrBlockCorrupt):
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		sendError(w, fmt.Sprintf("Failed to read container: %v", err), http.StatusInternalServerError)
	}
}
