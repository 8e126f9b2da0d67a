package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kmorran/ancf/pkg/blockfile"
	"github.com/kmorran/ancf/pkg/codec"
)

// Metrics register against the default Prometheus registry, so tests share
// one instance.
var testMetrics = NewMetrics()

func testBlocks() [][]byte {
	blocks := make([][]byte, 3)
	for i := range blocks {
		b := make([]byte, 1000+i*100)
		for j := range b {
			b[j] = byte(i*31 + j%251)
		}
		blocks[i] = b
	}
	return blocks
}

func setupTestServer(t *testing.T, config ServerConfig) (http.Handler, [][]byte) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.ancf")
	w, err := blockfile.CreateFile(path, blockfile.Options{CodecID: codec.IDZstd})
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	blocks := testBlocks()
	for _, b := range blocks {
		if _, err := w.WriteBlock(b); err != nil {
			t.Fatalf("Failed to write block: %v", err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Failed to finalize container: %v", err)
	}

	reader, err := blockfile.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open container: %v", err)
	}
	t.Cleanup(func() { reader.Close() })

	server := NewServer(reader, path, config, testMetrics)
	return Router(server), blocks
}

func doRequest(t *testing.T, router http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return response
}

func TestServer_handleHealth(t *testing.T) {
	router, _ := setupTestServer(t, ServerConfig{})

	w := doRequest(t, router, "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if response := decodeResponse(t, w); !response.Success {
		t.Error("Expected success to be true")
	}
}

func TestServer_handleInfo(t *testing.T) {
	router, blocks := setupTestServer(t, ServerConfig{})

	w := doRequest(t, router, "/api/v1/info")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Success bool          `json:"success"`
		Data    ContainerInfo `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	info := response.Data

	if info.Codec != "zstd" {
		t.Errorf("Expected codec zstd, got %q", info.Codec)
	}
	if info.BlockCount != uint64(len(blocks)) {
		t.Errorf("Expected %d blocks, got %d", len(blocks), info.BlockCount)
	}
	var raw uint64
	for _, b := range blocks {
		raw += uint64(len(b))
	}
	if info.RawSize != raw {
		t.Errorf("Expected raw size %d, got %d", raw, info.RawSize)
	}
}

func TestServer_handleListBlocks(t *testing.T) {
	router, blocks := setupTestServer(t, ServerConfig{})

	w := doRequest(t, router, "/api/v1/blocks")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Success bool        `json:"success"`
		Data    []BlockInfo `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Data) != len(blocks) {
		t.Fatalf("Expected %d index entries, got %d", len(blocks), len(response.Data))
	}
	for i, b := range response.Data {
		if b.Index != i {
			t.Errorf("Entry %d reports index %d", i, b.Index)
		}
		if int(b.RawLen) != len(blocks[i]) {
			t.Errorf("Entry %d raw length %d, want %d", i, b.RawLen, len(blocks[i]))
		}
	}
}

func TestServer_handleReadBlock(t *testing.T) {
	router, blocks := setupTestServer(t, ServerConfig{})

	w := doRequest(t, router, "/api/v1/blocks/1")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Expected octet-stream content type, got %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), blocks[1]) {
		t.Error("Served block does not match written block")
	}
}

func TestServer_handleReadBlock_Errors(t *testing.T) {
	router, _ := setupTestServer(t, ServerConfig{})

	if w := doRequest(t, router, "/api/v1/blocks/notanumber"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for non-integer index, got %d", w.Code)
	}
	if w := doRequest(t, router, "/api/v1/blocks/99"); w.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("Expected status 416 for out-of-range index, got %d", w.Code)
	}
}

func TestServer_handleReadRange(t *testing.T) {
	router, blocks := setupTestServer(t, ServerConfig{})

	full := bytes.Join(blocks, nil)

	// A range spanning the block 0 / block 1 boundary.
	w := doRequest(t, router, "/api/v1/range?start=990&len=40")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), full[990:1030]) {
		t.Error("Served range does not match logical payload")
	}
}

func TestServer_handleReadRange_Errors(t *testing.T) {
	router, _ := setupTestServer(t, ServerConfig{})

	cases := []struct {
		url  string
		code int
	}{
		{"/api/v1/range?len=10", http.StatusBadRequest},
		{"/api/v1/range?start=0", http.StatusBadRequest},
		{"/api/v1/range?start=abc&len=10", http.StatusBadRequest},
		{"/api/v1/range?start=0&len=999999999", http.StatusRequestedRangeNotSatisfiable},
	}
	for _, tc := range cases {
		if w := doRequest(t, router, tc.url); w.Code != tc.code {
			t.Errorf("%s: expected status %d, got %d", tc.url, tc.code, w.Code)
		}
	}
}

func TestServer_APIKey(t *testing.T) {
	router, _ := setupTestServer(t, ServerConfig{APIKey: "sekrit"})

	if w := doRequest(t, router, "/api/v1/info"); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/info", nil)
	req.Header.Set("X-API-Key", "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with wrong key, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/info", nil)
	req.Header.Set("X-API-Key", "sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with correct key, got %d", w.Code)
	}
}
