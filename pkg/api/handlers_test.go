package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/tlvinfo/pkg/eeprom"
	"github.com/ssargent/tlvinfo/pkg/storage"
	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

const testAPIKey = "test-key"

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func setupTestServer(t *testing.T, backend storage.Backend) http.Handler {
	t.Helper()
	session := eeprom.NewSession(backend)
	server := NewServer(session, backend, ServerConfig{APIKey: testAPIKey}, NewMetrics(), zerolog.Nop())
	return NewRouter(server)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func TestServer_RequiresAPIKey(t *testing.T) {
	h := setupTestServer(t, storage.NewMemoryBackend(2))

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, "GET", "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, w).Data["status"])
}

func TestServer_Codes(t *testing.T) {
	h := setupTestServer(t, storage.NewMemoryBackend(2))

	w := do(t, h, "GET", "/api/v1/codes", "")
	require.Equal(t, http.StatusOK, w.Code)
	codes := decode[[]CodeView](t, w).Data
	require.Len(t, codes, len(tlvinfo.CodeList()))
	assert.Equal(t, CodeView{Code: 0x21, Name: "Product Name"}, codes[0])
}

func TestServer_Devices(t *testing.T) {
	h := setupTestServer(t, storage.NewMemoryBackend(2))

	w := do(t, h, "GET", "/api/v1/devices", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []eeprom.DeviceInfo{{Index: 0, Current: true}, {Index: 1}}, decode[[]eeprom.DeviceInfo](t, w).Data)

	w = do(t, h, "GET", "/api/v1/devices/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/api/v1/devices/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_EditAndWrite(t *testing.T) {
	backend := storage.NewMemoryBackend(2)
	h := setupTestServer(t, backend)

	// A blank device reads back as an invalid image.
	w := do(t, h, "GET", "/api/v1/devices/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[ImageView](t, w).Data
	assert.Equal(t, 1, view.Device)
	assert.False(t, view.Valid)

	w = do(t, h, "POST", "/api/v1/devices/1/erase", "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[ImageView](t, w).Data
	assert.True(t, view.Valid)
	assert.True(t, view.ChecksumValid)

	w = do(t, h, "PUT", "/api/v1/devices/1/tlv/0x23", `{"value":"SN12345"}`)
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[ImageView](t, w).Data
	require.Len(t, view.Records, 2)
	assert.Equal(t, RecordView{Offset: tlvinfo.HeaderSize, Code: 0x23, Name: "Serial Number", Length: 7, Value: "SN12345"}, view.Records[0])
	assert.Equal(t, uint8(tlvinfo.CodeCRC32), view.Records[1].Code)
	assert.True(t, view.ChecksumValid)
	assert.True(t, view.Modified)

	w = do(t, h, "PUT", "/api/v1/devices/1/tlv/0x24", `{"value":"00:11:22:33:44:55"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "POST", "/api/v1/devices/1/write", "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[ImageView](t, w).Data
	assert.True(t, view.ChecksumValid)
	assert.False(t, view.Modified)
	assert.Equal(t, 9+8+6, view.TotalLength)

	img, err := eeprom.LoadImage(backend, 1)
	require.NoError(t, err)
	assert.True(t, img.CheckCRC())
	mac, found, err := img.Lookup(tlvinfo.CodeMACBase)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "00:11:22:33:44:55", tlvinfo.DecodeValue(mac.Code, mac.Value))
}

func TestServer_SetErrors(t *testing.T) {
	h := setupTestServer(t, storage.NewMemoryBackend(1))
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/erase", "").Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"reserved code", "PUT", "/api/v1/devices/0/tlv/0xFF", `{"value":"x"}`, http.StatusBadRequest},
		{"checksum code", "PUT", "/api/v1/devices/0/tlv/0xFE", `{"value":"x"}`, http.StatusBadRequest},
		{"bad mac", "PUT", "/api/v1/devices/0/tlv/0x24", `{"value":"zz"}`, http.StatusBadRequest},
		{"bad json", "PUT", "/api/v1/devices/0/tlv/0x23", `{`, http.StatusBadRequest},
		{"unset missing", "DELETE", "/api/v1/devices/0/tlv/0x23", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, decode[any](t, w).Success)
		})
	}
}

func TestServer_Unset(t *testing.T) {
	h := setupTestServer(t, storage.NewMemoryBackend(1))
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/erase", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/api/v1/devices/0/tlv/0x2D", `{"value":"acme"}`).Code)

	w := do(t, h, "DELETE", "/api/v1/devices/0/tlv/0x2D", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[ImageView](t, w).Data
	for _, rec := range view.Records {
		assert.NotEqual(t, uint8(tlvinfo.CodeVendorName), rec.Code)
	}
	assert.True(t, view.ChecksumValid)
}

func TestServer_WriteRequiresLoadedDevice(t *testing.T) {
	backend := storage.NewMemoryBackend(2)
	h := setupTestServer(t, backend)

	w := do(t, h, "POST", "/api/v1/devices/0/write", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, decode[any](t, w).Success)

	_, err := eeprom.LoadImage(backend, 0)
	assert.ErrorIs(t, err, tlvinfo.ErrInvalidHeader, "nothing was written")
}

func TestServer_SwitchDeviceKeepsEdits(t *testing.T) {
	backend := storage.NewMemoryBackend(2)
	h := setupTestServer(t, backend)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/erase", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/write", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/api/v1/devices/0/tlv/0x23", `{"value":"SN12345"}`).Code)

	// Device 0 holds unwritten edits, so the session stays on it.
	for _, req := range []struct{ method, path string }{
		{"GET", "/api/v1/devices/1"},
		{"GET", "/api/v1/devices/1/dump"},
		{"POST", "/api/v1/devices/1/read"},
		{"POST", "/api/v1/devices/1/write"},
	} {
		w := do(t, h, req.method, req.path, "")
		assert.Equal(t, http.StatusConflict, w.Code, "%s %s", req.method, req.path)
	}
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/v1/devices/7", "").Code)

	w := do(t, h, "POST", "/api/v1/devices/0/write", "")
	require.Equal(t, http.StatusOK, w.Code)
	sn, found, err := mustLoad(t, backend, 0).ReadString(tlvinfo.CodeSerialNumber)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "SN12345", sn)

	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/devices/1", "").Code)

	// Device 0 is no longer in memory; writing it again needs a read.
	w = do(t, h, "POST", "/api/v1/devices/0/write", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, mustLoad(t, backend, 0).CheckCRC())
}

func mustLoad(t *testing.T, backend storage.Backend, dev int) *tlvinfo.Image {
	t.Helper()
	img, err := eeprom.LoadImage(backend, dev)
	require.NoError(t, err)
	return img
}

func TestServer_ReadDropsEdits(t *testing.T) {
	h := setupTestServer(t, storage.NewMemoryBackend(1))
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/erase", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/write", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/api/v1/devices/0/tlv/0x21", `{"value":"cn9130"}`).Code)

	w := do(t, h, "POST", "/api/v1/devices/0/read", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[ImageView](t, w).Data
	require.Len(t, view.Records, 1)
	assert.Equal(t, uint8(tlvinfo.CodeCRC32), view.Records[0].Code)
}

func TestServer_CorruptImage(t *testing.T) {
	backend := storage.NewMemoryBackend(1)
	img := tlvinfo.NewImage()
	require.NoError(t, img.Add(tlvinfo.CodeSerialNumber, []byte("SN12345")))
	raw := img.Bytes()
	raw[tlvinfo.HeaderSize+1] = 200
	require.NoError(t, backend.Write(0, raw))

	h := setupTestServer(t, backend)
	w := do(t, h, "GET", "/api/v1/devices/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[ImageView](t, w).Data
	require.NotNil(t, view.CorruptOffset)
	assert.Equal(t, tlvinfo.HeaderSize, *view.CorruptOffset)
	assert.False(t, view.ChecksumValid)

	w = do(t, h, "PUT", "/api/v1/devices/0/tlv/0x21", `{"value":"cn9130"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestServer_Dump(t *testing.T) {
	h := setupTestServer(t, storage.NewMemoryBackend(1))

	w := do(t, h, "GET", "/api/v1/devices/0/dump", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "EEPROM dump: (0x800 bytes)\n00: FF FF"))
}

func TestServer_Board(t *testing.T) {
	backend := storage.NewMemoryBackend(2)
	img := tlvinfo.NewImage()
	require.NoError(t, img.Add(tlvinfo.CodePartNumber, []byte("SRCFSWE000IV13")))
	require.NoError(t, img.UpdateCRC())
	require.NoError(t, backend.Write(1, img.Bytes()))

	h := setupTestServer(t, backend)
	w := do(t, h, "GET", "/api/v1/board", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, BoardView{CPU: "9131", Carrier: "cf-solidwan", FDTFile: "marvell/cn9131-cf-solidwan.dtb"},
		decode[BoardView](t, w).Data)
}

func TestServer_Snapshots(t *testing.T) {
	t.Run("unsupported backend", func(t *testing.T) {
		h := setupTestServer(t, storage.NewMemoryBackend(1))
		w := do(t, h, "GET", "/api/v1/devices/0/snapshots", "")
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})

	t.Run("pebble", func(t *testing.T) {
		backend, err := storage.NewPebbleBackend(filepath.Join(t.TempDir(), "pebble"), 1)
		require.NoError(t, err)
		t.Cleanup(func() { _ = backend.Close() })
		h := setupTestServer(t, backend)

		require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/erase", "").Code)
		require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/write", "").Code)

		w := do(t, h, "GET", "/api/v1/devices/0/snapshots", "")
		require.Equal(t, http.StatusOK, w.Code)
		snaps := decode[[]SnapshotView](t, w).Data
		require.Len(t, snaps, 1)
		first := snaps[0].ID

		require.Equal(t, http.StatusOK, do(t, h, "PUT", "/api/v1/devices/0/tlv/0x21", `{"value":"cn9130"}`).Code)
		require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/write", "").Code)

		w = do(t, h, "POST", "/api/v1/devices/0/snapshots/"+first+"/restore", "")
		require.Equal(t, http.StatusOK, w.Code)
		view := decode[ImageView](t, w).Data
		require.Len(t, view.Records, 1)
		assert.Equal(t, uint8(tlvinfo.CodeCRC32), view.Records[0].Code)

		w = do(t, h, "POST", "/api/v1/devices/0/snapshots/not-a-ksuid/restore", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	h := setupTestServer(t, storage.NewMemoryBackend(1))
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/devices/0/erase", "").Code)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `tlvinfo_eeprom_operations_total{operation="erase",status="success"} 1`)
	assert.Contains(t, body, `tlvinfo_eeprom_checksum_valid{device="0"} 1`)
	assert.Contains(t, body, `tlvinfo_auth_requests_total{status="success"} 1`)
}
