package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/tlvinfo/pkg/board"
	"github.com/ssargent/tlvinfo/pkg/eeprom"
	"github.com/ssargent/tlvinfo/pkg/storage"
	"github.com/ssargent/tlvinfo/pkg/tlvinfo"
)

// Server holds the API server state
type Server struct {
	mu      sync.Mutex
	session Session
	backend storage.Backend
	config  ServerConfig
	metrics *Metrics
	log     zerolog.Logger
}

// NewServer creates a new API server. The session is used under the
// server's lock; callers must not share it with other goroutines.
func NewServer(session Session, backend storage.Backend, config ServerConfig, metrics *Metrics, log zerolog.Logger) *Server {
	return &Server{
		session: session,
		backend: backend,
		config:  config,
		metrics: metrics,
		log:     log,
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleCodes lists the known record codes.
func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request) {
	list := tlvinfo.CodeList()
	out := make([]CodeView, 0, len(list))
	for _, ci := range list {
		out = append(out, CodeView{Code: uint8(ci.Code), Name: ci.Name})
	}
	sendSuccess(w, out)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sendSuccess(w, s.session.Devices())
}

// handleBoard derives the device tree file from the stored Part Numbers.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	id := board.Identify(s.backend, s.log)
	s.mu.Unlock()
	sendSuccess(w, BoardView{CPU: id.CPU, Carrier: id.Carrier, FDTFile: id.FDTFile()})
}

// handleShow returns the decoded image of a device, reading it first if
// the session does not hold it yet.
func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	s.withDevice(w, r, "show", true, func() error { return nil })
}

// handleRead reloads a device, dropping unwritten edits of that device.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	s.withDevice(w, r, "read", false, s.session.Read)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	code, err := eeprom.ParseCode(chi.URLParam(r, "code"))
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}
	var req SetRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	s.withDevice(w, r, "set", true, func() error {
		return s.session.Set(code, req.Value)
	})
}

func (s *Server) handleUnset(w http.ResponseWriter, r *http.Request) {
	code, err := eeprom.ParseCode(chi.URLParam(r, "code"))
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}
	s.withDevice(w, r, "unset", true, func() error {
		deleted, err := s.session.Unset(code)
		if err != nil {
			return err
		}
		if !deleted {
			return tlvinfo.ErrNotFound
		}
		return nil
	})
}

func (s *Server) handleErase(w http.ResponseWriter, r *http.Request) {
	s.withDevice(w, r, "erase", true, s.session.Erase)
}

// handleWrite stores the in-memory image. The device must have been read
// or erased first; a write never reloads the stored copy.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	s.withDevice(w, r, "write", false, s.session.Write)
}

// handleDump returns the in-memory buffer as a hex dump.
func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	dev, ok := deviceParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.loadDevice(dev)
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}
	var buf bytes.Buffer
	if err := eeprom.DumpImage(&buf, img); err != nil {
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	dev, ok := deviceParam(w, r)
	if !ok {
		return
	}
	snap, ok := s.snapshotter(w)
	if !ok {
		return
	}
	s.mu.Lock()
	list, err := snap.Snapshots(dev)
	s.mu.Unlock()
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}
	out := make([]SnapshotView, 0, len(list))
	for _, sn := range list {
		out = append(out, SnapshotView{
			ID:     sn.ID.String(),
			Device: sn.Device,
			Size:   sn.Size,
			Time:   sn.ID.Time().UTC().Format(time.RFC3339),
		})
	}
	sendSuccess(w, out)
}

// handleRestore copies a snapshot back onto the device and reloads it.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid snapshot id", http.StatusBadRequest)
		return
	}
	snap, ok := s.snapshotter(w)
	if !ok {
		return
	}
	s.withDevice(w, r, "restore", false, func() error {
		if err := snap.Restore(s.session.Device(), id); err != nil {
			return err
		}
		return s.session.Read()
	})
}

func (s *Server) snapshotter(w http.ResponseWriter) (storage.Snapshotter, bool) {
	snap, ok := s.backend.(storage.Snapshotter)
	if !ok {
		sendError(w, "Backend does not keep snapshots", http.StatusNotImplemented)
		return nil, false
	}
	return snap, true
}

// withDevice selects the device named in the path, optionally loads it,
// runs op and replies with the resulting image view.
func (s *Server) withDevice(w http.ResponseWriter, r *http.Request, operation string, load bool, op func() error) {
	dev, ok := deviceParam(w, r)
	if !ok {
		return
	}

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.selectDevice(dev)
	if err == nil && load && !s.session.Loaded() {
		err = s.session.Read()
	}
	if err == nil {
		err = op()
	}
	s.metrics.RecordOperation(operation, err == nil, time.Since(start))
	if err != nil {
		s.log.Warn().Err(err).Int("device", dev).Str("operation", operation).Msg("eeprom operation failed")
		sendError(w, err.Error(), statusFor(err))
		return
	}

	img, err := s.session.Image()
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}
	view := buildImageView(dev, img)
	view.Modified = s.session.Modified()
	s.metrics.UpdateImageStats(dev, view.TotalLength, view.ChecksumValid)
	sendSuccess(w, view)
}

// selectDevice switches the session to dev. The session holds one image,
// so leaving a device with unwritten edits is refused.
func (s *Server) selectDevice(dev int) error {
	if cur := s.session.Device(); dev != cur && s.session.Modified() && s.backend.Exists(dev) {
		return fmt.Errorf("%w: write or read device %d first", eeprom.ErrUnsaved, cur)
	}
	return s.session.SelectDevice(dev)
}

// loadDevice selects dev and makes sure its image is in memory.
func (s *Server) loadDevice(dev int) (*tlvinfo.Image, error) {
	if err := s.selectDevice(dev); err != nil {
		return nil, err
	}
	if !s.session.Loaded() {
		if err := s.session.Read(); err != nil {
			return nil, err
		}
	}
	return s.session.Image()
}

func deviceParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	dev, err := strconv.Atoi(chi.URLParam(r, "dev"))
	if err != nil {
		sendError(w, "Invalid device number", http.StatusBadRequest)
		return 0, false
	}
	return dev, true
}

func buildImageView(dev int, img *tlvinfo.Image) ImageView {
	h := img.Header()
	view := ImageView{
		Device:  dev,
		Valid:   h.Valid(),
		Records: []RecordView{},
	}
	if !view.Valid {
		return view
	}
	view.Signature = h.SignatureString()
	view.Version = h.Version
	view.TotalLength = img.TotalLen()
	view.Free = img.Free()

	err := img.Walk(func(rec tlvinfo.Record) bool {
		view.Records = append(view.Records, RecordView{
			Offset: rec.Offset,
			Code:   uint8(rec.Code),
			Name:   rec.Code.Name(),
			Length: len(rec.Value),
			Value:  tlvinfo.DecodeValue(rec.Code, rec.Value),
		})
		return true
	})
	var recErr *tlvinfo.RecordError
	if errors.As(err, &recErr) {
		off := recErr.Offset
		view.CorruptOffset = &off
		return view
	}
	view.ChecksumValid = img.CheckCRC()
	return view
}
