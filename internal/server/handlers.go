// Package server exposes the globe over HTTP: a JSON pin API, the current
// frame as WebP and a small viewer page.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/globepins/internal/globe"
	"github.com/woozymasta/globepins/internal/render"
	"github.com/woozymasta/globepins/internal/store"

	"gorm.io/datatypes"
)

// errBadRequest marks client input errors.
var errBadRequest = errors.New("bad request")

type altitudeRequest struct {
	Altitude *float64 `json:"altitude"`
}

// HandlePinsList serves every live pin.
func (s *ServerContext) HandlePinsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.World.Pins())
}

// HandlePinGet serves one pin.
func (s *ServerContext) HandlePinGet(w http.ResponseWriter, r *http.Request) {
	info, err := s.World.Pin(r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandlePinCreate plants a pin from a JSON body.
func (s *ServerContext) HandlePinCreate(w http.ResponseWriter, r *http.Request) {
	var spec globe.PinSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if spec.Lat < -90 || spec.Lat > 90 || spec.Lon < -180 || spec.Lon > 180 {
		writeError(w, fmt.Errorf("%w: coordinates out of range", errBadRequest))
		return
	}
	if spec.Altitude == 0 {
		spec.Altitude = s.DefaultAltitude
	}

	info, err := s.World.AddPin(spec)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.Store != nil {
		rec := store.PinRecord{
			Key:       info.Key,
			Lat:       spec.Lat,
			Lon:       spec.Lon,
			Text:      spec.Text,
			Altitude:  spec.Altitude,
			Options:   datatypes.NewJSONType(spec.Options),
			CreatedAt: info.Created,
		}
		if err := s.Store.Save(rec); err != nil {
			log.Error().Err(err).Str("pin", info.Key).Msg("Failed to persist pin")
		}
	}

	writeJSON(w, http.StatusCreated, info)
}

// HandlePinDelete removes a pin.
func (s *ServerContext) HandlePinDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.World.RemovePin(key); err != nil {
		writeError(w, err)
		return
	}

	if s.Store != nil {
		if err := s.Store.Delete(key); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("pin", key).Msg("Failed to delete stored pin")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandlePinAltitude animates a pin to a new altitude.
func (s *ServerContext) HandlePinAltitude(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req altitudeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Altitude == nil {
		writeError(w, fmt.Errorf("%w: altitude is required", errBadRequest))
		return
	}

	if err := s.World.ChangeAltitude(key, *req.Altitude); err != nil {
		writeError(w, err)
		return
	}

	if s.Store != nil {
		if err := s.Store.UpdateAltitude(key, *req.Altitude); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("pin", key).Msg("Failed to persist altitude")
		}
	}

	s.HandlePinGet(w, r)
}

// HandlePinElement shows or hides the top, label or smoke of a pin.
func (s *ServerContext) HandlePinElement(w http.ResponseWriter, r *http.Request) {
	element, err := globe.ParseElement(r.PathValue("element"))
	if err != nil {
		writeError(w, err)
		return
	}

	var visible bool
	switch action := r.PathValue("action"); action {
	case "show":
		visible = true
	case "hide":
	default:
		writeError(w, fmt.Errorf("%w: unknown action %q", errBadRequest, action))
		return
	}

	if err := s.World.SetVisibility(r.PathValue("key"), element, visible); err != nil {
		writeError(w, err)
		return
	}

	s.HandlePinGet(w, r)
}

// HandleFrame serves the current globe frame.
func (s *ServerContext) HandleFrame(w http.ResponseWriter, r *http.Request) {
	var img *image.RGBA
	s.World.View(func(snap globe.Snapshot) {
		img = s.Renderer.Draw(snap)
	})

	var buf bytes.Buffer
	if err := render.EncodeWebP(&buf, img, s.Quality); err != nil {
		log.Error().Err(err).Msg("Failed to encode frame")
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// HandleIndex serves the viewer page.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, globe.ErrUnknownElement):
		status = http.StatusBadRequest
	case errors.Is(err, globe.ErrPinNotFound):
		status = http.StatusNotFound
	case errors.Is(err, globe.ErrPinExists):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
