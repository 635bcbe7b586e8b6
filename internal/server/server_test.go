package server

import (
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/globepins/internal/config"
	"github.com/woozymasta/globepins/internal/globe"
	"github.com/woozymasta/globepins/internal/pin"
	"github.com/woozymasta/globepins/internal/render"
	"github.com/woozymasta/globepins/internal/store"
)

type memoryStore struct {
	mu   sync.Mutex
	recs map[string]store.PinRecord
}

func (m *memoryStore) Save(rec store.PinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.Key] = rec
	return nil
}

func (m *memoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[key]; !ok {
		return store.ErrNotFound
	}
	delete(m.recs, key)
	return nil
}

func (m *memoryStore) UpdateAltitude(key string, altitude float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return store.ErrNotFound
	}
	rec.Altitude = altitude
	m.recs[key] = rec
	return nil
}

func newTestServer(t *testing.T) (http.Handler, *ServerContext, *memoryStore) {
	t.Helper()

	world := globe.New(config.Globe{Radius: 100}, pin.Options{})
	renderer := render.New(render.Options{
		Width:      64,
		Height:     64,
		Background: color.RGBA{A: 0xff},
		Globe:      color.RGBA{B: 0x80, A: 0xff},
	})
	st := &memoryStore{recs: map[string]store.PinRecord{}}

	srv, err := NewServerContext(world, renderer, st, 80, config.DefaultAltitude)
	require.NoError(t, err)

	return srv.Routes(), srv, st
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodePin(t *testing.T, rec *httptest.ResponseRecorder) globe.PinInfo {
	t.Helper()

	var info globe.PinInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	return info
}

func TestCreatePin(t *testing.T) {
	h, _, st := newTestServer(t)

	rec := do(h, http.MethodPost, "/api/pins", `{"lat": 10, "lon": 20, "text": "Home"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	info := decodePin(t, rec)
	assert.Equal(t, "10_20", info.Key)
	assert.Equal(t, "Home", info.Text)
	assert.Equal(t, config.DefaultAltitude, info.Altitude)
	assert.True(t, info.Top)
	assert.True(t, info.Label)
	assert.True(t, info.Smoke)

	require.Contains(t, st.recs, "10_20")
	assert.Equal(t, "Home", st.recs["10_20"].Text)

	rec = do(h, http.MethodPost, "/api/pins", `{"lat": 10, "lon": 20}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestCreatePin_BadInput(t *testing.T) {
	h, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/pins", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/pins", `{"lat": 91, "lon": 0}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/pins", `{"lat": 0, "lon": -181}`).Code)
}

func TestListAndGetPins(t *testing.T) {
	h, _, _ := newTestServer(t)

	do(h, http.MethodPost, "/api/pins", `{"lat": 5, "lon": 5}`)
	do(h, http.MethodPost, "/api/pins", `{"lat": 1, "lon": 1, "text": "a"}`)

	rec := do(h, http.MethodGet, "/api/pins", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pins []globe.PinInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pins))
	require.Len(t, pins, 2)
	assert.Equal(t, "1_1", pins[0].Key)
	assert.Equal(t, "5_5", pins[1].Key)
	assert.False(t, pins[1].Label)

	rec = do(h, http.MethodGet, "/api/pins/1_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a", decodePin(t, rec).Text)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/pins/9_9", "").Code)
}

func TestDeletePin(t *testing.T) {
	h, srv, st := newTestServer(t)
	do(h, http.MethodPost, "/api/pins", `{"lat": 1, "lon": 2}`)

	rec := do(h, http.MethodDelete, "/api/pins/1_2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, srv.World.Len())
	assert.NotContains(t, st.recs, "1_2")

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/api/pins/1_2", "").Code)
}

func TestChangeAltitude(t *testing.T) {
	h, _, st := newTestServer(t)
	do(h, http.MethodPost, "/api/pins", `{"lat": 1, "lon": 2, "altitude": 1.1}`)

	rec := do(h, http.MethodPatch, "/api/pins/1_2/altitude", `{"altitude": 1.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	// the committed altitude moves only when the animation completes
	assert.Equal(t, 1.1, decodePin(t, rec).Altitude)
	assert.Equal(t, 1.5, st.recs["1_2"].Altitude)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPatch, "/api/pins/1_2/altitude", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPatch, "/api/pins/7_7/altitude", `{"altitude": 2}`).Code)
}

func TestToggleElements(t *testing.T) {
	h, _, _ := newTestServer(t)
	do(h, http.MethodPost, "/api/pins", `{"lat": 1, "lon": 2, "text": "x"}`)

	rec := do(h, http.MethodPost, "/api/pins/1_2/smoke/hide", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodePin(t, rec)
	assert.False(t, info.Smoke)
	assert.True(t, info.Top)

	rec = do(h, http.MethodPost, "/api/pins/1_2/label/hide", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodePin(t, rec).Label)

	rec = do(h, http.MethodPost, "/api/pins/1_2/label/show", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodePin(t, rec).Label)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/pins/1_2/flag/show", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/pins/1_2/top/flip", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/pins/3_3/top/show", "").Code)
}

func TestFrame(t *testing.T) {
	h, _, _ := newTestServer(t)
	do(h, http.MethodPost, "/api/pins", `{"lat": 0, "lon": 90}`)

	rec := do(h, http.MethodGet, "/frame.webp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	// RIFF....WEBP
	require.Greater(t, rec.Body.Len(), 12)
	assert.Equal(t, "RIFF", rec.Body.String()[:4])
	assert.Equal(t, "WEBP", rec.Body.String()[8:12])
}

func TestIndex(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "frame.webp")
	assert.NotContains(t, rec.Body.String(), "{{")

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/missing.js", "").Code)
}
