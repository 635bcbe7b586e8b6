package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/globepins/internal/globe"
	"github.com/woozymasta/globepins/internal/render"
	"github.com/woozymasta/globepins/internal/store"
)

// PinStore persists pin changes made through the API.
type PinStore interface {
	Save(rec store.PinRecord) error
	Delete(key string) error
	UpdateAltitude(key string, altitude float64) error
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	World           *globe.World
	Renderer        *render.Renderer
	Store           PinStore // optional
	IndexHTML       []byte
	Quality         int
	DefaultAltitude float64
}

// NewServerContext prepares the viewer page and wires the handlers' dependencies.
func NewServerContext(world *globe.World, renderer *render.Renderer, st PinStore, quality int, defaultAltitude float64) (*ServerContext, error) {
	index, err := BuildIndex("Globe pins")
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("pins", world.Len()).
		Int("index_bytes", len(index)).
		Bool("persistent", st != nil).
		Msg("Server context initialized")

	return &ServerContext{
		World:           world,
		Renderer:        renderer,
		Store:           st,
		IndexHTML:       index,
		Quality:         quality,
		DefaultAltitude: defaultAltitude,
	}, nil
}

// Routes returns the API and viewer behind the request logger.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pins", s.HandlePinsList)
	mux.HandleFunc("POST /api/pins", s.HandlePinCreate)
	mux.HandleFunc("GET /api/pins/{key}", s.HandlePinGet)
	mux.HandleFunc("DELETE /api/pins/{key}", s.HandlePinDelete)
	mux.HandleFunc("PATCH /api/pins/{key}/altitude", s.HandlePinAltitude)
	mux.HandleFunc("POST /api/pins/{key}/{element}/{action}", s.HandlePinElement)
	mux.HandleFunc("GET /frame.webp", s.HandleFrame)
	mux.HandleFunc("GET /", s.HandleIndex)

	return RequestLogger(mux)
}
