// Package scene is a minimal retained scene graph for globe overlays.
package scene

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/woozymasta/globepins/internal/geo"
)

var nextID atomic.Uint64

// Object is anything the graph can hold.
type Object interface {
	ObjectID() uint64
}

// LineMaterial describes how a line is stroked.
type LineMaterial struct {
	Color   color.RGBA
	Width   float64
	Opacity float64
}

// Line is a polyline through Vertices.
type Line struct {
	id       uint64
	Vertices []geo.Vec3
	Material LineMaterial

	// NeedsUpdate is raised whenever vertices move, cleared by the renderer.
	NeedsUpdate bool
}

// NewLine creates a line through the given vertices. The slice is copied.
func NewLine(material LineMaterial, vertices ...geo.Vec3) *Line {
	v := make([]geo.Vec3, len(vertices))
	copy(v, vertices)
	return &Line{id: nextID.Add(1), Vertices: v, Material: material}
}

// ObjectID implements Object.
func (l *Line) ObjectID() uint64 { return l.id }

// SetVertex moves vertex i and flags the geometry dirty.
func (l *Line) SetVertex(i int, p geo.Vec3) {
	l.Vertices[i] = p
	l.NeedsUpdate = true
}

// SpriteMaterial is a textured, depth tested billboard material.
type SpriteMaterial struct {
	Texture   *image.RGBA
	Opacity   float64
	DepthTest bool
	Fog       bool
}

// Sprite is a camera facing quad at Position.
type Sprite struct {
	id       uint64
	Position geo.Vec3
	ScaleX   float64
	ScaleY   float64
	Material SpriteMaterial
}

// NewSprite creates a sprite with unit scale at the origin.
func NewSprite(material SpriteMaterial) *Sprite {
	return &Sprite{id: nextID.Add(1), ScaleX: 1, ScaleY: 1, Material: material}
}

// ObjectID implements Object.
func (s *Sprite) ObjectID() uint64 { return s.id }

// SetScale sets the sprite size in scene units.
func (s *Sprite) SetScale(x, y float64) {
	s.ScaleX, s.ScaleY = x, y
}

// Graph holds objects in insertion order.
type Graph struct {
	mu      sync.RWMutex
	objects []Object
	index   map[uint64]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[uint64]int)}
}

// Add appends obj. Adding an object twice is a no-op.
func (g *Graph) Add(obj Object) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.index[obj.ObjectID()]; ok {
		return
	}
	g.index[obj.ObjectID()] = len(g.objects)
	g.objects = append(g.objects, obj)
}

// Remove detaches obj. Removing an unknown object is a no-op.
func (g *Graph) Remove(obj Object) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i, ok := g.index[obj.ObjectID()]
	if !ok {
		return
	}

	copy(g.objects[i:], g.objects[i+1:])
	g.objects[len(g.objects)-1] = nil
	g.objects = g.objects[:len(g.objects)-1]

	delete(g.index, obj.ObjectID())
	for j := i; j < len(g.objects); j++ {
		g.index[g.objects[j].ObjectID()] = j
	}
}

// Contains reports whether obj is attached.
func (g *Graph) Contains(obj Object) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.index[obj.ObjectID()]
	return ok
}

// Len returns the number of attached objects.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}

// Objects returns a copy of the attached objects in insertion order.
func (g *Graph) Objects() []Object {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Object, len(g.objects))
	copy(out, g.objects)
	return out
}
