package pin

import (
	"image"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/globepins/internal/animation"
	"github.com/woozymasta/globepins/internal/geo"
	"github.com/woozymasta/globepins/internal/scene"
	"github.com/woozymasta/globepins/internal/smoke"
)

const frame = 16 * time.Millisecond

type fireCall struct {
	Lat, Lon, Altitude float64
}

type altitudeCall struct {
	Altitude float64
	Handle   smoke.Handle
}

// recordingSmoke records every provider call.
type recordingSmoke struct {
	fires        []fireCall
	handles      []smoke.Handle
	altitudes    []altitudeCall
	extinguished []smoke.Handle
}

func (r *recordingSmoke) SetFire(lat, lon, altitude float64) smoke.Handle {
	h := uuid.New()
	r.fires = append(r.fires, fireCall{Lat: lat, Lon: lon, Altitude: altitude})
	r.handles = append(r.handles, h)
	return h
}

func (r *recordingSmoke) ChangeAltitude(altitude float64, h smoke.Handle) {
	r.altitudes = append(r.altitudes, altitudeCall{Altitude: altitude, Handle: h})
}

func (r *recordingSmoke) Extinguish(h smoke.Handle) {
	r.extinguished = append(r.extinguished, h)
}

type countingRaster struct {
	labels   []string
	canvases int
}

func (c *countingRaster) CreateLabel(text string, fontSize float64, col string, fontFamily string) *image.RGBA {
	c.labels = append(c.labels, text)
	return image.NewRGBA(image.Rect(0, 0, 10*len(text)+8, 30))
}

func (c *countingRaster) RenderToCanvas(w, h int, drawFn func(img *image.RGBA)) *image.RGBA {
	c.canvases++
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	drawFn(img)
	return img
}

type fixture struct {
	graph  *scene.Graph
	smoke  *recordingSmoke
	sched  *animation.Scheduler
	raster *countingRaster
	clock  time.Time
}

func newFixture() *fixture {
	return &fixture{
		graph:  scene.NewGraph(),
		smoke:  &recordingSmoke{},
		sched:  animation.NewScheduler(),
		raster: &countingRaster{},
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) newPin(lat, lon float64, text string, altitude float64, opts Options) *Pin {
	return New(lat, lon, text, altitude, f.graph, f.smoke, f.sched, opts,
		WithRasterizer(f.raster),
		WithClock(func() time.Time { return f.clock }),
	)
}

func (f *fixture) run(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
		f.sched.Tick(frame)
	}
}

func TestNew_CityScenario(t *testing.T) {
	f := newFixture()

	p := f.newPin(10, 20, "City", 100, Options{})

	require.Len(t, f.smoke.fires, 1)
	assert.Equal(t, fireCall{Lat: 10, Lon: 20, Altitude: 100}, f.smoke.fires[0])
	assert.Equal(t, f.smoke.handles[0], p.SmokeHandle())

	assert.Equal(t, 3, f.graph.Len())
	assert.Equal(t, []scene.Object{p.Label(), p.Line(), p.Top()}, f.graph.Objects())
	assert.Equal(t, "10_20", p.String())

	assert.True(t, p.TopVisible())
	assert.True(t, p.LabelVisible())
	assert.True(t, p.SmokeVisible())
	assert.Equal(t, []string{"City"}, f.raster.labels)
	assert.Equal(t, 1, f.raster.canvases)
}

func TestNew_EmptyTextDefaults(t *testing.T) {
	f := newFixture()

	p := f.newPin(10, 20, "", 100, Options{})

	assert.False(t, p.TopVisible())
	assert.False(t, p.LabelVisible())
	assert.False(t, p.SmokeVisible())
	assert.Empty(t, f.smoke.fires)
	assert.Equal(t, 3, f.graph.Len())

	// only the line growth is scheduled
	assert.Equal(t, 1, f.sched.Len())
}

func TestNew_OverridesBeatTextDefault(t *testing.T) {
	f := newFixture()

	p := f.newPin(0, 0, "", 1, Options{ShowTop: Ptr(true)})
	assert.True(t, p.TopVisible())
	assert.False(t, p.LabelVisible())

	p = f.newPin(1, 1, "Named", 1, Options{ShowSmoke: Ptr(false), LineWidth: Ptr(3.0)})
	assert.False(t, p.SmokeVisible())
	assert.True(t, p.LabelVisible())
	assert.Equal(t, 3.0, p.Line().Material.Width)
	assert.Len(t, f.smoke.fires, 0)
}

func TestNew_InitialGeometry(t *testing.T) {
	f := newFixture()

	p := f.newPin(10, 20, "City", 100, Options{})
	point := geo.MapPoint(10, 20)

	require.Len(t, p.Line().Vertices, 2)
	assert.Equal(t, point, p.Line().Vertices[0])
	assert.Equal(t, point, p.Line().Vertices[1], "line starts collapsed")

	assert.Equal(t, point.Scale(100), p.Top().Position)
	assert.Equal(t, 20.0, p.Top().ScaleX)
	assert.Equal(t, 20.0, p.Top().ScaleY)
	assert.Equal(t, 0.0, p.Top().Material.Opacity)
	assert.Equal(t, 0.0, p.Label().Material.Opacity)

	assert.Equal(t, 48.0, p.Label().ScaleX)
	assert.Equal(t, 30.0, p.Label().ScaleY)
}

func TestLabelPosition(t *testing.T) {
	north := geo.Vec3{X: 0.5, Y: 0.5, Z: 0.5}
	got := labelPosition(north, 2)
	assert.InDelta(t, 1.1, got.X, 1e-12)
	assert.InDelta(t, 31.0, got.Y, 1e-12)
	assert.InDelta(t, 1.1, got.Z, 1e-12)

	south := geo.Vec3{X: 0.5, Y: -0.5, Z: 0.5}
	got = labelPosition(south, 2)
	assert.InDelta(t, -16.0, got.Y, 1e-12)
}

func TestNew_LineGrowsToAltitude(t *testing.T) {
	f := newFixture()

	p := f.newPin(10, 20, "City", 100, Options{})
	f.run(2 * time.Second)

	assert.Equal(t, geo.MapPoint(10, 20).Scale(100), p.Line().Vertices[1])
	assert.Equal(t, 0, f.sched.Len())
}

func TestNew_FadeIn(t *testing.T) {
	f := newFixture()

	p := f.newPin(10, 20, "City", 100, Options{})

	f.run(900 * time.Millisecond)
	assert.Equal(t, 0.0, p.Top().Material.Opacity, "fade is delayed")

	f.run(800 * time.Millisecond)
	assert.Equal(t, 1.0, p.Top().Material.Opacity)
	assert.Equal(t, 1.0, p.Label().Material.Opacity)
}

func TestNew_HideDuringFadeWins(t *testing.T) {
	f := newFixture()

	p := f.newPin(10, 20, "City", 100, Options{})

	f.run(1200 * time.Millisecond)
	require.Greater(t, p.Top().Material.Opacity, 0.0)

	p.HideTop()
	f.run(time.Second)

	assert.Equal(t, 0.0, p.Top().Material.Opacity)
	assert.Equal(t, 1.0, p.Label().Material.Opacity)
}

func TestNew_NoFadeWhenNothingShown(t *testing.T) {
	f := newFixture()

	p := f.newPin(10, 20, "City", 100, Options{ShowTop: Ptr(false), ShowLabel: Ptr(false)})
	f.run(2 * time.Second)

	assert.Equal(t, 0.0, p.Top().Material.Opacity)
	assert.Equal(t, 0.0, p.Label().Material.Opacity)
}

func TestString(t *testing.T) {
	f := newFixture()

	cases := []struct {
		lat, lon float64
		want     string
	}{
		{10, 20, "10_20"},
		{-33.8688, 151.2093, "-33.8688_151.2093"},
		{0.1, -0.5, "0.1_-0.5"},
		{90, 180, "90_180"},
	}

	for _, c := range cases {
		p := f.newPin(c.lat, c.lon, "", 1, Options{})
		assert.Equal(t, c.want, p.String())
	}
}

func TestAge(t *testing.T) {
	f := newFixture()
	p := f.newPin(1, 2, "", 1, Options{})

	assert.Equal(t, time.Duration(0), p.Age())

	f.clock = f.clock.Add(1500 * time.Millisecond)
	first := p.Age()
	second := p.Age()

	assert.Equal(t, 1500*time.Millisecond, first)
	assert.GreaterOrEqual(t, second, first)
}

func TestAge_RealClockMonotonic(t *testing.T) {
	p := New(1, 2, "", 1, scene.NewGraph(), &recordingSmoke{}, animation.NewScheduler(), Options{},
		WithRasterizer(&countingRaster{}))

	prev := p.Age()
	for i := 0; i < 100; i++ {
		cur := p.Age()
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestHideTop_Idempotent(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})
	f.run(2 * time.Second)

	p.HideTop()
	p.HideTop()

	assert.False(t, p.TopVisible())
	assert.Equal(t, 0.0, p.Top().Material.Opacity)
}

func TestShowHide_LabelAndTop(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "", 100, Options{})

	p.ShowLabel()
	assert.True(t, p.LabelVisible())
	assert.Equal(t, 1.0, p.Label().Material.Opacity)

	p.ShowTop()
	assert.True(t, p.TopVisible())
	assert.Equal(t, 1.0, p.Top().Material.Opacity)

	p.HideLabel()
	p.HideLabel()
	assert.False(t, p.LabelVisible())
	assert.Equal(t, 0.0, p.Label().Material.Opacity)
}

func TestShowSmoke_AlreadyVisibleKeepsHandle(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})
	h := p.SmokeHandle()

	p.ShowSmoke()

	assert.Equal(t, h, p.SmokeHandle())
	assert.Len(t, f.smoke.fires, 1)
}

func TestHideShowSmoke(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})
	first := p.SmokeHandle()

	p.HideSmoke()
	p.HideSmoke()
	assert.False(t, p.SmokeVisible())
	assert.Equal(t, []smoke.Handle{first}, f.smoke.extinguished)

	p.ShowSmoke()
	assert.True(t, p.SmokeVisible())
	require.Len(t, f.smoke.fires, 2)
	assert.Equal(t, fireCall{Lat: 10, Lon: 20, Altitude: 100}, f.smoke.fires[1])
	assert.NotEqual(t, first, p.SmokeHandle())
}

func TestRemove(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})
	other := f.newPin(30, 40, "Town", 100, Options{})

	p.Remove()

	assert.False(t, f.graph.Contains(p.Line()))
	assert.False(t, f.graph.Contains(p.Label()))
	assert.False(t, f.graph.Contains(p.Top()))
	assert.True(t, f.graph.Contains(other.Line()))
	assert.Equal(t, 3, f.graph.Len())

	require.Len(t, f.smoke.extinguished, 1)
	assert.Equal(t, p.SmokeHandle(), f.smoke.extinguished[0])
	assert.True(t, p.Removed())

	p.Remove()
	assert.Len(t, f.smoke.extinguished, 1)
}

func TestRemove_WithoutSmoke(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "", 100, Options{})

	p.Remove()

	assert.Empty(t, f.smoke.extinguished)
	assert.Equal(t, 0, f.graph.Len())
}

func TestRemove_CancelsAnimations(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})

	f.run(100 * time.Millisecond)
	vertex := p.Line().Vertices[1]

	p.Remove()
	f.run(3 * time.Second)

	assert.Equal(t, vertex, p.Line().Vertices[1])
	assert.Equal(t, 0.0, p.Top().Material.Opacity, "removed pin must not flash in")
	assert.Equal(t, 0, f.sched.Len())
}

func TestRemove_MutatorsBecomeNoops(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})
	p.Remove()

	p.HideSmoke()
	p.ShowTop()
	p.ChangeAltitude(300)
	f.run(2 * time.Second)

	assert.Len(t, f.smoke.extinguished, 1)
	assert.Equal(t, 100.0, p.Altitude())
}

func TestChangeAltitude(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})
	f.run(2 * time.Second)

	p.ChangeAltitude(200)
	assert.Equal(t, 100.0, p.Altitude(), "scheduling returns before interpolation")

	f.run(500 * time.Millisecond)
	assert.Equal(t, 100.0, p.Altitude(), "committed only on completion")

	f.run(1500 * time.Millisecond)

	point := geo.MapPoint(10, 20)
	assert.Equal(t, 200.0, p.Altitude())
	assert.Equal(t, point.Scale(200), p.Line().Vertices[1])
	assert.Equal(t, point.Scale(200), p.Top().Position)
	assert.Equal(t, labelPosition(point, 200), p.Label().Position)

	require.NotEmpty(t, f.smoke.altitudes)
	last := f.smoke.altitudes[len(f.smoke.altitudes)-1]
	assert.Equal(t, altitudeCall{Altitude: 200, Handle: p.SmokeHandle()}, last)
}

func TestChangeAltitude_HiddenPartsStayPut(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})
	f.run(2 * time.Second)

	p.HideTop()
	p.HideSmoke()
	topBefore := p.Top().Position

	p.ChangeAltitude(200)
	f.run(2 * time.Second)

	assert.Equal(t, topBefore, p.Top().Position)
	assert.Empty(t, f.smoke.altitudes)
	assert.Equal(t, geo.MapPoint(10, 20).Scale(200), p.Line().Vertices[1])

	p.ShowTop()
	assert.Equal(t, geo.MapPoint(10, 20).Scale(200), p.Top().Position)
}

func TestChangeAltitude_LastWriterWins(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})
	f.run(2 * time.Second)

	p.ChangeAltitude(200)
	f.run(300 * time.Millisecond)
	p.ChangeAltitude(300)
	f.run(2 * time.Second)

	assert.Equal(t, 300.0, p.Altitude())
	assert.Equal(t, geo.MapPoint(10, 20).Scale(300), p.Line().Vertices[1])
	assert.Equal(t, 0, f.sched.Len())
}

func TestChangeAltitude_DuringIntroRise(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "", 100, Options{})

	f.run(200 * time.Millisecond)
	p.ChangeAltitude(150)
	f.run(2 * time.Second)

	assert.Equal(t, 150.0, p.Altitude())
	assert.Equal(t, geo.MapPoint(10, 20).Scale(150), p.Line().Vertices[1])
}

func TestChangeAltitude_DuringIntroRiseKeepsLineEnd(t *testing.T) {
	f := newFixture()
	p := f.newPin(10, 20, "City", 100, Options{})

	f.run(3 * frame)
	before := p.Line().Vertices[1].Length()
	require.Less(t, before, 90.0, "the rise is still low")

	p.ChangeAltitude(150)
	f.run(frame)

	// the connector continues from where the rise left it
	assert.InDelta(t, before, p.Line().Vertices[1].Length(), 20)
	// the icon was placed at full altitude and moves from there
	assert.InDelta(t, 100, p.Top().Position.Length(), 20)

	f.run(2 * time.Second)
	assert.InDelta(t, 150, p.Line().Vertices[1].Length(), 1e-9)
	assert.InDelta(t, 150, p.Top().Position.Length(), 1e-9)
}

func TestWithCreated(t *testing.T) {
	f := newFixture()
	created := f.clock.Add(-time.Hour)

	p := New(1, 2, "", 1, f.graph, f.smoke, f.sched, Options{},
		WithRasterizer(f.raster),
		WithClock(func() time.Time { return f.clock }),
		WithCreated(created),
	)

	assert.Equal(t, created, p.Created())
	assert.Equal(t, time.Hour, p.Age())
}

func TestWithProjector(t *testing.T) {
	f := newFixture()
	proj := func(lat, lon float64) geo.Vec3 { return geo.Vec3{X: lat, Y: lon, Z: 1} }

	p := New(3, 4, "", 2, f.graph, f.smoke, f.sched, Options{},
		WithProjector(proj), WithRasterizer(f.raster))

	assert.Equal(t, geo.Vec3{X: 3, Y: 4, Z: 1}, p.Line().Vertices[0])
	assert.Equal(t, geo.Vec3{X: 6, Y: 8, Z: 2}, p.Top().Position)
}
