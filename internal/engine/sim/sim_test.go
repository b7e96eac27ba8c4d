package sim

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/geoviewer/camsync/internal/geo"
	"github.com/geoviewer/camsync/pkg/core"
)

func testView() core.AbstractView {
	return core.AbstractView{
		LookAt:  core.GeoPoint{Lon: 7.01, Lat: 47.0},
		Tilt:    45,
		Heading: 90,
		Range:   2000,
	}
}

func TestNew_Defaults(t *testing.T) {
	eng := New(Config{})

	if eng.Name() != "globe-sim" {
		t.Errorf("expected default name globe-sim, got %q", eng.Name())
	}
	look := eng.ViewAsLookAt()
	want := DefaultView()
	if look.Position != want.LookAt {
		t.Errorf("expected default look-at %v, got %v", want.LookAt, look.Position)
	}
	if look.Range != want.Range {
		t.Errorf("expected default range %f, got %f", want.Range, look.Range)
	}
	if eng.TransitionSpeed() != core.TransitionDefault {
		t.Errorf("expected default transition speed, got %v", eng.TransitionSpeed())
	}
}

func TestName_Configured(t *testing.T) {
	eng := New(Config{Name: "test-globe"})
	if eng.Name() != "test-globe" {
		t.Errorf("expected configured name, got %q", eng.Name())
	}
}

func TestViewReadouts_Consistent(t *testing.T) {
	view := testView()
	eng := New(Config{InitialView: view})

	cam := eng.ViewAsCamera()
	look := eng.ViewAsLookAt()

	if look.Position != view.LookAt {
		t.Errorf("expected look-at %v, got %v", view.LookAt, look.Position)
	}
	if cam.Tilt != view.Tilt || cam.Heading != view.Heading {
		t.Errorf("expected camera tilt/heading %f/%f, got %f/%f",
			view.Tilt, view.Heading, cam.Tilt, cam.Heading)
	}

	// the camera sits one ground distance away from the look-at point
	ground := geo.GroundDistance(view.Range, view.Tilt)
	dist := geo.Distance(cam.Position, look.Position)
	if math.Abs(dist-ground) > 1 {
		t.Errorf("expected camera %f m from look-at, got %f", ground, dist)
	}

	wantAlt := view.Range * math.Cos(view.Tilt*math.Pi/180)
	if math.Abs(cam.Altitude-wantAlt) > 1e-6 {
		t.Errorf("expected camera altitude %f, got %f", wantAlt, cam.Altitude)
	}
}

func TestCameraPlacement_HeadingRoundTrip(t *testing.T) {
	// the negated bearing from the camera toward the look-at point must
	// read back as the stored heading, for any heading
	for _, heading := range []float64{0, 45, 90, 210, 300} {
		view := testView()
		view.Heading = heading
		eng := New(Config{InitialView: view})

		cam := eng.ViewAsCamera()
		look := eng.ViewAsLookAt()

		got := -geo.Bearing(cam.Position, look.Position)
		if got < 0 {
			got += 360
		}
		diff := math.Abs(got - heading)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 0.05 {
			t.Errorf("heading %f: expected round trip ~%f, got %f", heading, heading, got)
		}
	}
}

func TestCameraPlacement_NadirView(t *testing.T) {
	view := testView()
	view.Tilt = 0
	eng := New(Config{InitialView: view})

	cam := eng.ViewAsCamera()
	if dist := geo.Distance(cam.Position, view.LookAt); dist > 0.01 {
		t.Errorf("expected camera above look-at at tilt 0, got %f m away", dist)
	}
	if math.Abs(cam.Altitude-view.Range) > 1e-6 {
		t.Errorf("expected camera altitude %f at tilt 0, got %f", view.Range, cam.Altitude)
	}
}

func TestApplyView_LandsOnNextStep(t *testing.T) {
	eng := New(Config{InitialView: testView()})

	pushed := core.AbstractView{
		LookAt:  core.GeoPoint{Lon: 7.05, Lat: 47.02},
		Tilt:    60,
		Heading: 180,
		Range:   3500,
	}
	if err := eng.ApplyView(pushed); err != nil {
		t.Fatalf("unexpected error applying view: %v", err)
	}

	// nothing changes until the next frame
	if look := eng.ViewAsLookAt(); look.Position != testView().LookAt {
		t.Errorf("expected view unchanged before step, got %v", look.Position)
	}

	eng.Step()

	look := eng.ViewAsLookAt()
	if look.Position != pushed.LookAt {
		t.Errorf("expected look-at %v after step, got %v", pushed.LookAt, look.Position)
	}
	if look.Tilt != pushed.Tilt || look.Heading != pushed.Heading || look.Range != pushed.Range {
		t.Errorf("expected pushed view after step, got tilt %f heading %f range %f",
			look.Tilt, look.Heading, look.Range)
	}
}

func TestApplyView_LatestPendingWins(t *testing.T) {
	eng := New(Config{InitialView: testView()})

	first := testView()
	first.Heading = 10
	second := testView()
	second.Heading = 20
	if err := eng.ApplyView(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := eng.ApplyView(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eng.Step()

	if look := eng.ViewAsLookAt(); look.Heading != 20 {
		t.Errorf("expected latest pending view to win, got heading %f", look.Heading)
	}
}

func TestApplyView_InvalidRange(t *testing.T) {
	eng := New(Config{})
	view := testView()
	view.Range = 0
	if err := eng.ApplyView(view); err == nil {
		t.Error("expected error for non-positive range")
	}
}

func TestApplyView_InvalidTilt(t *testing.T) {
	eng := New(Config{})
	for _, tilt := range []float64{-1, 90.5} {
		view := testView()
		view.Tilt = tilt
		if err := eng.ApplyView(view); err == nil {
			t.Errorf("expected error for tilt %f", tilt)
		}
	}
}

func TestApplyView_BufferFull(t *testing.T) {
	eng := New(Config{})
	for i := 0; i < pendingViewBuffer; i++ {
		if err := eng.ApplyView(testView()); err != nil {
			t.Fatalf("unexpected error at push %d: %v", i, err)
		}
	}
	if err := eng.ApplyView(testView()); err == nil {
		t.Error("expected error when pending buffer is full")
	}

	// a frame drains the buffer and pushes work again
	eng.Step()
	if err := eng.ApplyView(testView()); err != nil {
		t.Errorf("unexpected error after drain: %v", err)
	}
}

func TestStep_AdvancesOrbit(t *testing.T) {
	view := testView()
	view.Heading = 355
	eng := New(Config{OrbitDegPerFrame: 10, InitialView: view})

	eng.Step()
	if got := eng.ViewAsLookAt().Heading; math.Abs(got-5) > 1e-9 {
		t.Errorf("expected heading wrapped to 5, got %f", got)
	}
	eng.Step()
	if got := eng.ViewAsLookAt().Heading; math.Abs(got-15) > 1e-9 {
		t.Errorf("expected heading 15, got %f", got)
	}
}

func TestStep_StationaryWithoutOrbit(t *testing.T) {
	eng := New(Config{InitialView: testView()})
	eng.Step()
	eng.Step()
	if got := eng.ViewAsLookAt().Heading; got != testView().Heading {
		t.Errorf("expected heading unchanged, got %f", got)
	}
}

func TestStep_NotifiesListeners(t *testing.T) {
	eng := New(Config{})

	var m sync.Mutex
	calls := map[string]int{}
	listen := func(name string) func() {
		return func() {
			m.Lock()
			defer m.Unlock()
			calls[name]++
		}
	}
	eng.AddFrameEndListener(listen("a"))
	eng.AddFrameEndListener(listen("b"))

	eng.Step()
	eng.Step()

	m.Lock()
	defer m.Unlock()
	if calls["a"] != 2 || calls["b"] != 2 {
		t.Errorf("expected both listeners called twice, got %v", calls)
	}
}

func TestStep_ListenerReadsEngine(t *testing.T) {
	// listeners read views back through the handle, exactly like the sync
	// controller does on frame-end
	eng := New(Config{InitialView: testView()})

	var got core.LookAtView
	eng.AddFrameEndListener(func() {
		got = eng.ViewAsLookAt()
	})

	eng.Step()

	if got.Range != testView().Range {
		t.Errorf("expected listener to read range %f, got %f", testView().Range, got.Range)
	}
}

func TestRemoveFrameEndListener(t *testing.T) {
	eng := New(Config{})

	calls := 0
	id := eng.AddFrameEndListener(func() { calls++ })
	eng.Step()
	eng.RemoveFrameEndListener(id)
	eng.Step()

	if calls != 1 {
		t.Errorf("expected 1 call after removal, got %d", calls)
	}

	// unknown ids are ignored
	eng.RemoveFrameEndListener(9999)
}

func TestSetTransitionSpeed(t *testing.T) {
	eng := New(Config{})
	if err := eng.SetTransitionSpeed(core.TransitionInstant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eng.TransitionSpeed() != core.TransitionInstant {
		t.Errorf("expected instant transitions, got %v", eng.TransitionSpeed())
	}
}

func TestFrames_CountsSteps(t *testing.T) {
	eng := New(Config{})
	if eng.Frames() != 0 {
		t.Errorf("expected 0 frames initially, got %d", eng.Frames())
	}
	eng.Step()
	eng.Step()
	eng.Step()
	if eng.Frames() != 3 {
		t.Errorf("expected 3 frames, got %d", eng.Frames())
	}
}

func TestStartStop_FrameLoop(t *testing.T) {
	eng := New(Config{FrameInterval: time.Millisecond})
	eng.Start()

	deadline := time.Now().Add(2 * time.Second)
	for eng.Frames() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	eng.Stop()

	if eng.Frames() < 3 {
		t.Fatalf("expected at least 3 frames, got %d", eng.Frames())
	}
	frames := eng.Frames()
	time.Sleep(20 * time.Millisecond)
	if eng.Frames() != frames {
		t.Errorf("expected frame counter frozen after stop, got %d after %d", eng.Frames(), frames)
	}
}
