package raytracer

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
)

var frontView = View{
	Position:  math3d.V3(1, 2, 3),
	Direction: math3d.V3(0, 0, -1),
	Right:     math3d.V3(1, 0, 0),
	Up:        math3d.V3(0, 1, 0),
}

func TestPrimaryRayCenter(t *testing.T) {
	vp := NewViewport(3, 3, 90)
	r := PrimaryRay(frontView, vp, 1, 1, math3d.Vec2{})

	if r.Origin != frontView.Position {
		t.Errorf("origin = %+v, want camera position", r.Origin)
	}
	if !approxVec(r.Direction, math3d.V3(0, 0, -1), 1e-12) {
		t.Errorf("center pixel direction = %+v", r.Direction)
	}
	if math.Abs(r.Direction.Len()-1) > 1e-12 {
		t.Errorf("direction not normalized: %v", r.Direction.Len())
	}
}

func TestPrimaryRayCorners(t *testing.T) {
	// 90 degree vertical field of view on a 2:1 image.
	vp := NewViewport(200, 100, 90)

	tests := []struct {
		name   string
		x, y   int
		jitter math3d.Vec2
		wantX  float64
		wantY  float64
	}{
		{"top left edge", 0, 0, math3d.V2(-0.5, -0.5), -2, 1},
		{"bottom right edge", 199, 99, math3d.V2(0.5, 0.5), 2, -1},
		{"top right edge", 199, 0, math3d.V2(0.5, -0.5), 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PrimaryRay(frontView, vp, tt.x, tt.y, tt.jitter)
			// Project back onto the image plane at distance 1.
			d := r.Direction.Scale(1 / -r.Direction.Z)
			if math.Abs(d.X-tt.wantX) > 1e-9 || math.Abs(d.Y-tt.wantY) > 1e-9 {
				t.Errorf("image plane point = (%v, %v), want (%v, %v)", d.X, d.Y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestPrimaryRayDeterministic(t *testing.T) {
	vp := NewViewport(64, 48, 60)
	j := math3d.V2(0.13, -0.27)

	a := PrimaryRay(frontView, vp, 10, 20, j)
	b := PrimaryRay(frontView, vp, 10, 20, j)
	if a != b {
		t.Errorf("same inputs gave %+v and %+v", a, b)
	}

	c := PrimaryRay(frontView, vp, 10, 20, math3d.Vec2{})
	if a == c {
		t.Error("jitter should move the sample")
	}
}

func TestFieldOfViewScale(t *testing.T) {
	if s := FieldOfViewScale(90); math.Abs(s-1) > 1e-12 {
		t.Errorf("FieldOfViewScale(90) = %v, want 1", s)
	}
	if s := FieldOfViewScale(60); math.Abs(s-1/math.Sqrt(3)) > 1e-12 {
		t.Errorf("FieldOfViewScale(60) = %v", s)
	}
}
