package raytracer

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/models"
)

func vertex(x, y, z float64) models.Vertex {
	return models.Vertex{Position: math3d.V3(x, y, z)}
}

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func approxVec(a, b math3d.Vec3, eps float64) bool {
	return approx(a.X, b.X, eps) && approx(a.Y, b.Y, eps) && approx(a.Z, b.Z, eps)
}

// unitTriangle lies in the z=0 plane.
func unitTriangle() Triangle {
	return NewTriangle(vertex(-1, -1, 0), vertex(1, -1, 0), vertex(0, 1, 0))
}

func TestTriangleIntersect(t *testing.T) {
	tri := unitTriangle()

	tests := []struct {
		name     string
		ray      Ray
		hit      bool
		distance float64
	}{
		{"straight on", NewRay(math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)), true, 5},
		{"from behind", NewRay(math3d.V3(0, 0, -2), math3d.V3(0, 0, 1)), true, 2},
		{"oblique", NewRay(math3d.V3(3, 0, 3), math3d.V3(-1, 0, -1)), true, 3 * math.Sqrt2},
		{"outside", NewRay(math3d.V3(5, 5, 5), math3d.V3(0, 0, -1)), false, 0},
		{"pointing away", NewRay(math3d.V3(0, 0, 5), math3d.V3(0, 0, 1)), false, 0},
		{"parallel", NewRay(math3d.V3(-5, 0, 0), math3d.V3(1, 0, 0)), false, 0},
		{"beyond interval", NewRay(math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)).WithInterval(0, 4), false, 0},
		{"before interval", NewRay(math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)).WithInterval(6, 10), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, bary, ok := tri.Intersect(tt.ray, tt.ray.TMax)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if !ok {
				return
			}
			if !approx(d, tt.distance, 1e-9) {
				t.Errorf("distance = %v, want %v", d, tt.distance)
			}
			if !approx(bary.Sum(), 1, 1e-9) {
				t.Errorf("barycentric weights sum to %v", bary.Sum())
			}
			if p := tri.Position(bary); !approxVec(p, tt.ray.At(d), 1e-9) {
				t.Errorf("interpolated position %+v, ray point %+v", p, tt.ray.At(d))
			}
		})
	}
}

func TestTriangleDegenerate(t *testing.T) {
	tests := []struct {
		name string
		tri  Triangle
	}{
		{"collinear", NewTriangle(vertex(0, 0, 0), vertex(1, 1, 0), vertex(2, 2, 0))},
		{"point", NewTriangle(vertex(1, 1, 0), vertex(1, 1, 0), vertex(1, 1, 0))},
		{"nan vertex", NewTriangle(vertex(math.NaN(), 0, 0), vertex(1, 0, 0), vertex(0, 1, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRay(math3d.V3(0.5, 0.5, 1), math3d.V3(0, 0, -1))
			if _, _, ok := tt.tri.Intersect(r, math.Inf(1)); ok {
				t.Error("degenerate triangle should never be hit")
			}
		})
	}
}

func TestTriangleNormal(t *testing.T) {
	a, b, c := vertex(0, 0, 0), vertex(1, 0, 0), vertex(0, 1, 0)
	a.Normal = math3d.V3(1, 0, 0)
	b.Normal = math3d.V3(0, 1, 0)
	c.Normal = math3d.V3(0, 0, 1)
	tri := NewTriangle(a, b, c)

	n := tri.Normal(math3d.V3(0.5, 0.5, 0))
	if !approxVec(n, math3d.V3(math.Sqrt2/2, math.Sqrt2/2, 0), 1e-9) {
		t.Errorf("interpolated normal = %+v", n)
	}

	// Opposing normals cancel; the face normal is used instead.
	a.Normal, b.Normal, c.Normal = math3d.V3(0, 0, 1), math3d.V3(0, 0, -1), math3d.Vec3{}
	tri = NewTriangle(a, b, c)
	if n := tri.Normal(math3d.V3(0.5, 0.5, 0)); n != math3d.V3(0, 0, 1) {
		t.Errorf("fallback normal = %+v, want geometric normal", n)
	}
}
