package raytracer

import (
	"cmp"
	"slices"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/models"
)

// Leaf threshold: nodes with this many or fewer triangles become leaves.
const leafThreshold = 8

// traversalStackSize bounds the traversal stack. Median splits keep the
// tree depth logarithmic, far below this.
const traversalStackSize = 64

// Hit describes a ray/triangle intersection.
type Hit struct {
	Triangle *Triangle
	T        float64
	Bary     math3d.Vec3
}

// bvhNode is a node of the flattened hierarchy. Interior nodes store their
// first child directly after themselves and the second at secondChild;
// leaves reference count triangles starting at offset.
type bvhNode struct {
	bounds      math3d.AABB
	offset      int
	count       int
	secondChild int
}

func (n *bvhNode) isLeaf() bool {
	return n.count > 0
}

// BVHStats describes the shape of a built hierarchy.
type BVHStats struct {
	Triangles int
	Nodes     int
	Leaves    int
	MaxDepth  int
	AvgDepth  float64
}

// BVH is a bounding volume hierarchy over triangles. It is built once and
// then shared read-only, so queries may run concurrently.
type BVH struct {
	nodes     []bvhNode
	triangles []Triangle
	built     bool
	stats     BVHStats
}

// NewBVH creates an unbuilt hierarchy.
func NewBVH() *BVH {
	return &BVH{}
}

// Build partitions all triangles of all buffers into the hierarchy.
// It panics if the hierarchy has already been built and not Reset.
// Building from no triangles yields a hierarchy that never reports a hit.
func (b *BVH) Build(buffers []models.Shape) {
	if b.built {
		panic("raytracer: BVH built twice without Reset")
	}

	total := 0
	for i := range buffers {
		total += buffers[i].TriangleCount()
	}
	b.triangles = make([]Triangle, 0, total)
	for i := range buffers {
		s := &buffers[i]
		for j := range s.TriangleCount() {
			v := s.Triangle(j)
			b.triangles = append(b.triangles, NewTriangle(v[0], v[1], v[2]))
		}
	}

	b.nodes = make([]bvhNode, 0, max(1, 2*total/leafThreshold))
	b.stats = BVHStats{Triangles: total}
	if total > 0 {
		centroids := make([]math3d.Vec3, total)
		for i := range b.triangles {
			centroids[i] = b.triangles[i].Centroid()
		}
		b.buildNode(0, total, centroids, 0)
		if b.stats.Leaves > 0 {
			b.stats.AvgDepth /= float64(b.stats.Leaves)
		}
	}
	b.stats.Nodes = len(b.nodes)
	b.built = true
}

// buildNode appends the node covering triangles [start, end) and its
// subtree, returning the node's index.
func (b *BVH) buildNode(start, end int, centroids []math3d.Vec3, depth int) int {
	bounds := math3d.EmptyAABB()
	for i := start; i < end; i++ {
		bounds = bounds.Union(b.triangles[i].Bounds())
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{bounds: bounds})
	b.stats.MaxDepth = max(b.stats.MaxDepth, depth)

	if end-start <= leafThreshold {
		b.nodes[idx].offset = start
		b.nodes[idx].count = end - start
		b.stats.Leaves++
		b.stats.AvgDepth += float64(depth)
		return idx
	}

	// Median split along the longest axis of the centroid bounds.
	centroidBounds := math3d.EmptyAABB()
	for i := start; i < end; i++ {
		centroidBounds = centroidBounds.Grow(centroids[i])
	}
	axis := centroidBounds.LongestAxis()
	b.sortRange(start, end, centroids, axis)

	mid := start + (end-start)/2
	b.buildNode(start, mid, centroids, depth+1)
	second := b.buildNode(mid, end, centroids, depth+1)
	b.nodes[idx].secondChild = second
	return idx
}

// sortRange orders triangles [start, end) by centroid along axis, keeping
// the centroid slice in step.
func (b *BVH) sortRange(start, end int, centroids []math3d.Vec3, axis int) {
	order := make([]int, end-start)
	for i := range order {
		order[i] = start + i
	}
	slices.SortStableFunc(order, func(i, j int) int {
		return cmp.Compare(centroids[i].Axis(axis), centroids[j].Axis(axis))
	})

	tris := make([]Triangle, len(order))
	cents := make([]math3d.Vec3, len(order))
	for i, o := range order {
		tris[i] = b.triangles[o]
		cents[i] = centroids[o]
	}
	copy(b.triangles[start:end], tris)
	copy(centroids[start:end], cents)
}

// Reset discards the hierarchy so that Build may be called again.
func (b *BVH) Reset() {
	b.nodes = nil
	b.triangles = nil
	b.stats = BVHStats{}
	b.built = false
}

// Built reports whether Build has been called since the last Reset.
func (b *BVH) Built() bool {
	return b.built
}

// Stats returns statistics collected during Build.
func (b *BVH) Stats() BVHStats {
	return b.stats
}

// Bounds returns the bounding box of the whole scene.
func (b *BVH) Bounds() math3d.AABB {
	if len(b.nodes) == 0 {
		return math3d.EmptyAABB()
	}
	return b.nodes[0].bounds
}

func (b *BVH) mustBeBuilt() {
	if !b.built {
		panic("raytracer: BVH queried before Build")
	}
}

// ClosestHit returns the nearest triangle hit within [r.TMin, r.TMax].
func (b *BVH) ClosestHit(r Ray) (Hit, bool) {
	return b.traverse(r, false)
}

// AnyHit returns the first triangle found within [r.TMin, r.TMax]. The hit
// is not necessarily the nearest one.
func (b *BVH) AnyHit(r Ray) (Hit, bool) {
	return b.traverse(r, true)
}

func (b *BVH) traverse(r Ray, stopAtFirst bool) (Hit, bool) {
	b.mustBeBuilt()
	if len(b.nodes) == 0 {
		return Hit{}, false
	}

	invDir := r.invDirection()
	if _, ok := b.nodes[0].bounds.Hit(r.Origin, invDir, r.TMin, r.TMax); !ok {
		return Hit{}, false
	}

	var best Hit
	found := false
	tMax := r.TMax

	var stack [traversalStackSize]int
	stack[0] = 0
	sp := 1

	for sp > 0 {
		sp--
		idx := stack[sp]
		node := &b.nodes[idx]

		if node.isLeaf() {
			for i := node.offset; i < node.offset+node.count; i++ {
				tri := &b.triangles[i]
				t, bary, ok := tri.Intersect(r, tMax)
				if !ok {
					continue
				}
				best = Hit{Triangle: tri, T: t, Bary: bary}
				found = true
				if stopAtFirst {
					return best, true
				}
				tMax = t
			}
			continue
		}

		// Visit the nearer child first by pushing it last.
		first, second := idx+1, node.secondChild
		tFirst, hitFirst := b.nodes[first].bounds.Hit(r.Origin, invDir, r.TMin, tMax)
		tSecond, hitSecond := b.nodes[second].bounds.Hit(r.Origin, invDir, r.TMin, tMax)

		switch {
		case hitFirst && hitSecond:
			if tFirst > tSecond {
				first, second = second, first
			}
			stack[sp] = second
			stack[sp+1] = first
			sp += 2
		case hitFirst:
			stack[sp] = first
			sp++
		case hitSecond:
			stack[sp] = second
			sp++
		}
	}

	return best, found
}
