package scene

import (
	"sort"

	"github.com/df07/lightpath/pkg/core"
)

// Leaf threshold: if we have this many or fewer primitives, store them in a leaf node
const leafThreshold = 8

// bvhNode is a node of the bounding volume hierarchy. Leaves hold primitive
// indices, internal nodes hold two children.
type bvhNode struct {
	bounds core.AABB
	left   *bvhNode
	right  *bvhNode
	prims  []int32
}

// BVH accelerates ray queries over a primitive slice it does not own
type BVH struct {
	root  *bvhNode
	prims []Primitive
}

// NewBVH builds a hierarchy over prims. The slice must not change afterwards.
func NewBVH(prims []Primitive) *BVH {
	bvh := &BVH{prims: prims}
	if len(prims) == 0 {
		return bvh
	}
	indices := make([]int32, len(prims))
	for i := range indices {
		indices[i] = int32(i)
	}
	bvh.root = bvh.build(indices)
	return bvh
}

// build uses a median split on the longest axis of the node bounds
func (bvh *BVH) build(indices []int32) *bvhNode {
	bounds := core.EmptyAABB()
	for _, i := range indices {
		bounds = bounds.Union(bvh.prims[i].bbox)
	}

	if len(indices) <= leafThreshold {
		return &bvhNode{bounds: bounds, prims: indices}
	}

	axis := bounds.LongestAxis()
	sort.Slice(indices, func(a, b int) bool {
		ca := bvh.prims[indices[a]].bbox.Center().Component(axis)
		cb := bvh.prims[indices[b]].bbox.Center().Component(axis)
		return ca < cb
	})

	mid := len(indices) / 2
	return &bvhNode{
		bounds: bounds,
		left:   bvh.build(indices[:mid]),
		right:  bvh.build(indices[mid:]),
	}
}

// Bounds returns the bounds of every primitive
func (bvh *BVH) Bounds() core.AABB {
	if bvh.root == nil {
		return core.EmptyAABB()
	}
	return bvh.root.bounds
}

// Intersect finds the closest hit inside the ray's [MinT, MaxT] interval
func (bvh *BVH) Intersect(ray *core.Ray, hit *Hit) bool {
	if bvh.root == nil {
		return false
	}
	closest := ray.MaxT
	return bvh.intersectNode(bvh.root, ray, &closest, hit)
}

func (bvh *BVH) intersectNode(node *bvhNode, ray *core.Ray, closest *float64, hit *Hit) bool {
	if !node.bounds.Hit(*ray, ray.MinT, *closest) {
		return false
	}

	if node.prims != nil {
		hitAnything := false
		var candidate Hit
		for _, i := range node.prims {
			if bvh.prims[i].Intersect(ray, ray.MinT, *closest, &candidate) {
				hitAnything = true
				*closest = candidate.T
				*hit = candidate
			}
		}
		return hitAnything
	}

	hitLeft := node.left != nil && bvh.intersectNode(node.left, ray, closest, hit)
	hitRight := node.right != nil && bvh.intersectNode(node.right, ray, closest, hit)
	return hitLeft || hitRight
}

// bvhStats summarizes the shape of the hierarchy
type bvhStats struct {
	totalNodes int
	leafNodes  int
	maxDepth   int
	totalPrims int
}

func (bvh *BVH) stats() bvhStats {
	var s bvhStats
	if bvh.root != nil {
		bvh.collectStats(bvh.root, 0, &s)
	}
	return s
}

func (bvh *BVH) collectStats(node *bvhNode, depth int, s *bvhStats) {
	s.totalNodes++
	s.maxDepth = max(s.maxDepth, depth)
	if node.prims != nil {
		s.leafNodes++
		s.totalPrims += len(node.prims)
		return
	}
	if node.left != nil {
		bvh.collectStats(node.left, depth+1, s)
	}
	if node.right != nil {
		bvh.collectStats(node.right, depth+1, s)
	}
}
