package engine

import (
	"math"
	"sort"
	"strings"

	"ifcquery/pkg/graph"
)

// UnassignedLabel names the bucket for products with no resolvable storey.
const UnassignedLabel = "Unassigned"

// Step records which cascade step produced a storey.
type Step string

// Cascade steps, in evaluation order.
const (
	StepContainment Step = "containment"
	StepReference   Step = "reference"
	StepSpace       Step = "space"
	StepAggregation Step = "aggregation"
	StepUnassigned  Step = "unassigned"
)

// Resolution is the diagnostic outcome of storey resolution. Storey is nil
// when the product is Unassigned.
type Resolution struct {
	Storey *graph.SpatialNode
	Step   Step
	// Observed lists every relationship kind leaving an entity visited by the
	// cascade, in graph.RelationKinds order. It is empty only for a product
	// with no outbound edges at all.
	Observed []graph.RelationKind
	// Visited lists the entities walked, in visiting order.
	Visited []graph.ID
}

// Assigned reports whether a concrete storey was found.
func (r Resolution) Assigned() bool { return r.Storey != nil }

// SpatialLink reports whether any spatial relationship was observed.
func (r Resolution) SpatialLink() bool {
	for _, kind := range r.Observed {
		if kind.Spatial() {
			return true
		}
	}
	return false
}

// Label returns the storey display name or UnassignedLabel.
func (r Resolution) Label() string {
	if r.Storey == nil {
		return UnassignedLabel
	}
	return r.Storey.DisplayName()
}

// Resolver determines owning storeys. It holds no state besides the graph.
type Resolver struct {
	graph *graph.Graph
}

// NewResolver returns a resolver over g.
func NewResolver(g *graph.Graph) *Resolver {
	return &Resolver{graph: g}
}

// ResolveStorey returns the owning storey of id, or nil for Unassigned.
func (r *Resolver) ResolveStorey(id graph.ID) *graph.SpatialNode {
	return r.ResolveStoreyDiagnostic(id).Storey
}

// ResolveStoreyDiagnostic runs the resolution cascade and reports how the
// answer was reached.
func (r *Resolver) ResolveStoreyDiagnostic(id graph.ID) Resolution {
	w := &walker{graph: r.graph, visited: make(map[graph.ID]bool), observed: make(map[graph.RelationKind]bool)}
	storey, step := w.resolve(id)
	res := Resolution{Storey: storey, Step: step, Visited: w.order}
	if storey == nil {
		res.Step = StepUnassigned
	}
	for _, kind := range graph.RelationKinds {
		if w.observed[kind] {
			res.Observed = append(res.Observed, kind)
		}
	}
	return res
}

type walker struct {
	graph    *graph.Graph
	visited  map[graph.ID]bool
	observed map[graph.RelationKind]bool
	order    []graph.ID
}

func (w *walker) visit(id graph.ID) bool {
	if w.visited[id] {
		return false
	}
	w.visited[id] = true
	w.order = append(w.order, id)
	for _, kind := range w.graph.OutboundKinds(id) {
		w.observed[kind] = true
	}
	return true
}

// resolve evaluates the cascade for one entity. Spaces and assemblies met on
// the way are resolved recursively; the visited set bounds the recursion.
func (w *walker) resolve(id graph.ID) (*graph.SpatialNode, Step) {
	if !w.visit(id) {
		return nil, StepUnassigned
	}

	var found []*graph.SpatialNode
	direct := []struct {
		kind graph.RelationKind
		step Step
	}{
		{graph.RelContainedIn, StepContainment},
		{graph.RelReferencedIn, StepReference},
	}
	for _, d := range direct {
		for _, edge := range w.graph.RelationsOf(id, d.kind) {
			node, ok := w.graph.SpatialNode(edge.To)
			if !ok {
				continue
			}
			if node.IsStorey() {
				w.order = append(w.order, node.ID)
				return node, d.step
			}
			found = append(found, node)
		}
	}

	for _, node := range found {
		if !node.IsSpace() {
			continue
		}
		if storey, _ := w.resolve(node.ID); storey != nil {
			return storey, StepSpace
		}
	}

	// Ascend from every node found so far, spaces included, then from the
	// entity itself.
	origins := make([]graph.ID, 0, len(found)+1)
	for _, node := range found {
		origins = append(origins, node.ID)
	}
	origins = append(origins, id)
	for _, origin := range origins {
		if storey := w.ascend(origin); storey != nil {
			return storey, StepAggregation
		}
	}
	return nil, StepUnassigned
}

// ascend follows AggregatesInto edges upward from id until a storey is found.
func (w *walker) ascend(id graph.ID) *graph.SpatialNode {
	for _, edge := range w.graph.RelationsOf(id, graph.RelAggregatesInto) {
		parent, ok := w.graph.SpatialNode(edge.To)
		switch {
		case ok && parent.IsStorey():
			w.order = append(w.order, parent.ID)
			return parent
		case ok && !parent.IsSpace():
			if w.visit(parent.ID) {
				if storey := w.ascend(parent.ID); storey != nil {
					return storey
				}
			}
		default:
			// a space or an enclosing assembly runs the full cascade
			if storey, _ := w.resolve(edge.To); storey != nil {
				return storey
			}
		}
	}
	return nil
}

// ProductSpace returns the space that directly holds id through containment,
// reference or aggregation, or nil.
func (r *Resolver) ProductSpace(id graph.ID) *graph.SpatialNode {
	return r.productSpace(id, make(map[graph.ID]bool))
}

func (r *Resolver) productSpace(id graph.ID, visited map[graph.ID]bool) *graph.SpatialNode {
	if visited[id] {
		return nil
	}
	visited[id] = true
	for _, kind := range []graph.RelationKind{graph.RelContainedIn, graph.RelReferencedIn} {
		for _, edge := range r.graph.RelationsOf(id, kind) {
			if node, ok := r.graph.SpatialNode(edge.To); ok && node.IsSpace() {
				return node
			}
		}
	}
	for _, edge := range r.graph.RelationsOf(id, graph.RelAggregatesInto) {
		if node, ok := r.graph.SpatialNode(edge.To); ok {
			if node.IsSpace() {
				return node
			}
			continue
		}
		if space := r.productSpace(edge.To, visited); space != nil {
			return space
		}
	}
	return nil
}

// Bucket groups products resolved to the same storey.
type Bucket struct {
	Storey   *graph.SpatialNode
	Products []*graph.Product
}

// Unassigned reports whether b is the sentinel bucket.
func (b Bucket) Unassigned() bool { return b.Storey == nil }

// Label returns the storey display name or UnassignedLabel.
func (b Bucket) Label() string {
	if b.Storey == nil {
		return UnassignedLabel
	}
	return b.Storey.DisplayName()
}

// Count returns the number of products in the bucket.
func (b Bucket) Count() int { return len(b.Products) }

// MissingElevation reports a storey ordered last for lack of elevation.
func (b Bucket) MissingElevation() bool { return b.Storey != nil && b.Storey.Elevation == nil }

// BucketByStorey partitions products by resolved storey. Buckets are ordered
// by elevation ascending, then name; Unassigned comes last. Products keep
// their input order within a bucket.
func BucketByStorey(products []*graph.Product, resolve func(graph.ID) *graph.SpatialNode) []Bucket {
	index := make(map[graph.ID]int)
	var buckets []Bucket
	unassigned := -1
	for _, p := range products {
		storey := resolve(p.ID)
		if storey == nil {
			if unassigned < 0 {
				unassigned = len(buckets)
				buckets = append(buckets, Bucket{})
			}
			buckets[unassigned].Products = append(buckets[unassigned].Products, p)
			continue
		}
		i, ok := index[storey.ID]
		if !ok {
			i = len(buckets)
			index[storey.ID] = i
			buckets = append(buckets, Bucket{Storey: storey})
		}
		buckets[i].Products = append(buckets[i].Products, p)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return lessStorey(buckets[i].Storey, buckets[j].Storey)
	})
	return buckets
}

// SortStoreys orders storeys by elevation ascending. Storeys without an
// elevation sort as if at +infinity; ties break by name, then id.
func SortStoreys(storeys []*graph.SpatialNode) []*graph.SpatialNode {
	out := append([]*graph.SpatialNode(nil), storeys...)
	sort.SliceStable(out, func(i, j int) bool { return lessStorey(out[i], out[j]) })
	return out
}

// lessStorey treats nil as the Unassigned bucket.
func lessStorey(a, b *graph.SpatialNode) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	ea, eb := elevation(a), elevation(b)
	if ea != eb {
		return ea < eb
	}
	if na, nb := a.DisplayName(), b.DisplayName(); na != nb {
		return na < nb
	}
	return a.ID < b.ID
}

func elevation(n *graph.SpatialNode) float64 {
	if n.Elevation == nil {
		return math.Inf(1)
	}
	return *n.Elevation
}

// MatchStorey reports whether a resolved storey satisfies a storey filter: an
// exact id or a case-insensitive substring of the display label.
func MatchStorey(storey *graph.SpatialNode, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	if storey != nil && string(storey.ID) == filter {
		return true
	}
	label := UnassignedLabel
	if storey != nil {
		label = storey.DisplayName()
	}
	return strings.Contains(strings.ToLower(label), strings.ToLower(filter))
}
