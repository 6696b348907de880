// Package engine resolves storeys, extracts quantities and groups systems over
// an immutable entity graph. A Session derives every lookup once per loaded
// model and is then safe for concurrent readers without locking.
package engine

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ifcquery/pkg/graph"
)

// SpaceMatch selects how a space-type filter is compared with a space's usage
// label.
type SpaceMatch string

// Space-type matching policies.
const (
	// SpaceMatchSubstring matches when the label contains the filter, ignoring case.
	SpaceMatchSubstring SpaceMatch = "substring"
	// SpaceMatchEqual matches when label and filter are equal, ignoring case.
	SpaceMatchEqual SpaceMatch = "equal"
	// SpaceMatchExact requires byte-for-byte equality.
	SpaceMatchExact SpaceMatch = "exact"
)

// Valid reports whether m names a known policy.
func (m SpaceMatch) Valid() bool {
	switch m {
	case SpaceMatchSubstring, SpaceMatchEqual, SpaceMatchExact:
		return true
	}
	return false
}

// Matches applies the policy. An empty filter matches every label.
func (m SpaceMatch) Matches(label, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	switch m {
	case SpaceMatchExact:
		return label == filter
	case SpaceMatchEqual:
		return strings.EqualFold(strings.TrimSpace(label), filter)
	default:
		return strings.Contains(strings.ToLower(label), strings.ToLower(filter))
	}
}

// Options tune a session.
type Options struct {
	SpaceMatch SpaceMatch
	// MEPTypes overrides DefaultMEPTypes for unassigned-system checks.
	MEPTypes []string
}

func (o Options) withDefaults() Options {
	if o.SpaceMatch == "" {
		o.SpaceMatch = SpaceMatchSubstring
	}
	if len(o.MEPTypes) == 0 {
		o.MEPTypes = DefaultMEPTypes
	}
	return o
}

var measuredDimensions = []graph.Dimension{graph.DimensionLength, graph.DimensionArea, graph.DimensionVolume}

// Session holds the derived structures for one loaded model. Nothing is
// shared between sessions; discard a session to drop its caches.
type Session struct {
	graph     *graph.Graph
	options   Options
	resolver  *Resolver
	extractor *Extractor
	grouper   *Grouper

	resolutions map[graph.ID]Resolution
	spaces      map[graph.ID]*graph.SpatialNode
	quantities  map[graph.Dimension]map[graph.ID]Measurement
	storeys     []*graph.SpatialNode
	groups      []SystemGroup
}

// NewSession derives storey resolutions, containing spaces, quantities and
// system groups for every product of g. The derivations run concurrently and
// stop early if ctx is cancelled.
func NewSession(ctx context.Context, g *graph.Graph, opts Options) (*Session, error) {
	if g == nil {
		return nil, fmt.Errorf("new session: nil graph")
	}
	opts = opts.withDefaults()
	if !opts.SpaceMatch.Valid() {
		return nil, fmt.Errorf("new session: unknown space match policy %q", opts.SpaceMatch)
	}
	s := &Session{
		graph:     g,
		options:   opts,
		resolver:  NewResolver(g),
		extractor: NewExtractor(g),
		grouper:   NewGrouper(g),
	}
	products := g.Products()

	resolutions := make(map[graph.ID]Resolution, len(products))
	spaces := make(map[graph.ID]*graph.SpatialNode, len(products))
	quantities := make(map[graph.Dimension]map[graph.ID]Measurement, len(measuredDimensions))
	for _, d := range measuredDimensions {
		quantities[d] = make(map[graph.ID]Measurement, len(products))
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		for _, p := range products {
			if err := ctx.Err(); err != nil {
				return err
			}
			resolutions[p.ID] = s.resolver.ResolveStoreyDiagnostic(p.ID)
		}
		return nil
	})
	eg.Go(func() error {
		for _, p := range products {
			if err := ctx.Err(); err != nil {
				return err
			}
			if space := s.resolver.ProductSpace(p.ID); space != nil {
				spaces[p.ID] = space
			}
		}
		return nil
	})
	for _, d := range measuredDimensions {
		cache := quantities[d]
		eg.Go(func() error {
			for _, p := range products {
				if err := ctx.Err(); err != nil {
					return err
				}
				cache[p.ID] = s.extractor.Extract(p.ID, d)
			}
			return nil
		})
	}
	eg.Go(func() error {
		s.storeys = SortStoreys(g.AllSpatialNodes(graph.SpatialStorey))
		s.groups = s.grouper.GroupSystemsByKind()
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	s.resolutions = resolutions
	s.spaces = spaces
	s.quantities = quantities
	return s, nil
}

// Graph returns the underlying graph.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Options returns the effective options.
func (s *Session) Options() Options { return s.options }

// ResolveStorey returns the owning storey of id, or nil for Unassigned.
func (s *Session) ResolveStorey(id graph.ID) *graph.SpatialNode {
	return s.ResolveStoreyDiagnostic(id).Storey
}

// ResolveStoreyDiagnostic returns the cached resolution for products and
// computes it on demand for other entities such as spaces.
func (s *Session) ResolveStoreyDiagnostic(id graph.ID) Resolution {
	if res, ok := s.resolutions[id]; ok {
		return res
	}
	return s.resolver.ResolveStoreyDiagnostic(id)
}

// ProductSpace returns the space holding id, or nil.
func (s *Session) ProductSpace(id graph.ID) *graph.SpatialNode {
	if _, ok := s.graph.Product(id); ok {
		return s.spaces[id]
	}
	return s.resolver.ProductSpace(id)
}

// BucketByStorey partitions products by resolved storey.
func (s *Session) BucketByStorey(products []*graph.Product) []Bucket {
	return BucketByStorey(products, s.ResolveStorey)
}

// Storeys returns every storey in elevation order.
func (s *Session) Storeys() []*graph.SpatialNode {
	return append([]*graph.SpatialNode(nil), s.storeys...)
}

// Spaces returns every space in graph order.
func (s *Session) Spaces() []*graph.SpatialNode {
	return s.graph.AllSpatialNodes(graph.SpatialSpace)
}

// ExtractQuantity returns the measurement of dimension d for id.
func (s *Session) ExtractQuantity(id graph.ID, d graph.Dimension) Measurement {
	if cache, ok := s.quantities[d]; ok {
		if m, ok := cache[id]; ok {
			return m
		}
	}
	return s.extractor.Extract(id, d)
}

// SumQuantity sums measurements over products, treating absent as 0.
func (s *Session) SumQuantity(products []*graph.Product, d graph.Dimension) Sum {
	var sum Sum
	for _, p := range products {
		sum.add(s.ExtractQuantity(p.ID, d))
	}
	return sum
}

// SpaceArea returns the recorded area of a space, falling back to its area
// quantities.
func (s *Session) SpaceArea(space *graph.SpatialNode) (float64, bool) {
	if space == nil {
		return 0, false
	}
	if space.Area != nil {
		return *space.Area, true
	}
	m := s.extractor.Extract(space.ID, graph.DimensionArea)
	return m.Value, m.Present
}

// MatchSpaceType applies the session's space-match policy to a space's usage
// label. A nil space never matches.
func (s *Session) MatchSpaceType(space *graph.SpatialNode, filter string) bool {
	if space == nil {
		return false
	}
	return s.options.SpaceMatch.Matches(space.UsageLabel(), filter)
}

// SystemsOf returns the systems id is grouped by.
func (s *Session) SystemsOf(id graph.ID) []*graph.System { return s.grouper.SystemsOf(id) }

// MembersOf returns the products of system id.
func (s *Session) MembersOf(id graph.ID) []*graph.Product { return s.grouper.MembersOf(id) }

// UnassignedMEPProducts returns ungrouped products of the whitelist types; a
// nil whitelist uses the session's configured MEP types.
func (s *Session) UnassignedMEPProducts(whitelist []string) []*graph.Product {
	if whitelist == nil {
		whitelist = s.options.MEPTypes
	}
	return s.grouper.UnassignedMEPProducts(whitelist)
}

// GroupSystemsByKind returns the non-empty system groups in reporting order.
func (s *Session) GroupSystemsByKind() []SystemGroup {
	out := make([]SystemGroup, len(s.groups))
	for i, group := range s.groups {
		out[i] = SystemGroup{Kind: group.Kind, Systems: append([]*graph.System(nil), group.Systems...)}
	}
	return out
}

// AvailableElementTypes returns the concrete product types in the model.
func (s *Session) AvailableElementTypes() []string { return s.graph.ElementTypes() }

// ElementDisplayName returns a human label for a type name.
func (s *Session) ElementDisplayName(typeName string) string { return graph.DisplayName(typeName) }

// Host returns the element id fills an opening in, and the opening.
func (s *Session) Host(id graph.ID) (host, opening *graph.Product) { return HostOf(s.graph, id) }

// DetectParapet screens p for parapet-channel signals.
func (s *Session) DetectParapet(p *graph.Product) ParapetReason { return s.extractor.DetectParapet(p) }
