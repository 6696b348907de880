package engine

import (
	"ifcquery/pkg/graph"
)

// HostMaterial classifies the element an opening-filler sits in.
type HostMaterial string

// Host materials, in detection priority order.
const (
	HostDrywall  HostMaterial = "drywall"
	HostConcrete HostMaterial = "concrete"
	HostBrick    HostMaterial = "brick"
	HostWood     HostMaterial = "wood"
	HostUnknown  HostMaterial = "unknown"
	HostNone     HostMaterial = "none"
)

// Label returns the heading used in reports.
func (m HostMaterial) Label() string {
	switch m {
	case HostDrywall:
		return "Drywall (GKB)"
	case HostConcrete:
		return "Concrete"
	case HostBrick:
		return "Brick / Masonry"
	case HostWood:
		return "Wood"
	case HostNone:
		return "No host"
	}
	return "Unknown"
}

var hostKeywords = []struct {
	material HostMaterial
	keywords []string
}{
	{HostDrywall, []string{"gkb", "gipskarton", "gipswand", "trockenbau", "trockenbauwand", "drywall", "plasterboard", "gypsum board", "gypsum wall"}},
	{HostConcrete, []string{"beton", "concrete", "stahlbeton"}},
	{HostBrick, []string{"ziegel", "brick", "mauerwerk", "masonry", "stein"}},
	{HostWood, []string{"holz", "wood", "timber"}},
}

// HostMaterials lists every material in report order.
var HostMaterials = []HostMaterial{HostDrywall, HostConcrete, HostBrick, HostWood, HostUnknown, HostNone}

var (
	parapetKeywords  = []string{"brüstungskanal", "bruestungskanal", "brüstung", "parapet"}
	potableKeywords  = []string{"edelstahl", "kupfer", "trinkwasser", "potable", "drinking"}
	heightKeywords   = []string{"height", "höhe", "elevation", "level"}
	parapetMinHeight = 0.8
	parapetMaxHeight = 1.3
)

// ParapetCandidateTypes lists the element types screened for parapet channels.
var ParapetCandidateTypes = []string{"IfcCableCarrierSegment", "IfcCableSegment", "IfcBuildingElementProxy"}

// HostOf returns the element that id fills an opening in, following
// fills_void to the opening and voids_element to its host. The first host in
// edge order wins.
func HostOf(g *graph.Graph, id graph.ID) (host, opening *graph.Product) {
	for _, fill := range g.RelationsOf(id, graph.RelFillsVoid) {
		for _, void := range g.RelationsOf(fill.To, graph.RelVoidsElement) {
			h, ok := g.Product(void.To)
			if !ok {
				continue
			}
			o, _ := g.Product(fill.To)
			return h, o
		}
	}
	return nil, nil
}

// ClassifyHost derives a host material from the host's name, type name and
// type description. Materials are tried in HostMaterials order and each one
// is matched against all three texts, so a drywall keyword anywhere wins over
// a concrete keyword in the name. The name falls back to the long name.
func ClassifyHost(host *graph.Product) HostMaterial {
	if host == nil {
		return HostNone
	}
	name := host.Name
	if name == "" {
		name = host.LongName
	}
	texts := []string{name, host.TypeName, host.TypeDescription}
	for _, entry := range hostKeywords {
		for _, text := range texts {
			if containsAny(text, entry.keywords) {
				return entry.material
			}
		}
	}
	return HostUnknown
}

// ParapetReason records why an element was identified as a parapet channel.
type ParapetReason struct {
	ByName    bool
	ByHeight  bool
	Height    float64
	HasHeight bool
}

// Detected reports whether either signal fired.
func (r ParapetReason) Detected() bool { return r.ByName || r.ByHeight }

// DetectParapet screens a product for parapet-channel signals: a keyword in
// its name or type name, or an installation height property inside the
// parapet band.
func (e *Extractor) DetectParapet(p *graph.Product) ParapetReason {
	var r ParapetReason
	r.ByName = containsAny(p.DisplayName(), parapetKeywords) || containsAny(p.TypeName, parapetKeywords)
	if h, ok := e.PropertyNumber(p.ID, heightKeywords...); ok {
		r.Height, r.HasHeight = h, true
		r.ByHeight = h >= parapetMinHeight && h <= parapetMaxHeight
	}
	return r
}

// IsPotableWater reports whether a pipe's name or type name marks it as a
// drinking water line.
func IsPotableWater(p *graph.Product) bool {
	return containsAny(p.DisplayName(), potableKeywords) || containsAny(p.TypeName, potableKeywords)
}
