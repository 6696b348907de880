// Package queryapi defines the request and result contract of the query
// executor, shared by the HTTP adapter, the CLI and export rendering.
package queryapi

import (
	"strings"
)

// Category groups query types the way the query UI presents them.
type Category string

// Query categories.
const (
	CategoryQuantity    Category = "quantity"
	CategoryMeasurement Category = "measurement"
	CategoryContext     Category = "context"
	CategorySystems     Category = "systems"
	CategorySpaces      Category = "spaces"
	CategoryCompliance  Category = "compliance"
	CategoryPlanning    Category = "planning"
	CategoryMaintenance Category = "maintenance"
	CategoryCompound    Category = "compound"
	CategoryAnalysis    Category = "analysis"
)

// QueryType selects one aggregation operation.
type QueryType string

// Query types understood by the executor.
const (
	CountTotal               QueryType = "count_total"
	CountByStorey            QueryType = "count_by_storey"
	SumLengthTotal           QueryType = "sum_length_total"
	SumAreaTotal             QueryType = "sum_area_total"
	SumVolumeTotal           QueryType = "sum_volume_total"
	SumLengthByStorey        QueryType = "sum_length_by_storey"
	LengthBySystem           QueryType = "length_by_system"
	ElementsInSpaceType      QueryType = "elements_in_space_type"
	ElementsInHost           QueryType = "elements_in_host"
	ElementsPerSpace         QueryType = "elements_per_space"
	HostClassification       QueryType = "host_classification"
	SystemMembershipListing  QueryType = "system_membership_listing"
	UnassignedSystemProducts QueryType = "unassigned_system_products"
	ElementsPerCircuit       QueryType = "elements_per_circuit"
	CountRooms               QueryType = "count_rooms"
	NetAreaPerStorey         QueryType = "net_area_per_storey"
	AreaBySpaceType          QueryType = "area_by_space_type"
	ElementsPerArea          QueryType = "elements_per_area"
	ComplianceAllSpaces      QueryType = "compliance_all_spaces_have_element"
	PlanningDensityRanking   QueryType = "planning_density_ranking"
	CountMaintainable        QueryType = "count_maintainable"
	LocateDistributionBoards QueryType = "locate_distribution_boards"
	CompoundFilteredCount    QueryType = "compound_filtered_count"
	ParapetChannels          QueryType = "parapet_channels"
	PipeClassification       QueryType = "pipe_classification"
)

// RankBy selects the grouping of a density ranking.
type RankBy string

// Ranking groupings.
const (
	RankByStorey RankBy = "storey"
	RankBySpace  RankBy = "space"
)

// Filters narrow a query. Which fields a query type requires is declared by
// its Descriptor.
type Filters struct {
	Storey    string `json:"storey,omitempty"`
	SpaceType string `json:"space_type,omitempty"`
	HostType  string `json:"host_type,omitempty"`
	System    string `json:"system,omitempty"`
	RankBy    RankBy `json:"rank_by,omitempty"`
	PerArea   bool   `json:"per_area,omitempty"`
	Detail    bool   `json:"detail,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Request is a structured query. Category may be left empty; when set it must
// match the query type's category.
type Request struct {
	Category    Category  `json:"category,omitempty"`
	QueryType   QueryType `json:"query_type"`
	ElementType string    `json:"element_type,omitempty"`
	Filters     Filters   `json:"filters"`
}

// Normalize trims whitespace from every free-text field.
func (r Request) Normalize() Request {
	r.Category = Category(strings.TrimSpace(string(r.Category)))
	r.QueryType = QueryType(strings.TrimSpace(string(r.QueryType)))
	r.ElementType = strings.TrimSpace(r.ElementType)
	r.Filters.Storey = strings.TrimSpace(r.Filters.Storey)
	r.Filters.SpaceType = strings.TrimSpace(r.Filters.SpaceType)
	r.Filters.HostType = strings.TrimSpace(r.Filters.HostType)
	r.Filters.System = strings.TrimSpace(r.Filters.System)
	r.Filters.RankBy = RankBy(strings.TrimSpace(string(r.Filters.RankBy)))
	return r
}

// Parameter names used in descriptors and MissingParameterError.
const (
	ParamElementType = "element_type"
	ParamStorey      = "storey"
	ParamSpaceType   = "space_type"
	ParamHostType    = "host_type"
	ParamSystem      = "system"
	ParamRankBy      = "rank_by"
	ParamPerArea     = "per_area"
	ParamDetail      = "detail"
	ParamLimit       = "limit"
)

// Value returns the string form of a named parameter, or "" when unset.
func (r Request) Value(name string) string {
	switch name {
	case ParamElementType:
		return r.ElementType
	case ParamStorey:
		return r.Filters.Storey
	case ParamSpaceType:
		return r.Filters.SpaceType
	case ParamHostType:
		return r.Filters.HostType
	case ParamSystem:
		return r.Filters.System
	case ParamRankBy:
		return string(r.Filters.RankBy)
	}
	return ""
}

// Parameter describes one request field a query type reads.
type Parameter struct {
	Name        string   `json:"name"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Descriptor is the catalogue entry for a query type.
type Descriptor struct {
	QueryType   QueryType   `json:"query_type"`
	Category    Category    `json:"category"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Parameters  []Parameter `json:"parameters"`
	Result      ResultKind  `json:"result"`
}

// Required returns the names of the required parameters.
func (d Descriptor) Required() []string {
	var out []string
	for _, p := range d.Parameters {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Format is an export rendering format.
type Format string

// Export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Valid reports whether f is a supported export format.
func (f Format) Valid() bool {
	return f == FormatJSON || f == FormatCSV || f == FormatHTML
}
