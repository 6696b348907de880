// Package persistence stores resolved-graph snapshots: the storeys of a loaded
// model and every product with the storey and space it resolved to. A
// snapshot answers floor queries without reloading the model, and can be
// rebuilt from the model at any time.
package persistence

import (
	"context"
	"errors"
	"time"

	"ifcquery/internal/engine"
)

// ErrSnapshotNotFound is returned for an unknown model id.
var ErrSnapshotNotFound = errors.New("persistence: snapshot not found")

// Project identifies the model a snapshot was taken from.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Schema      string `json:"schema,omitempty"`
	Description string `json:"description,omitempty"`
}

// Storey is a storey row. Position is its index in elevation order.
type Storey struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Elevation *float64 `json:"elevation,omitempty"`
	Position  int      `json:"position"`
}

// Product is a product row. StoreyID is empty for unassigned products and
// SpaceID is empty when no containing space resolved.
type Product struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	StoreyID string `json:"storey_id,omitempty"`
	SpaceID  string `json:"space_id,omitempty"`
	Step     string `json:"step"`
}

// Snapshot is the resolved storey assignment of every product in one model.
type Snapshot struct {
	ModelID   string    `json:"model_id"`
	Project   Project   `json:"project"`
	Storeys   []Storey  `json:"storeys"`
	Products  []Product `json:"products"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary lists a stored snapshot without its rows.
type Summary struct {
	ModelID     string    `json:"model_id"`
	ProjectName string    `json:"project_name"`
	Storeys     int       `json:"storeys"`
	Products    int       `json:"products"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists snapshots keyed by model id. SaveSnapshot replaces any
// existing snapshot of the same model.
type Store interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshot(ctx context.Context, modelID string) (Snapshot, error)
	DeleteSnapshot(ctx context.Context, modelID string) (bool, error)
	ListSnapshots(ctx context.Context) ([]Summary, error)
	Close() error
}

// Summarize returns the listing entry for snap.
func (s Snapshot) Summarize() Summary {
	return Summary{
		ModelID:     s.ModelID,
		ProjectName: s.Project.Name,
		Storeys:     len(s.Storeys),
		Products:    len(s.Products),
		CreatedAt:   s.CreatedAt,
	}
}

// FromSession captures the resolved storey and space of every product in
// the session, in graph order.
func FromSession(modelID string, s *engine.Session, at time.Time) Snapshot {
	g := s.Graph()
	p := g.Project()
	snap := Snapshot{
		ModelID:   modelID,
		Project:   Project{ID: string(p.ID), Name: p.Name, Schema: p.Schema, Description: p.Description},
		CreatedAt: at.UTC(),
	}
	for i, st := range s.Storeys() {
		snap.Storeys = append(snap.Storeys, Storey{
			ID:        string(st.ID),
			Name:      st.DisplayName(),
			Elevation: cloneFloat(st.Elevation),
			Position:  i,
		})
	}
	for _, prod := range g.Products() {
		row := Product{ID: string(prod.ID), Type: prod.Type, Name: prod.DisplayName()}
		res := s.ResolveStoreyDiagnostic(prod.ID)
		row.Step = string(res.Step)
		if res.Storey != nil {
			row.StoreyID = string(res.Storey.ID)
		}
		if space := s.ProductSpace(prod.ID); space != nil {
			row.SpaceID = string(space.ID)
		}
		snap.Products = append(snap.Products, row)
	}
	return snap
}

// Clone deep-copies snap so stores never share rows with callers.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Storeys = make([]Storey, len(s.Storeys))
	for i, st := range s.Storeys {
		st.Elevation = cloneFloat(st.Elevation)
		out.Storeys[i] = st
	}
	out.Products = append([]Product(nil), s.Products...)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

