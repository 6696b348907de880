package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ifcquery/internal/config"
	"ifcquery/internal/core"
	"ifcquery/internal/persistence"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Persist resolved storey assignments and answer floor queries from them",
	}
	cmd.AddCommand(newSnapshotSaveCmd(a), newSnapshotListCmd(a), newSnapshotFloorsCmd(a))
	return cmd
}

// openSnapshots opens the configured snapshot store. The one-shot commands
// need a durable one.
func (a *app) openSnapshots(ctx context.Context) (persistence.Store, error) {
	if a.cfg.Persistence.Driver == config.PersistenceNone || a.cfg.Persistence.Driver == config.PersistenceMemory {
		return nil, fmt.Errorf("persistence.driver %q keeps nothing between runs; use sqlite or postgres", a.cfg.Persistence.Driver)
	}
	return core.OpenSnapshotStore(ctx, a.cfg.Persistence)
}

func newSnapshotSaveCmd(a *app) *cobra.Command {
	var model, id string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Load a graph document and store its snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openSnapshots(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			opts := []core.Option{core.WithSnapshotStore(store)}
			if id != "" {
				opts = append(opts, core.WithIDGenerator(func() string { return id }))
			}
			_, saved, err := a.loadModel(ctx, model, opts...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "saved snapshot %s (%s, %d storeys, %d products, %d unassigned)\n",
				saved.ID, saved.Project.Name, saved.Storeys, saved.Stats.Products, saved.Unassigned)
			return err
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "graph document (JSON)")
	cmd.Flags().StringVar(&id, "id", "", "snapshot id; a new uuid when empty")
	return cmd
}

func newSnapshotListCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			summaries, err := store.ListSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(a.stdout, map[string]any{"snapshots": summaries})
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{s.ModelID, s.ProjectName, fmt.Sprint(s.Storeys), fmt.Sprint(s.Products), s.CreatedAt.Format("2006-01-02T15:04:05Z07:00")})
			}
			return writeTable(a.stdout, []string{"ID", "PROJECT", "STOREYS", "PRODUCTS", "CREATED"}, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	return cmd
}

func newSnapshotFloorsCmd(a *app) *cobra.Command {
	var floor, elementType, format string
	cmd := &cobra.Command{
		Use:   "floors <id>",
		Short: "Answer floor queries from a stored snapshot",
		Example: `  ifcquery snapshot floors 3f1c...            # products per floor
  ifcquery snapshot floors 3f1c... --floor EG  # element types on one floor
  ifcquery snapshot floors 3f1c... --floor EG --type IfcOutlet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			snap, err := store.LoadSnapshot(cmd.Context(), args[0])
			if errors.Is(err, persistence.ErrSnapshotNotFound) {
				return fmt.Errorf("no snapshot %q", args[0])
			}
			if err != nil {
				return err
			}
			return writeFloors(a, snap, floor, elementType, format)
		},
	}
	cmd.Flags().StringVar(&floor, "floor", "", "storey name or id; Unassigned selects products without a storey")
	cmd.Flags().StringVar(&elementType, "type", "", "element type to list on the floor")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	return cmd
}

func writeFloors(a *app, snap persistence.Snapshot, floor, elementType, format string) error {
	switch {
	case floor == "" && elementType == "":
		summaries := snap.FloorSummaries()
		unassigned := 0
		for _, t := range snap.UnassignedTypes() {
			unassigned += t.Count
		}
		if format == formatJSON {
			return writeJSON(a.stdout, map[string]any{"floors": summaries, "unassigned": unassigned})
		}
		rows := make([][]string, 0, len(summaries)+1)
		for _, f := range summaries {
			rows = append(rows, []string{f.Name, elevation(f.Elevation), fmt.Sprint(f.Products)})
		}
		rows = append(rows, []string{persistence.UnassignedFloor, "-", fmt.Sprint(unassigned)})
		return writeTable(a.stdout, []string{"FLOOR", "ELEVATION", "PRODUCTS"}, rows)

	case elementType == "":
		var types []persistence.TypeCount
		if strings.EqualFold(floor, persistence.UnassignedFloor) {
			types = snap.UnassignedTypes()
		} else {
			if _, ok := snap.FindStorey(floor); !ok {
				return fmt.Errorf("no floor %q in snapshot %s", floor, snap.ModelID)
			}
			types = snap.TypesOnFloor(floor)
		}
		if format == formatJSON {
			return writeJSON(a.stdout, map[string]any{"floor": floor, "types": types})
		}
		rows := make([][]string, 0, len(types))
		for _, t := range types {
			rows = append(rows, []string{t.Type, fmt.Sprint(t.Count)})
		}
		return writeTable(a.stdout, []string{"TYPE", "COUNT"}, rows)
	}

	products, err := floorProducts(snap, elementType, floor)
	if err != nil {
		return err
	}
	if format == formatJSON {
		return writeJSON(a.stdout, map[string]any{"floor": floor, "type": elementType, "products": products, "count": len(products)})
	}
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ID, p.Name, p.Floor})
	}
	return writeTable(a.stdout, []string{"ID", "NAME", "FLOOR"}, rows)
}

// floorProducts lists products of elementType on floor. An empty floor
// lists every floor and the unassigned label selects products without one.
func floorProducts(snap persistence.Snapshot, elementType, floor string) ([]persistence.ProductLocation, error) {
	if floor == "" {
		return snap.ProductsOfType(elementType, ""), nil
	}
	if strings.EqualFold(floor, persistence.UnassignedFloor) {
		var out []persistence.ProductLocation
		for _, p := range snap.ProductsOfType(elementType, "") {
			if p.Floor == persistence.UnassignedFloor {
				out = append(out, p)
			}
		}
		return out, nil
	}
	st, ok := snap.FindStorey(floor)
	if !ok {
		return nil, fmt.Errorf("no floor %q in snapshot %s", floor, snap.ModelID)
	}
	return snap.ProductsOfType(elementType, st.ID), nil
}
