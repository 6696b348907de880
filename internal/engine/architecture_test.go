package engine

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestQueryCoreStaysIndependent keeps the graph, engine and query packages
// free of the service layer: they must not reach storage, transport,
// configuration or logging, so a host can embed them as a pure library.
func TestQueryCoreStaysIndependent(t *testing.T) {
	corePkgs := []string{
		"ifcquery/pkg/graph",
		"ifcquery/pkg/queryapi",
		"ifcquery/internal/engine",
		"ifcquery/internal/query",
	}
	forbidden := []string{
		"ifcquery/internal/adapters",
		"ifcquery/internal/blob",
		"ifcquery/internal/config",
		"ifcquery/internal/core",
		"ifcquery/internal/infra",
		"ifcquery/internal/observability",
		"ifcquery/internal/persistence",
		"ifcquery/internal/platform",
		"go.uber.org/zap",
		"github.com/prometheus",
		"net/http",
		"database/sql",
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, corePkgs...)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("no packages loaded")
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			t.Errorf("%s: %v", pkg.PkgPath, e)
		}
		for importPath := range pkg.Imports {
			for _, prefix := range forbidden {
				if importPath == prefix || strings.HasPrefix(importPath, prefix+"/") {
					seen[pkg.PkgPath+": "+importPath] = struct{}{}
				}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import: %s", v)
		}
		t.Fatalf("found %d forbidden imports in the query core", len(violations))
	}
}
