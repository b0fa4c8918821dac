package sqlgen

import (
	"sort"
	"strings"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/types"
)

// OrderTables sorts table definitions so that every table comes after the
// tables its relation columns reference. Targets outside defs must already
// exist according to known. A table may reference itself; any longer cycle
// is a DependencyError.
func OrderTables(defs []*ast.TableDef, known func(string) bool) ([]*ast.TableDef, error) {
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.Name] = i
	}

	inDegree := make([]int, len(defs))
	graph := make([][]int, len(defs)) // target index -> dependent indices

	for i, d := range defs {
		seen := map[int]bool{}
		for _, col := range d.Columns {
			if _, prim := types.PrimitiveByName(col.Type); prim {
				continue
			}
			j, ok := index[col.Type]
			if !ok {
				if known == nil || !known(col.Type) {
					return nil, diagnostics.New(diagnostics.CompileError,
						"table %q references unknown table %q", d.Name, col.Type).At(col.Pos)
				}
				continue
			}
			if j == i || seen[j] {
				continue
			}
			seen[j] = true
			graph[j] = append(graph[j], i)
			inDegree[i]++
		}
	}

	// Kahn's algorithm
	var queue []int
	for i := range defs {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	result := make([]*ast.TableDef, 0, len(defs))
	for len(queue) > 0 {
		// Sort queue for deterministic output
		sort.Ints(queue)
		current := queue[0]
		queue = queue[1:]
		result = append(result, defs[current])

		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) < len(defs) {
		var cycle []string
		for i, d := range defs {
			if inDegree[i] > 0 {
				cycle = append(cycle, d.Name)
			}
		}
		return nil, diagnostics.New(diagnostics.DependencyError,
			"circular table references between %s", strings.Join(cycle, ", "))
	}
	return result, nil
}
