// Package charmhub provides the Charmhub data model and API client used by
// the release reconciliation: revision matrices, the multi-charm bundle, the
// refresh API query and the charmcraft promotion command.
package charmhub

import (
	"sort"
	"strings"
)

// cellKey identifies one (architecture, base) cell of a revision matrix.
type cellKey struct {
	arch string
	base string
}

// RevisionMatrix maps (architecture, base) to the revision published for a
// single charm in a single channel.
//
// For each tuple of (name, channel, arch, base) there is a unique charm
// artifact in Charmhub. Rows of the matrix correspond to architectures,
// columns to bases. A matrix is constructed fresh per (charm, channel)
// query and not mutated afterwards within a reconciliation pass.
type RevisionMatrix struct {
	cells map[cellKey]string
}

// NewRevisionMatrix returns an empty matrix.
func NewRevisionMatrix() *RevisionMatrix {
	return &RevisionMatrix{cells: make(map[cellKey]string)}
}

// Set records the revision for an (arch, base) cell, replacing any previous
// value for that cell.
func (m *RevisionMatrix) Set(arch, base, revision string) {
	m.cells[cellKey{arch: arch, base: base}] = revision
}

// Get returns the revision for (arch, base), or "" if the cell is absent.
func (m *RevisionMatrix) Get(arch, base string) string {
	return m.cells[cellKey{arch: arch, base: base}]
}

// Archs returns the sorted distinct architectures present in the matrix.
func (m *RevisionMatrix) Archs() []string {
	seen := make(map[string]struct{}, len(m.cells))
	for k := range m.cells {
		seen[k.arch] = struct{}{}
	}
	return sortedKeys(seen)
}

// Bases returns the sorted distinct bases present in the matrix.
func (m *RevisionMatrix) Bases() []string {
	seen := make(map[string]struct{}, len(m.cells))
	for k := range m.cells {
		seen[k.base] = struct{}{}
	}
	return sortedKeys(seen)
}

// Equal reports whether both matrices hold identical cell-to-revision
// mappings, regardless of insertion order. A nil matrix equals an empty one.
func (m *RevisionMatrix) Equal(other *RevisionMatrix) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m == nil {
		return true
	}
	for k, rev := range m.cells {
		if other.cells[k] != rev {
			return false
		}
	}
	return true
}

// Len returns the number of recorded cells. Safe on a nil matrix.
func (m *RevisionMatrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.cells)
}

// Populated reports whether the matrix is usable for reconciliation: it has
// at least one cell and every recorded cell carries a non-empty revision.
// Partially populated matrices must not drive testing or promotion.
func (m *RevisionMatrix) Populated() bool {
	if m.Len() == 0 {
		return false
	}
	for _, rev := range m.cells {
		if rev == "" {
			return false
		}
	}
	return true
}

// String renders the matrix as a tab-separated table for diagnostics, rows
// sorted by architecture and columns by base.
func (m *RevisionMatrix) String() string {
	if m.Len() == 0 {
		return "(empty)"
	}
	archs := m.Archs()
	bases := m.Bases()

	var b strings.Builder
	b.WriteString("\t" + strings.Join(bases, "\t"))
	for _, arch := range archs {
		b.WriteString("\n" + arch)
		for _, base := range bases {
			b.WriteString("\t" + m.Get(arch, base))
		}
	}
	return b.String()
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
