package charmhub

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	apperrors "github.com/canonical/charm-release/internal/errors"
)

// Bundle is a set of charms that need to be tested together. The
// k8s-operator bundle, for example, consists of the k8s and k8s-worker
// charms. It aggregates one RevisionMatrix per charm for a single channel.
type Bundle struct {
	name   string
	charms map[string]*RevisionMatrix
}

// NewBundle returns an empty bundle for the named product.
func NewBundle(name string) *Bundle {
	return &Bundle{name: name, charms: make(map[string]*RevisionMatrix)}
}

// Name returns the product identifier.
func (b *Bundle) Name() string {
	return b.name
}

// Set records the revision matrix for a charm.
func (b *Bundle) Set(charm string, m *RevisionMatrix) {
	b.charms[charm] = m
}

// Get returns the revision matrix recorded for a charm, or nil.
func (b *Bundle) Get(charm string) *RevisionMatrix {
	return b.charms[charm]
}

// Charms returns the sorted charm names recorded in the bundle.
func (b *Bundle) Charms() []string {
	names := make([]string, 0, len(b.charms))
	for name := range b.charms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckTestable returns nil if the bundle can be tested as a unit, or an
// error describing the violated invariant:
//   - every charm has a non-nil matrix,
//   - all matrices span identical architecture and base sets,
//   - for every (arch, base) cell where any charm has a revision, every
//     charm has a revision.
//
// Partial coverage across charms is not safe to test.
func (b *Bundle) CheckTestable() error {
	if len(b.charms) == 0 {
		return fmt.Errorf("bundle %s has no charms", b.name)
	}

	charms := b.Charms()
	ref := b.charms[charms[0]]
	for _, charm := range charms {
		if b.charms[charm] == nil {
			return fmt.Errorf("charm %s has no revision matrix", charm)
		}
	}

	archs := ref.Archs()
	bases := ref.Bases()
	for _, charm := range charms[1:] {
		m := b.charms[charm]
		if !slices.Equal(m.Archs(), archs) || !slices.Equal(m.Bases(), bases) {
			return fmt.Errorf("charm %s does not span the same (arch, base) grid as %s", charm, charms[0])
		}
	}

	for _, arch := range archs {
		for _, base := range bases {
			var present int
			for _, charm := range charms {
				if b.charms[charm].Get(arch, base) != "" {
					present++
				}
			}
			if present != 0 && present != len(charms) {
				return fmt.Errorf("cell (%s, %s) is covered by %d of %d charms", arch, base, present, len(charms))
			}
		}
	}

	return nil
}

// Testable reports whether the bundle satisfies CheckTestable.
func (b *Bundle) Testable() bool {
	return b.CheckTestable() == nil
}

// Archs returns the architectures of the bundle. Testability guarantees all
// matrices are congruent, so any one matrix is authoritative. Calling this
// on a bundle with no charms is an error, never a silent partial view.
func (b *Bundle) Archs() ([]string, error) {
	m, err := b.anyMatrix()
	if err != nil {
		return nil, err
	}
	return m.Archs(), nil
}

// Bases returns the bases of the bundle, with the same contract as Archs.
func (b *Bundle) Bases() ([]string, error) {
	m, err := b.anyMatrix()
	if err != nil {
		return nil, err
	}
	return m.Bases(), nil
}

// Revisions returns the charm-to-revision mapping for one (arch, base) cell,
// for driving downstream variable substitution. Charms without a revision
// for the cell are omitted.
func (b *Bundle) Revisions(arch, base string) map[string]string {
	revisions := make(map[string]string, len(b.charms))
	for charm, m := range b.charms {
		if m == nil {
			continue
		}
		if rev := m.Get(arch, base); rev != "" {
			revisions[charm] = rev
		}
	}
	return revisions
}

// Version derives the composite version key for one (arch, base) cell: the
// bundle name followed by "-{charm}-{revision}" for every charm in sorted
// order. It is the correlation key for the test service. Returns "" if any
// charm lacks a revision for the cell, since a partial bundle has no
// testable version.
func (b *Bundle) Version(arch, base string) string {
	charms := b.Charms()
	if len(charms) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(b.name)
	for _, charm := range charms {
		m := b.charms[charm]
		if m == nil {
			return ""
		}
		rev := m.Get(arch, base)
		if rev == "" {
			return ""
		}
		sb.WriteString("-" + charm + "-" + rev)
	}
	return sb.String()
}

// anyMatrix returns the matrix of the first charm in sorted order.
func (b *Bundle) anyMatrix() (*RevisionMatrix, error) {
	charms := b.Charms()
	if len(charms) == 0 {
		return nil, apperrors.ErrEmptyBundle
	}
	m := b.charms[charms[0]]
	if m == nil {
		return nil, apperrors.ErrEmptyBundle
	}
	return m, nil
}
