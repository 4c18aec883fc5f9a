package seed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/charm-release/internal/charmhub"
	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/sqa"
)

type fakeRegistry struct {
	matrices map[string]*charmhub.RevisionMatrix
	err      error
}

func (f *fakeRegistry) RevisionMatrix(_ context.Context, charm, channel string) (*charmhub.RevisionMatrix, error) {
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.matrices[charm]; ok {
		return m, nil
	}
	return charmhub.NewRevisionMatrix(), nil
}

type fakeBuildService struct {
	created []sqa.Variables
	builds  map[string]*sqa.Build
	err     error
}

func (f *fakeBuildService) CreateBuild(_ context.Context, vars sqa.Variables) (*sqa.Build, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, vars)
	return &sqa.Build{UUID: uuid.MustParse("44444444-4444-4444-4444-444444444444"), Status: "queued"}, nil
}

func (f *fakeBuildService) Build(_ context.Context, buildUUID string) (*sqa.Build, error) {
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.builds[buildUUID]; ok {
		return b, nil
	}
	return nil, errors.New("not found")
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func seedConfig() *config.Config {
	return &config.Config{
		Bundle: config.BundleConfig{
			Name:   "k8s-operator",
			Charms: []string{"k8s", "k8s-worker"},
		},
	}
}

func seedMatrices(cells map[[2]string]string) map[string]*charmhub.RevisionMatrix {
	primary := charmhub.NewRevisionMatrix()
	worker := charmhub.NewRevisionMatrix()
	for key, rev := range cells {
		primary.Set(key[0], key[1], rev)
		worker.Set(key[0], key[1], "9"+rev)
	}
	return map[string]*charmhub.RevisionMatrix{"k8s": primary, "k8s-worker": worker}
}

func newTestSeeder(t *testing.T, registry *fakeRegistry, builds *fakeBuildService, dryRun bool) (*Seeder, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	clk := fixedClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	return NewSeeder(seedConfig(), registry, builds, store, clk, dryRun, zerolog.Nop()), store
}

func TestSeedOne_PicksFirstUntestedCell(t *testing.T) {
	registry := &fakeRegistry{matrices: seedMatrices(map[[2]string]string{
		{"amd64", "22.04"}: "11",
		{"amd64", "20.04"}: "10",
	})}
	builds := &fakeBuildService{}
	seeder, store := newTestSeeder(t, registry, builds, false)

	require.NoError(t, seeder.SeedOne(context.Background(), "1.32/beta", "", ""))
	require.Len(t, builds.created, 1)

	// Cells are walked in sorted order, so 20.04 goes first.
	vars := builds.created[0]
	assert.Equal(t, "20.04", vars.Base)
	assert.Equal(t, "amd64", vars.Arch)
	assert.Equal(t, "1.32/beta", vars.Channel)
	assert.Equal(t, "release-1.32", vars.Branch)
	assert.Equal(t, map[string]string{"k8s": "10", "k8s-worker": "910"}, vars.Revisions)
	assert.Equal(t, sqa.TransformHyphenToUnderscore, vars.Transform)

	state := store.Load()
	require.Contains(t, state, "10")
	assert.Equal(t, "1.32/beta", state["10"].Channel)
}

func TestSeedOne_SkipsTestedRevisions(t *testing.T) {
	registry := &fakeRegistry{matrices: seedMatrices(map[[2]string]string{
		{"amd64", "20.04"}: "10",
	})}
	builds := &fakeBuildService{}
	seeder, store := newTestSeeder(t, registry, builds, false)

	require.NoError(t, store.Save(State{"10": {BuildUUID: "existing"}}))

	require.NoError(t, seeder.SeedOne(context.Background(), "1.32/beta", "", ""))
	assert.Empty(t, builds.created)
}

func TestSeedOne_RespectsConstraints(t *testing.T) {
	registry := &fakeRegistry{matrices: seedMatrices(map[[2]string]string{
		{"amd64", "20.04"}: "10",
		{"arm64", "22.04"}: "12",
	})}
	builds := &fakeBuildService{}
	seeder, _ := newTestSeeder(t, registry, builds, false)

	require.NoError(t, seeder.SeedOne(context.Background(), "1.32/beta", "arm64", ""))
	require.Len(t, builds.created, 1)
	assert.Equal(t, "arm64", builds.created[0].Arch)
	assert.Equal(t, "22.04", builds.created[0].Base)
}

func TestSeedOne_DryRun(t *testing.T) {
	registry := &fakeRegistry{matrices: seedMatrices(map[[2]string]string{
		{"amd64", "20.04"}: "10",
	})}
	builds := &fakeBuildService{}
	seeder, store := newTestSeeder(t, registry, builds, true)

	require.NoError(t, seeder.SeedOne(context.Background(), "1.32/beta", "", ""))
	assert.Empty(t, builds.created)
	assert.Empty(t, store.Load())
}

func TestSeedOne_EmptyChannel(t *testing.T) {
	registry := &fakeRegistry{matrices: map[string]*charmhub.RevisionMatrix{}}
	builds := &fakeBuildService{}
	seeder, _ := newTestSeeder(t, registry, builds, false)

	require.NoError(t, seeder.SeedOne(context.Background(), "1.32/beta", "", ""))
	assert.Empty(t, builds.created)
}

func TestResults(t *testing.T) {
	builds := &fakeBuildService{builds: map[string]*sqa.Build{
		"44444444-4444-4444-4444-444444444444": {
			UUID:   uuid.MustParse("44444444-4444-4444-4444-444444444444"),
			Status: "done",
			Result: "passed",
		},
	}}
	seeder, store := newTestSeeder(t, &fakeRegistry{}, builds, false)

	require.NoError(t, store.Save(State{
		"741": {BuildUUID: "44444444-4444-4444-4444-444444444444"},
		"742": {BuildUUID: "not-known"},
	}))

	results := seeder.Results(context.Background())
	// The unknown build is skipped, not fatal.
	require.Len(t, results, 1)
	assert.Equal(t, "status: done result: passed uuid: 44444444-4444-4444-4444-444444444444", results["741"])
}
