package charmhub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixOf(cells map[[2]string]string) *RevisionMatrix {
	m := NewRevisionMatrix()
	for key, rev := range cells {
		m.Set(key[0], key[1], rev)
	}
	return m
}

func TestBundle_Testable(t *testing.T) {
	t.Run("no charms", func(t *testing.T) {
		b := NewBundle("k8s-operator")
		assert.False(t, b.Testable())
	})

	t.Run("missing charm matrix", func(t *testing.T) {
		b := NewBundle("k8s-operator")
		b.Set("k8s", matrixOf(map[[2]string]string{{"amd64", "20.04"}: "10"}))
		b.Set("k8s-worker", nil)
		assert.False(t, b.Testable())
	})

	t.Run("differing base sets", func(t *testing.T) {
		b := NewBundle("k8s-operator")
		b.Set("k8s", matrixOf(map[[2]string]string{{"amd64", "20.04"}: "10"}))
		b.Set("k8s-worker", matrixOf(map[[2]string]string{{"amd64", "22.04"}: "11"}))
		assert.False(t, b.Testable())
	})

	t.Run("partial cell coverage", func(t *testing.T) {
		b := NewBundle("k8s-operator")
		b.Set("k8s", matrixOf(map[[2]string]string{
			{"amd64", "20.04"}: "10",
			{"amd64", "22.04"}: "11",
		}))
		b.Set("k8s-worker", matrixOf(map[[2]string]string{
			{"amd64", "20.04"}: "20",
			{"amd64", "22.04"}: "",
		}))
		assert.False(t, b.Testable())
	})

	t.Run("congruent grid", func(t *testing.T) {
		b := NewBundle("k8s-operator")
		b.Set("k8s", matrixOf(map[[2]string]string{
			{"amd64", "20.04"}: "10",
			{"arm64", "20.04"}: "11",
		}))
		b.Set("k8s-worker", matrixOf(map[[2]string]string{
			{"amd64", "20.04"}: "20",
			{"arm64", "20.04"}: "21",
		}))
		assert.True(t, b.Testable())
	})
}

func TestBundle_Version(t *testing.T) {
	b := NewBundle("k8s-operator")
	b.Set("k8s", matrixOf(map[[2]string]string{{"amd64", "20.04"}: "10"}))
	b.Set("k8s-worker", matrixOf(map[[2]string]string{{"amd64", "20.04"}: "20"}))

	// Charms are sorted, so the key is deterministic.
	assert.Equal(t, "k8s-operator-k8s-10-k8s-worker-20", b.Version("amd64", "20.04"))

	t.Run("missing cell yields no version", func(t *testing.T) {
		assert.Empty(t, b.Version("arm64", "20.04"))
	})

	t.Run("empty bundle yields no version", func(t *testing.T) {
		assert.Empty(t, NewBundle("k8s-operator").Version("amd64", "20.04"))
	})
}

func TestBundle_Revisions(t *testing.T) {
	b := NewBundle("k8s-operator")
	b.Set("k8s", matrixOf(map[[2]string]string{{"amd64", "20.04"}: "10"}))
	b.Set("k8s-worker", matrixOf(map[[2]string]string{{"amd64", "22.04"}: "20"}))

	assert.Equal(t, map[string]string{"k8s": "10"}, b.Revisions("amd64", "20.04"))
	assert.Equal(t, map[string]string{"k8s-worker": "20"}, b.Revisions("amd64", "22.04"))
	assert.Empty(t, b.Revisions("arm64", "20.04"))
}

func TestBundle_ArchsAndBases(t *testing.T) {
	t.Run("empty bundle errors", func(t *testing.T) {
		b := NewBundle("k8s-operator")
		_, err := b.Archs()
		require.Error(t, err)
		_, err = b.Bases()
		require.Error(t, err)
	})

	t.Run("delegates to a charm matrix", func(t *testing.T) {
		b := NewBundle("k8s-operator")
		b.Set("k8s", matrixOf(map[[2]string]string{
			{"amd64", "20.04"}: "10",
			{"arm64", "22.04"}: "11",
		}))

		archs, err := b.Archs()
		require.NoError(t, err)
		assert.Equal(t, []string{"amd64", "arm64"}, archs)

		bases, err := b.Bases()
		require.NoError(t, err)
		assert.Equal(t, []string{"20.04", "22.04"}, bases)
	})
}
