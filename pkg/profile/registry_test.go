package profile_test

import (
	"testing"

	"github.com/graph-guard/intscan/pkg/profile"
	"github.com/stretchr/testify/require"
)

func mustNew(
	t *testing.T,
	id string,
	kind profile.Kind,
	strategy profile.Strategy,
	ignored string,
) *profile.Profile {
	t.Helper()
	p, err := profile.New(id, "", kind, strategy, ignored)
	require.NoError(t, err)
	return p
}

func TestRegistry(t *testing.T) {
	a := mustNew(t, "a", profile.KindInt8, profile.StrategyTable, "_")
	b := mustNew(t, "b", profile.KindUint64, profile.StrategyPack, ",")
	c := mustNew(t, "c", profile.KindInt, profile.StrategyTable, "")

	r, err := profile.NewRegistry(c, a, b)
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	p, ok := r.Get("b")
	require.True(t, ok)
	require.Equal(t, b, p)

	_, ok = r.Get("d")
	require.False(t, ok)

	var ids []string
	r.Visit(func(p *profile.Profile) bool {
		ids = append(ids, p.ID)
		return true
	})
	require.Equal(t, []string{"a", "b", "c"}, ids)

	ids = ids[:0]
	r.Visit(func(p *profile.Profile) bool {
		ids = append(ids, p.ID)
		return false
	})
	require.Equal(t, []string{"a"}, ids)
}

func TestRegistryDuplicate(t *testing.T) {
	a := mustNew(t, "a", profile.KindInt8, profile.StrategyTable, "_")
	_, err := profile.NewRegistry(a, a)
	require.Error(t, err)
}

func TestRegistryFingerprint(t *testing.T) {
	r1, err := profile.NewRegistry(
		mustNew(t, "a", profile.KindInt8, profile.StrategyTable, "_"),
		mustNew(t, "b", profile.KindInt16, profile.StrategyPack, ","),
	)
	require.NoError(t, err)

	// Same profiles in different order.
	r2, err := profile.NewRegistry(
		mustNew(t, "b", profile.KindInt16, profile.StrategyPack, ","),
		mustNew(t, "a", profile.KindInt8, profile.StrategyTable, "_"),
	)
	require.NoError(t, err)
	require.Equal(t, r1.Fingerprint(), r2.Fingerprint())

	r3, err := profile.NewRegistry(
		mustNew(t, "a", profile.KindInt8, profile.StrategyTable, "_"),
		mustNew(t, "b", profile.KindInt16, profile.StrategyPack, "'"),
	)
	require.NoError(t, err)
	require.NotEqual(t, r1.Fingerprint(), r3.Fingerprint())

	empty, err := profile.NewRegistry()
	require.NoError(t, err)
	require.Zero(t, empty.Len())
}
