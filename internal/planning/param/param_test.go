package param

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSet_PutGetDelete(t *testing.T) {
	s := NewSet()
	s.Put("range", "0.5")
	s.Put("goal_bias", "0.05")

	v, ok := s.Get("range")
	require.True(t, ok)
	assert.Equal(t, "0.5", v)

	s.Delete("range")
	assert.False(t, s.Has("range"))
	assert.Equal(t, []string{"goal_bias"}, s.Keys())
}

func TestSet_PutPreservesOrder(t *testing.T) {
	s := NewSet()
	s.Put("c", "3")
	s.Put("a", "1")
	s.Put("b", "2")
	s.Put("a", "updated") // re-put must not reorder

	assert.Equal(t, []string{"c", "a", "b"}, s.Keys())
	v, _ := s.Get("a")
	assert.Equal(t, "updated", v)
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := NewSet()
	s.Put("range", "0.5")

	c := s.Clone()
	c.Put("range", "9.9")
	c.Put("extra", "x")

	v, _ := s.Get("range")
	assert.Equal(t, "0.5", v)
	assert.False(t, s.Has("extra"))
}

func TestExtractReserved_AllKeys(t *testing.T) {
	s := NewSet()
	s.Put(KeyMultiQuery, "true")
	s.Put(KeyLoadData, "1")
	s.Put(KeyStoreData, "false")
	s.Put(KeyDataPath, "/tmp/arm.roadmap")
	s.Put("range", "0.5")

	res, rest, err := ExtractReserved(s)
	require.NoError(t, err)

	assert.True(t, res.MultiQuery)
	assert.True(t, res.LoadData)
	assert.False(t, res.StoreData)
	assert.Equal(t, "/tmp/arm.roadmap", res.DataPath)

	assert.Equal(t, []string{"range"}, rest.Keys())
	// Input untouched.
	assert.True(t, s.Has(KeyMultiQuery))
}

func TestExtractReserved_AbsentKeysDefaultFalse(t *testing.T) {
	s := NewSet()
	s.Put("range", "0.5")

	res, rest, err := ExtractReserved(s)
	require.NoError(t, err)
	assert.False(t, res.MultiQuery)
	assert.False(t, res.LoadData)
	assert.False(t, res.StoreData)
	assert.Empty(t, res.DataPath)
	assert.Equal(t, 1, rest.Len())
}

func TestExtractReserved_BadBoolValue(t *testing.T) {
	s := NewSet()
	s.Put(KeyMultiQuery, "yes")

	_, rest, err := ExtractReserved(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigParse)
	assert.Contains(t, err.Error(), KeyMultiQuery)
	assert.Nil(t, rest)
}

func TestPropertyReservedKeysNeverSurvive(t *testing.T) {
	reserved := []string{KeyMultiQuery, KeyLoadData, KeyStoreData, KeyDataPath}

	rapid.Check(t, func(t *rapid.T) {
		s := NewSet()

		// Some generic parameters.
		n := rapid.IntRange(0, 8).Draw(t, "num_params")
		for i := 0; i < n; i++ {
			s.Put(fmt.Sprintf("param_%d", i), fmt.Sprintf("%d", i))
		}

		// A random subset of reserved keys with valid values.
		boolVals := []string{"true", "false", "1", "0"}
		for _, key := range reserved {
			if !rapid.Bool().Draw(t, "include_"+key) {
				continue
			}
			if key == KeyDataPath {
				s.Put(key, "/tmp/roadmap")
			} else {
				s.Put(key, boolVals[rapid.IntRange(0, 3).Draw(t, "val_"+key)])
			}
		}

		_, rest, err := ExtractReserved(s)
		if err != nil {
			t.Fatalf("extract failed on valid input: %v", err)
		}
		for _, key := range reserved {
			if rest.Has(key) {
				t.Fatalf("reserved key %q survived extraction", key)
			}
		}
		if rest.Len() != n {
			t.Fatalf("expected %d generic params to survive, got %d", n, rest.Len())
		}
	})
}
