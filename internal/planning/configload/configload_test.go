package configload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planningYAML = `
planner_configs:
  PRMstar:
    type: geometric::PRMstar
    multi_query_planning_enabled: true
    store_planner_data: true
    planner_data_path: /var/lib/roboplan/arm.roadmap
  RRTConnect:
    type: geometric::RRTConnect
    range: 0.5
groups:
  - name: arm
    default_planner_config: RRTConnect
    planner_configs:
      - PRMstar
      - RRTConnect
    params:
      range: 1.0
  - name: gripper
    params:
      type: geometric::RRT
`

func TestLoadFromBytes(t *testing.T) {
	table, err := LoadFromBytes([]byte(planningYAML))
	require.NoError(t, err)
	assert.Len(t, table, 4)

	arm, ok := table["arm"]
	require.True(t, ok)
	assert.Equal(t, "arm", arm.Group)
	v, _ := arm.Params.Get("type")
	assert.Equal(t, "geometric::RRTConnect", v)
	v, _ = arm.Params.Get("range")
	assert.Equal(t, "1.0", v, "group params override the default config")

	sub, ok := table["arm[PRMstar]"]
	require.True(t, ok)
	assert.Equal(t, "arm", sub.Group)
	v, _ = sub.Params.Get("multi_query_planning_enabled")
	assert.Equal(t, "true", v)
	v, _ = sub.Params.Get("planner_data_path")
	assert.Equal(t, "/var/lib/roboplan/arm.roadmap", v)

	gripper, ok := table["gripper"]
	require.True(t, ok)
	v, _ = gripper.Params.Get("type")
	assert.Equal(t, "geometric::RRT", v)
}

func TestLoadFromBytes_PreservesParameterOrder(t *testing.T) {
	table, err := LoadFromBytes([]byte(planningYAML))
	require.NoError(t, err)

	sub := table["arm[PRMstar]"]
	assert.Equal(t, []string{
		"type",
		"multi_query_planning_enabled",
		"store_planner_data",
		"planner_data_path",
	}, sub.Params.Keys())
}

func TestLoadFromBytes_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "groups: ["},
		{"no groups", "planner_configs:\n  A:\n    type: x\n"},
		{"empty group name", "groups:\n  - params:\n      type: x\n"},
		{"unknown default", "groups:\n  - name: arm\n    default_planner_config: nope\n"},
		{"unknown reference", "groups:\n  - name: arm\n    planner_configs: [nope]\n"},
		{"non-scalar param", "groups:\n  - name: arm\n    params:\n      type: [a, b]\n"},
		{"non-mapping params", "groups:\n  - name: arm\n    params: just-a-string\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromBytes_GroupWithoutParams(t *testing.T) {
	table, err := LoadFromBytes([]byte("groups:\n  - name: arm\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, table["arm"].Params.Len())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planningYAML), 0o644))

	table, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Contains(t, table, "arm[RRTConnect]")

	_, err = LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arm.yaml"), []byte(planningYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yml"), []byte("groups:\n  - name: base\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	table, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Len(t, table, 5)
	assert.Contains(t, table, "base")
}

func TestLoadFromDir_RejectsRedefinition(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("groups:\n  - name: arm\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("groups:\n  - name: arm\n"), 0o644))

	_, err := LoadFromDir(dir)
	assert.Error(t, err)
}

func TestLoadFromDir_Empty(t *testing.T) {
	_, err := LoadFromDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadedTableKeysMatchNames(t *testing.T) {
	table, err := LoadFromBytes([]byte(planningYAML))
	require.NoError(t, err)
	for name, cfg := range table {
		assert.Equal(t, name, cfg.Name)
		assert.NoError(t, cfg.Validate())
	}
}
