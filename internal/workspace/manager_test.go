package workspace_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ntpoppe/tracepoint/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "judge-template", "nested"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "server"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "judge-template", "Project.csproj"), []byte("<x/>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "judge-template", "nested", "file.cs"), []byte("// code"), 0644))
	return root
}

func TestManager_CreateCopiesTemplateAndCreatesCache(t *testing.T) {
	t.Parallel()

	repo := setupRepo(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(repo))
	defer os.Chdir(cwd)

	workRoot := t.TempDir()
	m := workspace.NewManager(workRoot, "judge-template", "_nuget-cache")

	paths, err := m.Create("sub123")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(paths.WorkDir, "Project.csproj"))
	assert.FileExists(t, filepath.Join(paths.WorkDir, "nested", "file.cs"))
	assert.DirExists(t, paths.PackageCacheDir)

	require.NoError(t, m.Cleanup(paths, false))
	_, statErr := os.Stat(paths.WorkDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestManager_CleanupKeepsWorkspaceWhenRequested(t *testing.T) {
	t.Parallel()

	repo := setupRepo(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(repo))
	defer os.Chdir(cwd)

	m := workspace.NewManager(t.TempDir(), "judge-template", "_nuget-cache")
	paths, err := m.Create("sub456")
	require.NoError(t, err)

	require.NoError(t, m.Cleanup(paths, true))
	assert.DirExists(t, paths.WorkDir)
}

func TestFindArtifact_PrefersExactNameOverOtherTrx(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	other := filepath.Join(root, "sub", "other.trx")
	preferred := filepath.Join(root, "results.trx")
	require.NoError(t, os.MkdirAll(filepath.Dir(other), 0755))
	require.NoError(t, os.WriteFile(other, []byte("<a/>"), 0644))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, os.WriteFile(preferred, []byte("<a/>"), 0644))

	got := workspace.FindArtifact(root, "results.trx")
	assert.Equal(t, preferred, got)
}

func TestFindArtifact_FallsBackToAnyTrxWhenNoExactMatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	other := filepath.Join(root, "nested", "other.trx")
	require.NoError(t, os.MkdirAll(filepath.Dir(other), 0755))
	require.NoError(t, os.WriteFile(other, []byte("<a/>"), 0644))

	got := workspace.FindArtifact(root, "results.trx")
	assert.Equal(t, other, got)
}

func TestFindArtifact_ReturnsEmptyWhenNothingMatches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	got := workspace.FindArtifact(root, "results.trx")
	assert.Empty(t, got)
}
