package generic

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkeeper/autopilot/pkg/types"
)

func TestSystemdBackup_ArchiveLayoutHasServiceConfigDataPrefixes(t *testing.T) {
	unitDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(unitDir, "myapp.service"), []byte("[Unit]\n"), 0o644))

	original := systemdUnitDirs
	systemdUnitDirs = []string{unitDir}
	t.Cleanup(func() { systemdUnitDirs = original })

	configSrc := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configSrc, "app.conf"), []byte("k=v"), 0o644))
	dataSrc := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataSrc, "state.db"), []byte("x"), 0o644))

	destDir := t.TempDir()
	destPath := filepath.Join(destDir, "backup.tar.gz")

	a := New(zerolog.Nop())
	descriptor := &types.ServiceDescriptor{
		Name:        "myapp",
		Kind:        types.KindSystemd,
		UnitName:    "myapp.service",
		ConfigPaths: []string{configSrc},
		DataPaths:   []string{dataSrc},
	}

	ok := a.Backup(context.Background(), descriptor, destPath)
	require.True(t, ok)

	entries := readTarGzNames(t, destPath)
	assert.Contains(t, entries, "manifest.json")
	assert.Contains(t, entries, filepath.Join("service", "myapp.service"))
	assert.Contains(t, entries, filepath.Join("config", filepath.Base(configSrc), "app.conf"))
	assert.Contains(t, entries, filepath.Join("data", filepath.Base(dataSrc), "state.db"))
}

func TestSystemdBackup_MissingUnitFileStillArchivesConfigData(t *testing.T) {
	original := systemdUnitDirs
	systemdUnitDirs = []string{t.TempDir()}
	t.Cleanup(func() { systemdUnitDirs = original })

	configSrc := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configSrc, "app.conf"), []byte("k=v"), 0o644))
	dataSrc := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataSrc, "state.db"), []byte("x"), 0o644))

	destDir := t.TempDir()
	destPath := filepath.Join(destDir, "backup.tar.gz")

	a := New(zerolog.Nop())
	descriptor := &types.ServiceDescriptor{
		Name:        "nounit",
		Kind:        types.KindSystemd,
		UnitName:    "nounit.service",
		ConfigPaths: []string{configSrc},
		DataPaths:   []string{dataSrc},
	}

	ok := a.Backup(context.Background(), descriptor, destPath)
	require.True(t, ok)

	entries := readTarGzNames(t, destPath)
	assert.Contains(t, entries, "manifest.json")
	assert.Contains(t, entries, filepath.Join("config", filepath.Base(configSrc), "app.conf"))
	assert.Contains(t, entries, filepath.Join("data", filepath.Base(dataSrc), "state.db"))
	for _, name := range entries {
		assert.NotContains(t, name, "service/")
	}
}
