package jupiterproc_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/jupiterproc"
)

type fakeInstaller struct {
	version string
	binPath string
	calls   int
}

func (f *fakeInstaller) EnsureInstalled(ctx context.Context) (jupiterproc.BinaryInstall, error) {
	return jupiterproc.BinaryInstall{Version: f.version, Path: f.binPath, UpdatedAt: time.Now()}, nil
}

func (f *fakeInstaller) Update(ctx context.Context, version string) (jupiterproc.BinaryInstall, error) {
	f.calls++
	if version == "" {
		version = "v2.0.0"
	}
	f.version = version
	return jupiterproc.BinaryInstall{Version: version, Path: f.binPath, UpdatedAt: time.Now()}, nil
}

func longRunningBinary(t *testing.T) string {
	t.Helper()
	return "/bin/sleep"
}

func TestStartRecordsPidfileAndStatusRunning(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "jupiter.pid")
	installer := &fakeInstaller{version: "v1.0.0", binPath: longRunningBinary(t)}
	sup := jupiterproc.New(installer, jupiterproc.Config{PidFile: pidFile, Args: []string{"5"}})

	require.NoError(t, sup.Start(context.Background()))
	assert.Equal(t, jupiterproc.StatusRunning, sup.Status())

	_, err := os.Stat(pidFile)
	assert.NoError(t, err)

	require.NoError(t, sup.Stop())
	assert.Equal(t, jupiterproc.StatusStopped, sup.Status())
	_, err = os.Stat(pidFile)
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateRestartsRunningProcessWithNewVersion(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "jupiter.pid")
	installer := &fakeInstaller{version: "v1.0.0", binPath: longRunningBinary(t)}
	sup := jupiterproc.New(installer, jupiterproc.Config{PidFile: pidFile, Args: []string{"5"}})

	require.NoError(t, sup.Start(context.Background()))
	install, err := sup.Update(context.Background(), "v2.0.0")

	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", install.Version)
	assert.Equal(t, jupiterproc.StatusRunning, sup.Status())
	assert.Equal(t, 1, installer.calls)

	require.NoError(t, sup.Stop())
}
