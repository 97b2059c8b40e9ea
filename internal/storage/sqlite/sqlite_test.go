package sqlitestorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/AIAI/extension/internal/config"
	"github.com/AIAI/extension/internal/database"
	gormstorage "github.com/AIAI/extension/internal/storage/gorm"
	"github.com/AIAI/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_DumpsOnFlushAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "aiai.db")
	b, err := New(config.SQLiteConfig{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.SaveSnapshot(core.Snapshot{
		Config: core.CommanderConfig{Side: core.SideWest},
		State:  core.CommanderState{Phase: core.PhaseActive, Tick: 12},
	}))
	require.NoError(t, b.Flush())
	assert.FileExists(t, path)

	require.NoError(t, b.SaveOrders(core.SideWest, 12, []core.Order{{SquadID: 1, Action: core.ActionFlank}}))
	require.NoError(t, b.Close())

	disk, err := database.OpenSqlite(path)
	require.NoError(t, err)
	var orders int64
	disk.Model(&gormstorage.OrderRecord{}).Count(&orders)
	assert.Equal(t, int64(1), orders)
}

func TestBackend_DumpLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aiai.db")
	b, err := New(config.SQLiteConfig{Path: path, DumpInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Eventually(t, func() bool {
		return b.LastExportPath() != ""
	}, time.Second, 10*time.Millisecond)
}
