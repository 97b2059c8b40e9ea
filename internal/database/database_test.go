package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   uint
	Name string
}

func TestOpenSqlite_MemoryIsPrivate(t *testing.T) {
	a, err := OpenSqlite("")
	require.NoError(t, err)
	b, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, a.AutoMigrate(&row{}))
	require.NoError(t, a.Create(&row{Name: "alpha"}).Error)

	assert.False(t, b.Migrator().HasTable(&row{}))
}

func TestManager_ConnectSqlite(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Connect("sqlite", ""))
	defer m.Close()

	assert.True(t, m.Local)
	require.NoError(t, m.DB.AutoMigrate(&row{}))
	require.NoError(t, m.DB.Create(&row{Name: "bravo"}).Error)

	var count int64
	m.DB.Model(&row{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDumpToDisk(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "charlie"}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	require.NoError(t, DumpToDisk(db, path))

	disk, err := OpenSqlite(path)
	require.NoError(t, err)
	var got row
	require.NoError(t, disk.First(&got).Error)
	assert.Equal(t, "charlie", got.Name)

	assert.Error(t, DumpToDisk(db, ""))
}
