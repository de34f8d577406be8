package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/config"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenSQLiteBuildsBothStores(t *testing.T) {
	cfg := config.AppConfig{StoreDriver: config.StoreDriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "library.db")}
	handle, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer handle.Close(context.Background())

	assert.Equal(t, config.StoreDriverSQLite, handle.Driver)
	books, err := handle.Library.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
	catalogBooks, err := handle.Catalog.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, catalogBooks)

	stats, err := handle.Library.Stats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats)

	_, err = handle.Library.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, library.ErrBookNotFound)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.AppConfig{StoreDriver: "postgres"}, nil)
	assert.Error(t, err)
}

func TestOpenMongoFailsWithoutURI(t *testing.T) {
	_, err := Open(context.Background(), config.AppConfig{StoreDriver: config.StoreDriverMongo}, nil)
	assert.Error(t, err)
}

func TestCloseNilHandle(t *testing.T) {
	var handle *Handle
	assert.NoError(t, handle.Close(context.Background()))
}
