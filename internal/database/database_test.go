package database

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "eval.db")
	db, err := Connect(url, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.True(t, db.Migrator().HasTable(&models.ScoringResult{}))
	require.True(t, db.Migrator().HasTable(&models.ActivityLog{}))
	require.True(t, db.Migrator().HasTable(&models.EvaluationTask{}))
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	_, err := Connect("  ", zerolog.Nop())
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	client, err := ConnectRedis("")
	require.NoError(t, err)
	require.Nil(t, client)

	server := miniredis.RunT(t)
	client, err = ConnectRedis("redis://" + server.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	require.NoError(t, client.Close())
}

func TestConnectNATSWithoutURL(t *testing.T) {
	conn, err := ConnectNATS("", "gema-eval")
	require.NoError(t, err)
	require.Nil(t, conn)
}
