package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	return db, mock
}

func TestDBStore_Load(t *testing.T) {
	db, mock := newMockDB(t)
	t1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	mock.ExpectQuery("SELECT \\* FROM `snapshot_runs` ORDER BY captured_at desc, id desc LIMIT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "captured_at", "source", "created_at"}).
			AddRow(2, t2, "scraper", t2).
			AddRow(1, t1, "scraper", t1))
	mock.ExpectQuery("SELECT \\* FROM `snapshot_items` WHERE `snapshot_items`.`run_id` IN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "item_id", "name", "msrp", "price", "retired"}).
			AddRow(1, 1, "10294", "Titanic", "$679.99", "$679.99", "").
			AddRow(2, 2, "10294", "Titanic", "$679.99", "$720.00", "2024-05"))

	store := NewDBStore(db, zerolog.Nop())
	snaps, err := store.Load(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, t1, snaps[0].Timestamp)
	assert.Equal(t, t2, snaps[1].Timestamp)

	older, ok := snaps[0].Lookup("10294")
	require.True(t, ok)
	assert.False(t, older.Retired())
	assert.InDelta(t, 679.99, older.CurrentPrice, 1e-9)

	newer, ok := snaps[1].Lookup("10294")
	require.True(t, ok)
	assert.True(t, newer.Retired())
	assert.InDelta(t, 720.00, newer.CurrentPrice, 1e-9)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `snapshot_runs`").WillReturnError(assert.AnError)

	_, err := NewDBStore(db, zerolog.Nop()).Load(context.Background(), 0)
	assert.ErrorIs(t, err, assert.AnError)
}
