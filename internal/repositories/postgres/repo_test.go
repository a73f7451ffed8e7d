package postgres

import (
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlLog records every statement gorm sends so tests can inspect the generated SQL.
type sqlLog struct {
	mu   sync.Mutex
	stmt []string
}

func (l *sqlLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.stmt...)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sqlLog) {
	t.Helper()
	log := &sqlLog{}
	matcher := sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		log.mu.Lock()
		log.stmt = append(log.stmt, actual)
		log.mu.Unlock()
		return sqlmock.QueryMatcherRegexp.Match(expected, actual)
	})

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock, log
}
