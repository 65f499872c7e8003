package testutil

import (
	"fmt"
	"testing"

	"github.com/psds-microservice/raffle-service/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an isolated in-memory sqlite database with the full schema,
// including the unique indexes the allocator depends on. TranslateError is on
// so duplicate-key errors surface as gorm.ErrDuplicatedKey, same as the
// postgres driver in production.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// a single connection keeps the shared in-memory database alive and
	// serializes concurrent transactions the way a single store would
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Raffle{}, &model.Client{}, &model.Ticket{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
