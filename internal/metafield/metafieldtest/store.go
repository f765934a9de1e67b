// Package metafieldtest opens an in-memory document store for tests.
package metafieldtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/bankpay/internal/clock"
	"github.com/smallbiznis/bankpay/internal/metafield/domain"
	"github.com/smallbiznis/bankpay/internal/metafield/repository"
	"github.com/smallbiznis/bankpay/internal/metafield/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seq atomic.Int64

// OpenDB returns an isolated in-memory sqlite database with the metafields
// table created.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Metafield{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewStore returns a sqlite-backed Store driven by clk.
func NewStore(t *testing.T, clk clock.Clock) domain.Store {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return service.New(service.Params{
		DB:    OpenDB(t),
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
}
