package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	FindByRef(ctx context.Context, db *gorm.DB, ref Ref) (*Metafield, error)
	Insert(ctx context.Context, db *gorm.DB, mf *Metafield) error
	UpdateIfVersion(ctx context.Context, db *gorm.DB, id snowflake.ID, value datatypes.JSON, expectedVersion int64, now time.Time) (bool, error)
}
