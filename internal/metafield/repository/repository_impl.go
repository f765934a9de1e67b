package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bankpay/internal/metafield/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByRef(ctx context.Context, db *gorm.DB, ref domain.Ref) (*domain.Metafield, error) {
	var mf domain.Metafield
	err := db.WithContext(ctx).Raw(
		`SELECT id, shop, owner_type, owner_id, namespace, field_key, value, version, created_at, updated_at
		 FROM metafields
		 WHERE shop = ? AND owner_type = ? AND owner_id = ? AND namespace = ? AND field_key = ?`,
		ref.Shop,
		ref.OwnerType,
		ref.OwnerID,
		ref.Namespace,
		ref.Key,
	).Scan(&mf).Error
	if err != nil {
		return nil, err
	}
	if mf.ID == 0 {
		return nil, nil
	}
	return &mf, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, mf *domain.Metafield) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO metafields (id, shop, owner_type, owner_id, namespace, field_key, value, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mf.ID,
		mf.Shop,
		mf.OwnerType,
		mf.OwnerID,
		mf.Namespace,
		mf.FieldKey,
		mf.Value,
		mf.Version,
		mf.CreatedAt,
		mf.UpdatedAt,
	).Error
}

func (r *repo) UpdateIfVersion(ctx context.Context, db *gorm.DB, id snowflake.ID, value datatypes.JSON, expectedVersion int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE metafields
		 SET value = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		value,
		now,
		id,
		expectedVersion,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
