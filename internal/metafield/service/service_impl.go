package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bankpay/internal/clock"
	"github.com/smallbiznis/bankpay/internal/metafield/domain"
	"github.com/smallbiznis/bankpay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Store {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("metafield.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Get(ctx context.Context, ref domain.Ref) (domain.Document, error) {
	if err := ref.Validate(); err != nil {
		return domain.Document{}, err
	}
	mf, err := s.repo.FindByRef(ctx, s.db, ref)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read metafield %s/%s: %w", ref.Namespace, ref.Key, err)
	}
	if mf == nil {
		return domain.Document{}, nil
	}
	return domain.Document{Value: mf.Value, Version: mf.Version, UpdatedAt: mf.UpdatedAt}, nil
}

func (s *Service) Put(ctx context.Context, ref domain.Ref, value []byte, expectedVersion int64) (int64, error) {
	if err := ref.Validate(); err != nil {
		return 0, err
	}
	if !json.Valid(value) {
		return 0, domain.ErrMalformedDocument
	}

	existing, err := s.repo.FindByRef(ctx, s.db, ref)
	if err != nil {
		return 0, fmt.Errorf("read metafield %s/%s: %w", ref.Namespace, ref.Key, err)
	}

	now := s.clock.Now()
	if existing == nil {
		if expectedVersion != 0 {
			return 0, domain.ErrVersionConflict
		}
		mf := &domain.Metafield{
			ID:        s.genID.Generate(),
			Shop:      ref.Shop,
			OwnerType: ref.OwnerType,
			OwnerID:   ref.OwnerID,
			Namespace: ref.Namespace,
			FieldKey:  ref.Key,
			Value:     datatypes.JSON(value),
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, s.db, mf); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return 0, domain.ErrVersionConflict
			}
			return 0, fmt.Errorf("write metafield %s/%s: %w", ref.Namespace, ref.Key, err)
		}
		return mf.Version, nil
	}

	if existing.Version != expectedVersion {
		return 0, domain.ErrVersionConflict
	}
	updated, err := s.repo.UpdateIfVersion(ctx, s.db, existing.ID, datatypes.JSON(value), expectedVersion, now)
	if err != nil {
		return 0, fmt.Errorf("write metafield %s/%s: %w", ref.Namespace, ref.Key, err)
	}
	if !updated {
		s.log.Debug("metafield version conflict",
			zap.String("namespace", ref.Namespace),
			zap.String("key", ref.Key),
			zap.Int64("expected_version", expectedVersion),
		)
		return 0, domain.ErrVersionConflict
	}
	return expectedVersion + 1, nil
}
