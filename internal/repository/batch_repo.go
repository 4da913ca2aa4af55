package repository

import (
	"context"
	"errors"
	"time"

	"go-retail-catalog/internal/model"

	"gorm.io/gorm"
)

// ErrBatchConsumed is returned when a mirror row has already left the staged state.
var ErrBatchConsumed = errors.New("import batch already applied or expired")

// BatchRepository keeps the durable audit mirror of staged imports.
type BatchRepository interface {
	WithTx(tx *gorm.DB) BatchRepository
	Record(ctx context.Context, batch *model.ImportBatch) error
	FindByBatchID(ctx context.Context, batchID string) (*model.ImportBatch, error)
	MarkApplied(ctx context.Context, batchID, appliedBy string, created, updated int, at time.Time) error
	MarkExpired(ctx context.Context, batchIDs []string) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type batchRepo struct {
	db *gorm.DB
}

func NewBatchRepo(db *gorm.DB) BatchRepository {
	return &batchRepo{db}
}

func (r *batchRepo) WithTx(tx *gorm.DB) BatchRepository {
	return &batchRepo{tx}
}

func (r *batchRepo) Record(ctx context.Context, batch *model.ImportBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepo) FindByBatchID(ctx context.Context, batchID string) (*model.ImportBatch, error) {
	var batch model.ImportBatch
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// MarkApplied moves a staged mirror row to applied. A row already applied or
// expired yields ErrBatchConsumed; a missing row is not an error since the
// mirror write on preview is best effort.
func (r *batchRepo) MarkApplied(ctx context.Context, batchID, appliedBy string, created, updated int, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.ImportBatch{}).
		Where("batch_id = ? AND status = ?", batchID, model.BatchStaged).
		Updates(map[string]interface{}{
			"status":     model.BatchApplied,
			"applied_by": appliedBy,
			"applied_at": at,
			"created":    created,
			"updated":    updated,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	existing, err := r.FindByBatchID(ctx, batchID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrBatchConsumed
	}
	return nil
}

func (r *batchRepo) MarkExpired(ctx context.Context, batchIDs []string) error {
	if len(batchIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.ImportBatch{}).
		Where("batch_id IN ? AND status = ?", batchIDs, model.BatchStaged).
		Update("status", model.BatchExpired).Error
}

// ExpireStale flags every staged mirror row whose TTL has passed.
func (r *batchRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ImportBatch{}).
		Where("status = ? AND expires_at <= ?", model.BatchStaged, now).
		Update("status", model.BatchExpired)
	return res.RowsAffected, res.Error
}
