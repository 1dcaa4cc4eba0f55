package students

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
)

type Repo interface {
	Create(ctx context.Context, tx *gorm.DB, row *student.Record) (*student.Record, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*student.Record, error)
	List(ctx context.Context, tx *gorm.DB) ([]*student.Record, error)
	Update(ctx context.Context, tx *gorm.DB, row *student.Record) error
}

type repo struct {
	db    *gorm.DB
	log   *logger.Logger
	table string
}

func NewRepo(db *gorm.DB, baseLog *logger.Logger, table string) Repo {
	if table == "" {
		table = student.Record{}.TableName()
	}
	repoLog := baseLog.With("repo", "StudentRepo", "table", table)
	return &repo{db: db, log: repoLog, table: table}
}

func (r *repo) scope(ctx context.Context, tx *gorm.DB) *gorm.DB {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Table(r.table)
}

func (r *repo) Create(ctx context.Context, tx *gorm.DB, row *student.Record) (*student.Record, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := r.scope(ctx, tx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*student.Record, error) {
	var result student.Record
	if err := r.scope(ctx, tx).
		Where("id = ?", id).
		Take(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repo) List(ctx context.Context, tx *gorm.DB) ([]*student.Record, error) {
	var results []*student.Record
	if err := r.scope(ctx, tx).
		Order("created_at DESC").
		Order("id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Update overwrites every column except id and created_at. It returns
// gorm.ErrRecordNotFound when no row has the given id.
func (r *repo) Update(ctx context.Context, tx *gorm.DB, row *student.Record) error {
	res := r.scope(ctx, tx).
		Model(row).
		Select("*").
		Omit("id", "created_at").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
