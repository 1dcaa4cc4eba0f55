package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studentrisk-backend/internal/data/repos/students"
	"github.com/yungbote/studentrisk-backend/internal/domain/student"
)

// Store is the storage boundary: insert, read and update by id. Records
// carry storage-native names.
type Store interface {
	Insert(ctx context.Context, row *student.Record) (*student.Record, error)
	Update(ctx context.Context, row *student.Record) (*student.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*student.Record, error)
	List(ctx context.Context) ([]*student.Record, error)
	Ping(ctx context.Context) error
}

// GormStore backs Store with the gorm repository.
type GormStore struct {
	db   *gorm.DB
	repo students.Repo
}

func NewGormStore(db *gorm.DB, repo students.Repo) *GormStore {
	return &GormStore{db: db, repo: repo}
}

func (s *GormStore) Insert(ctx context.Context, row *student.Record) (*student.Record, error) {
	return s.repo.Create(ctx, nil, row)
}

func (s *GormStore) Update(ctx context.Context, row *student.Record) (*student.Record, error) {
	var out *student.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.GetByID(ctx, tx, row.ID)
		if err != nil {
			return err
		}
		row.CreatedAt = existing.CreatedAt
		if err := s.repo.Update(ctx, tx, row); err != nil {
			return err
		}
		out, err = s.repo.GetByID(ctx, tx, row.ID)
		return err
	})
	if err != nil {
		return nil, notFound(err)
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (*student.Record, error) {
	row, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, notFound(err)
	}
	return row, nil
}

func (s *GormStore) List(ctx context.Context) ([]*student.Record, error) {
	return s.repo.List(ctx, nil)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return student.ErrRecordNotFound
	}
	return err
}
