package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
)

// AutoMigrate creates or updates the prediction table under the given name.
func AutoMigrate(db *gorm.DB, table string) error {
	if table == "" {
		table = student.Record{}.TableName()
	}
	if err := db.Table(table).AutoMigrate(&student.Record{}); err != nil {
		return fmt.Errorf("automigrate %s: %w", table, err)
	}
	return nil
}

func (s *Service) AutoMigrate(table string) error {
	if err := AutoMigrate(s.db, table); err != nil {
		return err
	}
	s.log.Info("schema migrated", "table", table)
	return nil
}
