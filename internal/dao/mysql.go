package dao

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"highseas/internal/model"
)

// HistoryStore persists combat records and match results.
type HistoryStore struct {
	DB *gorm.DB
}

func InitMySQL(dsn string) (*HistoryStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	if err := db.AutoMigrate(&model.CombatRecord{}, &model.MatchHistory{}); err != nil {
		return nil, fmt.Errorf("mysql migrate: %w", err)
	}
	return &HistoryStore{DB: db}, nil
}

func (s *HistoryStore) AddCombatRecord(rec *model.CombatRecord) error {
	return s.DB.Create(rec).Error
}

func (s *HistoryStore) AddMatchHistory(h *model.MatchHistory) error {
	return s.DB.Create(h).Error
}

// GetShipHistory pages through the hits a ship dealt or took, newest first.
func (s *HistoryStore) GetShipHistory(shipID string, page, limit int) ([]model.CombatRecord, error) {
	if page < 1 {
		page = 1
	}
	var history []model.CombatRecord
	offset := (page - 1) * limit
	err := s.DB.Where("source_id = ? OR target_id = ?", shipID, shipID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&history).Error
	return history, err
}
