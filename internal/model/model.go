package model

import (
	"gorm.io/gorm"
)

// CombatRecord is one validated cannon hit.
type CombatRecord struct {
	gorm.Model
	RoomID    string `gorm:"type:varchar(64);index"`
	ActionID  int64  `gorm:"index"`
	SourceID  string `gorm:"type:varchar(64);index;not null"`
	TargetID  string `gorm:"type:varchar(64);index;not null"`
	Damage    int
	NewHealth int
	Sunk      bool
	Timestamp int64
}

type MatchHistory struct {
	gorm.Model
	MatchID   string `gorm:"type:varchar(64);index"`
	WinnerID  string `gorm:"type:varchar(64);index"`
	Ships     int
	Timestamp int64
}
