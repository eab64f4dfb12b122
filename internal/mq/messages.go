package mq

import (
	"encoding/json"
	"fmt"

	"highseas/internal/model"
)

// Message kinds share one queue; Kind tells the consumer how to decode Body.
const (
	KindCombatRecord = "combat_record"
	KindGameResult   = "game_result"
)

type Envelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

type CombatRecord struct {
	RoomID    string `json:"room_id"`
	ActionID  int64  `json:"action_id"`
	SourceID  string `json:"source_id"`
	TargetID  string `json:"target_id"`
	Damage    int    `json:"damage"`
	NewHealth int    `json:"new_health"`
	Sunk      bool   `json:"sunk"`
	Timestamp int64  `json:"timestamp"`
}

type GameResult struct {
	MatchID   string `json:"match_id"`
	Winner    string `json:"winner"`
	Ships     int    `json:"ships"`
	Timestamp int64  `json:"timestamp"`
}

func encode(kind string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(Envelope{Kind: kind, Body: raw})
}

func (r CombatRecord) Model() *model.CombatRecord {
	return &model.CombatRecord{
		RoomID:    r.RoomID,
		ActionID:  r.ActionID,
		SourceID:  r.SourceID,
		TargetID:  r.TargetID,
		Damage:    r.Damage,
		NewHealth: r.NewHealth,
		Sunk:      r.Sunk,
		Timestamp: r.Timestamp,
	}
}

func (r GameResult) Model() *model.MatchHistory {
	return &model.MatchHistory{
		MatchID:   r.MatchID,
		WinnerID:  r.Winner,
		Ships:     r.Ships,
		Timestamp: r.Timestamp,
	}
}
