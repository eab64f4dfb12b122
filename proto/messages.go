package pb

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// CombatActionReq asks the validator to judge one cannon shot.
type CombatActionReq struct {
	RoomId      string
	ActionId    int64
	SourceId    string
	TargetId    string
	Damage      int32
	Seed        int64
	MissChance  float64
	TimestampMs int64
}

func (m *CombatActionReq) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"room_id":      structpb.NewStringValue(m.RoomId),
		"action_id":    numberValue(float64(m.ActionId)),
		"source_id":    structpb.NewStringValue(m.SourceId),
		"target_id":    structpb.NewStringValue(m.TargetId),
		"damage":       numberValue(float64(m.Damage)),
		"seed":         numberValue(float64(m.Seed)),
		"miss_chance":  numberValue(m.MissChance),
		"timestamp_ms": numberValue(float64(m.TimestampMs)),
	}}
}

func CombatActionReqFromStruct(s *structpb.Struct) (*CombatActionReq, error) {
	room, err := requireString(s, "room_id")
	if err != nil {
		return nil, err
	}
	target, err := requireString(s, "target_id")
	if err != nil {
		return nil, err
	}
	m := &CombatActionReq{
		RoomId:   room,
		SourceId: str(s, "source_id"),
		TargetId: target,
	}
	if v, ok := number(s, "action_id"); ok {
		m.ActionId = int64(v)
	}
	if v, ok := number(s, "damage"); ok {
		m.Damage = int32(v)
	}
	if v, ok := number(s, "seed"); ok {
		m.Seed = int64(v)
	}
	if v, ok := number(s, "miss_chance"); ok {
		m.MissChance = v
	}
	if v, ok := number(s, "timestamp_ms"); ok {
		m.TimestampMs = int64(v)
	}
	return m, nil
}

// CombatActionResp is the validator's verdict. Optional numbers are nil when
// absent; ActionId is zero when the validator could not echo it.
type CombatActionResp struct {
	Success             bool
	ActionId            int64
	Damage              *int32
	NewHealth           *int32
	IsSunk              bool
	Error               string
	CooldownRemainingMs *int64
}

func (m *CombatActionResp) Struct() *structpb.Struct {
	f := map[string]*structpb.Value{
		"success": structpb.NewBoolValue(m.Success),
		"is_sunk": structpb.NewBoolValue(m.IsSunk),
	}
	if m.ActionId != 0 {
		f["action_id"] = numberValue(float64(m.ActionId))
	}
	if m.Damage != nil {
		f["damage"] = numberValue(float64(*m.Damage))
	}
	if m.NewHealth != nil {
		f["new_health"] = numberValue(float64(*m.NewHealth))
	}
	if m.Error != "" {
		f["error"] = structpb.NewStringValue(m.Error)
	}
	if m.CooldownRemainingMs != nil {
		f["cooldown_remaining_ms"] = numberValue(float64(*m.CooldownRemainingMs))
	}
	return &structpb.Struct{Fields: f}
}

func CombatActionRespFromStruct(s *structpb.Struct) *CombatActionResp {
	m := &CombatActionResp{
		Success:             boolean(s, "success"),
		IsSunk:              boolean(s, "is_sunk"),
		Error:               str(s, "error"),
		Damage:              int32Ptr(s, "damage"),
		NewHealth:           int32Ptr(s, "new_health"),
		CooldownRemainingMs: int64Ptr(s, "cooldown_remaining_ms"),
	}
	if v, ok := number(s, "action_id"); ok {
		m.ActionId = int64(v)
	}
	return m
}

type AuthoritativeStateReq struct {
	RoomId string
}

func (m *AuthoritativeStateReq) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"room_id": structpb.NewStringValue(m.RoomId),
	}}
}

func AuthoritativeStateReqFromStruct(s *structpb.Struct) (*AuthoritativeStateReq, error) {
	room, err := requireString(s, "room_id")
	if err != nil {
		return nil, err
	}
	return &AuthoritativeStateReq{RoomId: room}, nil
}

type ShipState struct {
	Id        string
	Type      string
	X, Y, Z   float64
	Health    int32
	MaxHealth int32
	IsSunk    bool
}

func (m *ShipState) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         structpb.NewStringValue(m.Id),
		"type":       structpb.NewStringValue(m.Type),
		"x":          numberValue(m.X),
		"y":          numberValue(m.Y),
		"z":          numberValue(m.Z),
		"health":     numberValue(float64(m.Health)),
		"max_health": numberValue(float64(m.MaxHealth)),
		"is_sunk":    structpb.NewBoolValue(m.IsSunk),
	}}
}

func ShipStateFromStruct(s *structpb.Struct) *ShipState {
	m := &ShipState{
		Id:     str(s, "id"),
		Type:   str(s, "type"),
		IsSunk: boolean(s, "is_sunk"),
	}
	m.X, _ = number(s, "x")
	m.Y, _ = number(s, "y")
	m.Z, _ = number(s, "z")
	if v, ok := number(s, "health"); ok {
		m.Health = int32(v)
	}
	if v, ok := number(s, "max_health"); ok {
		m.MaxHealth = int32(v)
	}
	return m
}

type AuthoritativeStateResp struct {
	ServerTimeMs int64
	Ships        []*ShipState
}

func (m *AuthoritativeStateResp) Struct() *structpb.Struct {
	ships := make([]*structpb.Value, 0, len(m.Ships))
	for _, s := range m.Ships {
		ships = append(ships, structpb.NewStructValue(s.Struct()))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"server_time_ms": numberValue(float64(m.ServerTimeMs)),
		"ships":          structpb.NewListValue(&structpb.ListValue{Values: ships}),
	}}
}

func AuthoritativeStateRespFromStruct(s *structpb.Struct) *AuthoritativeStateResp {
	m := &AuthoritativeStateResp{}
	if v, ok := number(s, "server_time_ms"); ok {
		m.ServerTimeMs = int64(v)
	}
	for _, v := range s.GetFields()["ships"].GetListValue().GetValues() {
		if st := v.GetStructValue(); st != nil {
			m.Ships = append(m.Ships, ShipStateFromStruct(st))
		}
	}
	return m
}
