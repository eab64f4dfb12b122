package pb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Websocket packet types.
const (
	PacketSnapshot = "snapshot"
	PacketEvent    = "event"
	PacketJoin     = "join"
	PacketPosition = "position"
)

// Room event kinds carried by PacketEvent.
const (
	EventShipJoined = "ship_joined"
	EventShipLeft   = "ship_left"
	EventHit        = "hit"
	EventShipSunk   = "ship_sunk"
	EventGameOver   = "game_over"
)

// Packet is one websocket frame: a type tag and its body.
type Packet struct {
	Type string
	Body *structpb.Struct
}

func (p *Packet) Marshal() ([]byte, error) {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"type": structpb.NewStringValue(p.Type),
		"body": structpb.NewStructValue(p.Body),
	}}
	return proto.Marshal(s)
}

func UnmarshalPacket(data []byte) (*Packet, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode packet: %w", err)
	}
	typ, err := requireString(&s, "type")
	if err != nil {
		return nil, err
	}
	body := s.GetFields()["body"].GetStructValue()
	if body == nil {
		body = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}
	return &Packet{Type: typ, Body: body}, nil
}

// Snapshot is the periodic room state push.
type Snapshot struct {
	Tick         int64
	ServerTimeMs int64
	Ships        []*ShipState
}

func (m *Snapshot) Packet() *Packet {
	body := (&AuthoritativeStateResp{ServerTimeMs: m.ServerTimeMs, Ships: m.Ships}).Struct()
	body.Fields["tick"] = numberValue(float64(m.Tick))
	return &Packet{Type: PacketSnapshot, Body: body}
}

func SnapshotFromPacket(p *Packet) *Snapshot {
	st := AuthoritativeStateRespFromStruct(p.Body)
	m := &Snapshot{ServerTimeMs: st.ServerTimeMs, Ships: st.Ships}
	if v, ok := number(p.Body, "tick"); ok {
		m.Tick = int64(v)
	}
	return m
}

// Event is a one-off room notification.
type Event struct {
	Kind    string
	ShipId  string
	Message string
}

func (m *Event) Packet() *Packet {
	return &Packet{Type: PacketEvent, Body: &structpb.Struct{Fields: map[string]*structpb.Value{
		"kind":    structpb.NewStringValue(m.Kind),
		"ship_id": structpb.NewStringValue(m.ShipId),
		"message": structpb.NewStringValue(m.Message),
	}}}
}

func EventFromPacket(p *Packet) *Event {
	return &Event{
		Kind:    str(p.Body, "kind"),
		ShipId:  str(p.Body, "ship_id"),
		Message: str(p.Body, "message"),
	}
}

// Join asks the room to spawn the sender's ship.
type Join struct {
	ShipId string
	Class  string
	X, Z   float64
}

func (m *Join) Packet() *Packet {
	return &Packet{Type: PacketJoin, Body: &structpb.Struct{Fields: map[string]*structpb.Value{
		"ship_id": structpb.NewStringValue(m.ShipId),
		"class":   structpb.NewStringValue(m.Class),
		"x":       numberValue(m.X),
		"z":       numberValue(m.Z),
	}}}
}

func JoinFromPacket(p *Packet) (*Join, error) {
	id, err := requireString(p.Body, "ship_id")
	if err != nil {
		return nil, err
	}
	m := &Join{ShipId: id, Class: str(p.Body, "class")}
	m.X, _ = number(p.Body, "x")
	m.Z, _ = number(p.Body, "z")
	return m, nil
}

// Position reports where the sender's ship is and where it is heading.
type Position struct {
	X, Y, Z    float64
	FwdX, FwdZ float64
}

func (m *Position) Packet() *Packet {
	return &Packet{Type: PacketPosition, Body: &structpb.Struct{Fields: map[string]*structpb.Value{
		"x":     numberValue(m.X),
		"y":     numberValue(m.Y),
		"z":     numberValue(m.Z),
		"fwd_x": numberValue(m.FwdX),
		"fwd_z": numberValue(m.FwdZ),
	}}}
}

func PositionFromPacket(p *Packet) *Position {
	m := &Position{}
	m.X, _ = number(p.Body, "x")
	m.Y, _ = number(p.Body, "y")
	m.Z, _ = number(p.Body, "z")
	m.FwdX, _ = number(p.Body, "fwd_x")
	m.FwdZ, _ = number(p.Body, "fwd_z")
	return m
}
