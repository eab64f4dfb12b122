package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"highseas/internal/combat"
	pb "highseas/proto"
)

const defaultTimeout = 5 * time.Second

// ValidatorClient is the client-side RemoteValidator for one room.
type ValidatorClient struct {
	conn    *grpc.ClientConn
	client  pb.ValidatorClient
	roomID  string
	timeout time.Duration
}

func Dial(addr, roomID string, timeout time.Duration, opts ...grpc.DialOption) (*ValidatorClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect validator %s: %w", addr, err)
	}
	return NewValidatorClient(conn, roomID, timeout), nil
}

func NewValidatorClient(conn *grpc.ClientConn, roomID string, timeout time.Duration) *ValidatorClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ValidatorClient{
		conn:    conn,
		client:  pb.NewValidatorClient(conn),
		roomID:  roomID,
		timeout: timeout,
	}
}

func (c *ValidatorClient) ProcessCombatAction(ctx context.Context, req combat.ValidationRequest) (combat.ValidationResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.ProcessCombatAction(ctx, &pb.CombatActionReq{
		RoomId:      c.roomID,
		ActionId:    req.ActionID,
		SourceId:    req.SourceID,
		TargetId:    req.TargetID,
		Damage:      int32(req.Damage),
		Seed:        req.Seed,
		MissChance:  req.MissChance,
		TimestampMs: req.Timestamp.UnixMilli(),
	})
	if err != nil {
		return combat.ValidationResponse{}, fmt.Errorf("process combat action %d: %w", req.ActionID, err)
	}

	out := combat.ValidationResponse{
		Success:  resp.Success,
		ActionID: resp.ActionId,
		IsSunk:   resp.IsSunk,
		Error:    resp.Error,
	}
	if resp.Damage != nil {
		d := int(*resp.Damage)
		out.Damage = &d
	}
	if resp.NewHealth != nil {
		hp := int(*resp.NewHealth)
		out.NewHealth = &hp
	}
	if resp.CooldownRemainingMs != nil {
		remaining := time.Duration(*resp.CooldownRemainingMs) * time.Millisecond
		out.CooldownRemaining = &remaining
	}
	return out, nil
}

func (c *ValidatorClient) GetAuthoritativeState(ctx context.Context) (combat.AuthoritativeState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.GetAuthoritativeState(ctx, &pb.AuthoritativeStateReq{RoomId: c.roomID})
	if err != nil {
		return combat.AuthoritativeState{}, fmt.Errorf("get authoritative state: %w", err)
	}
	return combat.AuthoritativeState{Ships: pb.ToWorld(resp.Ships)}, nil
}

func (c *ValidatorClient) Close() error {
	return c.conn.Close()
}
