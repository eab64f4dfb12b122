package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"highseas/internal/combat"
	"highseas/internal/core"
	"highseas/pkg/logger"
	pb "highseas/proto"
)

// ValidatorServer is the authoritative side of the combat protocol.
type ValidatorServer struct {
	pb.UnimplementedValidatorServer
}

func roomError(err error) error {
	switch {
	case errors.Is(err, core.ErrRoomClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func lookupRoom(roomID string) (*core.Room, error) {
	room := core.GetRoom(roomID)
	if room == nil {
		return nil, status.Errorf(codes.NotFound, "room %s not found", roomID)
	}
	return room, nil
}

func (s *ValidatorServer) ProcessCombatAction(ctx context.Context, req *pb.CombatActionReq) (*pb.CombatActionResp, error) {
	room, err := lookupRoom(req.RoomId)
	if err != nil {
		return nil, err
	}

	resp, err := room.ProcessCombatAction(ctx, combat.ValidationRequest{
		ActionID:   req.ActionId,
		SourceID:   req.SourceId,
		TargetID:   req.TargetId,
		Damage:     int(req.Damage),
		Seed:       req.Seed,
		MissChance: req.MissChance,
		Timestamp:  time.UnixMilli(req.TimestampMs),
	})
	if err != nil {
		return nil, roomError(err)
	}

	out := &pb.CombatActionResp{
		Success:  resp.Success,
		ActionId: resp.ActionID,
		IsSunk:   resp.IsSunk,
		Error:    resp.Error,
	}
	if resp.Damage != nil {
		d := int32(*resp.Damage)
		out.Damage = &d
	}
	if resp.NewHealth != nil {
		hp := int32(*resp.NewHealth)
		out.NewHealth = &hp
	}
	if resp.CooldownRemaining != nil {
		ms := resp.CooldownRemaining.Milliseconds()
		out.CooldownRemainingMs = &ms
	}
	return out, nil
}

func (s *ValidatorServer) GetAuthoritativeState(ctx context.Context, req *pb.AuthoritativeStateReq) (*pb.AuthoritativeStateResp, error) {
	room, err := lookupRoom(req.RoomId)
	if err != nil {
		return nil, err
	}
	st, err := room.AuthoritativeState(ctx)
	if err != nil {
		return nil, roomError(err)
	}
	return &pb.AuthoritativeStateResp{
		ServerTimeMs: time.Now().UnixMilli(),
		Ships:        pb.FromWorld(st.Ships),
	}, nil
}

func NewGRPCServer() *grpc.Server {
	s := grpc.NewServer()
	pb.RegisterValidatorServer(s, &ValidatorServer{})
	return s
}

func StartGRPC(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}

	logger.Component("grpc").Infof("Validator gRPC listening on :%d", port)
	return NewGRPCServer().Serve(lis)
}
