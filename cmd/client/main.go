package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"highseas/internal/client"
	"highseas/internal/combat"
	"highseas/internal/dao"
	"highseas/internal/rpc"
	"highseas/internal/world"
	"highseas/pkg/config"
	"highseas/pkg/logger"
)

func combatOptions(cfg config.CombatConfig) combat.Options {
	opts := combat.DefaultOptions()
	opts.MissChance = cfg.MissChance
	opts.ProjectileSpeed = cfg.ProjectileSpeed
	opts.SafetyBuffer = cfg.SafetyBuffer
	opts.ActionTimeout = cfg.ActionTimeout
	opts.PruneGrace = cfg.PruneGrace
	opts.SyncInterval = cfg.SyncInterval
	opts.SnapThreshold = cfg.SnapThreshold
	opts.StrictCorrelation = cfg.StrictCorrelation
	return opts
}

func safeZones(cfg config.GameConfig) world.SafeZones {
	zones := make(world.SafeZones, 0, len(cfg.SafeZones))
	for _, z := range cfg.SafeZones {
		zones = append(zones, world.SafeZone{Name: z.Name, X: z.X, Z: z.Z, Radius: z.Radius})
	}
	return zones
}

func main() {
	logger.Init()
	config.InitConfig()
	cfg := config.AppConfig
	log := logger.Component("client")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shipID := cfg.Client.ShipID
	if shipID == "" {
		shipID = "ship-" + uuid.NewString()[:8]
	}
	roomID := cfg.Client.RoomID

	if err := dao.InitRedis(cfg.Redis); err != nil {
		log.Fatalf("Redis: %v", err)
	}
	store := dao.NewRemoteStore(dao.RDB)
	token, err := store.EnsureRoom(ctx, roomID)
	if err != nil {
		log.Fatalf("Room token: %v", err)
	}
	if skew, err := store.ClockSkew(ctx); err != nil {
		log.Warnf("Clock skew: %v", err)
	} else {
		log.WithField("skew_ms", skew.Milliseconds()).Info("Measured clock skew against the shared store")
	}

	validator, err := rpc.Dial(cfg.Client.ValidatorAddr, roomID, cfg.Client.RPCTimeout)
	if err != nil {
		log.Fatalf("Validator: %v", err)
	}
	defer validator.Close()

	pilot := client.NewPilot(client.Config{
		ServerURL: cfg.Client.ServerURL,
		RoomID:    roomID,
		Token:     token,
		ShipID:    shipID,
		ShipClass: cfg.Client.ShipClass,
		Spawn:     world.Vec3{X: cfg.Client.SpawnX, Z: cfg.Client.SpawnZ},
		TickRate:  cfg.Client.TickRate,
		AutoFire:  cfg.Client.AutoFire,
	}, validator, dao.ShotChannel{Store: store, RoomID: roomID}, safeZones(cfg.Game), combatOptions(cfg.Combat), log)

	if err := pilot.Connect(ctx); err != nil {
		log.Fatalf("Connect: %v", err)
	}

	shots, err := store.SubscribeShots(ctx, roomID)
	if err != nil {
		log.Fatalf("Shot feed: %v", err)
	}

	log.WithField("ship_id", shipID).Infof("Sailing in room %s", roomID)
	if err := pilot.Run(ctx, shots); err != nil {
		log.Errorf("Client stopped: %v", err)
	}
}
