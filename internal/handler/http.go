package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"highseas/internal/core"
	"highseas/internal/fleet"
	"highseas/internal/world"
)

// RoomIssuer hands out room tokens.
type RoomIssuer interface {
	EnsureRoom(ctx context.Context, roomID string) (string, error)
}

// HandleCreateRoom opens a room and returns the token clients join with.
func HandleCreateRoom(rooms RoomIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RoomID string `json:"room_id"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if req.RoomID == "" {
			req.RoomID = uuid.NewString()
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		token, err := rooms.EnsureRoom(ctx, req.RoomID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create room failed", "details": err.Error()})
			return
		}
		core.CreateRoom(req.RoomID)

		c.JSON(http.StatusOK, gin.H{"room_id": req.RoomID, "token": token})
	}
}

// HandleRoomState serves the authoritative snapshot as JSON.
func HandleRoomState(c *gin.Context) {
	room := core.GetRoom(c.Param("id"))
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	st, err := room.AuthoritativeState(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	ships := make([]gin.H, 0, len(st.Ships))
	for _, s := range st.Ships {
		ships = append(ships, gin.H{
			"id":         s.ID,
			"type":       s.Type,
			"x":          s.Position.X,
			"y":          s.Position.Y,
			"z":          s.Position.Z,
			"health":     s.Health,
			"max_health": s.MaxHealth,
			"is_sunk":    s.IsSunk,
		})
	}
	c.JSON(http.StatusOK, gin.H{"room_id": room.ID, "ships": ships})
}

// HandleSpawnShip puts a ship without a socket into a room, e.g. a target
// dummy for a headless client.
func HandleSpawnShip(c *gin.Context) {
	room := core.GetRoom(c.Param("id"))
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	var req struct {
		ShipID string  `json:"ship_id" binding:"required"`
		Class  string  `json:"class"`
		X      float64 `json:"x"`
		Z      float64 `json:"z"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ship := fleet.NewShip(req.ShipID, world.LookupClass(req.Class), world.Vec3{X: req.X, Z: req.Z})
	if err := room.Join(ctx, core.NewPlayer(ship, req.ShipID, nil)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrRoomClosed) {
			status = http.StatusGone
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ship_id": req.ShipID, "class": ship.Class().Name})
}

func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CORS allows browser clients from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Router wires every HTTP route of the combat server.
func Router(rooms RoomIssuer, tokens core.TokenValidator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), CORS())

	r.GET("/healthz", HandleHealth)
	r.GET("/ws", core.HandleWebSocket(tokens))

	api := r.Group("/api")
	{
		api.POST("/rooms", HandleCreateRoom(rooms))
		api.GET("/rooms/:id/state", HandleRoomState)
		api.POST("/rooms/:id/ships", HandleSpawnShip)
	}
	return r
}
