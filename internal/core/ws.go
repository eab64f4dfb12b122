package core

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"highseas/internal/fleet"
	"highseas/internal/world"
	"highseas/pkg/logger"
	pb "highseas/proto"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	wsReadDeadline  = 60 * time.Second
	wsWriteDeadline = 10 * time.Second
	wsPingPeriod    = 30 * time.Second
	wsJoinDeadline  = 10 * time.Second
)

// TokenValidator checks room tokens issued by the store.
type TokenValidator interface {
	ValidateRoomToken(ctx context.Context, roomID, token string) (bool, error)
}

// HandleWebSocket upgrades /ws?room_id=&token=&ship_id= and streams room
// packets. The first client frame must be a join for ship_id.
func HandleWebSocket(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Query("room_id")
		token := c.Query("token")
		shipID := c.Query("ship_id")

		if roomID == "" || token == "" || shipID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room_id, token and ship_id required"})
			return
		}

		log := logger.Component("ws").WithFields(logrus.Fields{"room_id": roomID, "ship_id": shipID})

		if ok, err := tokens.ValidateRoomToken(c.Request.Context(), roomID, token); err != nil {
			log.WithError(err).Error("Token lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		} else if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid room token"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithError(err).Warn("Upgrade failed")
			return
		}
		defer ws.Close()

		join, err := readJoin(ws, shipID)
		if err != nil {
			log.WithError(err).Warn("Bad join")
			return
		}

		conn := &WebSocketConn{Conn: ws}
		ship := fleet.NewShip(shipID, world.LookupClass(join.Class), world.Vec3{X: join.X, Z: join.Z})
		player := NewPlayer(ship, shipID, conn)

		room, err := joinRoom(c.Request.Context(), roomID, player)
		if err != nil {
			log.WithError(err).Warn("Join failed")
			return
		}
		defer room.Leave(shipID)

		if st, err := room.AuthoritativeState(c.Request.Context()); err == nil {
			conn.Send((&pb.Snapshot{ServerTimeMs: time.Now().UnixMilli(), Ships: pb.FromWorld(st.Ships)}).Packet())
		}

		serve(room, conn, shipID, log)
	}
}

func readJoin(ws *websocket.Conn, shipID string) (*pb.Join, error) {
	ws.SetReadDeadline(time.Now().Add(wsJoinDeadline))
	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	pkt, err := pb.UnmarshalPacket(data)
	if err != nil {
		return nil, err
	}
	if pkt.Type != pb.PacketJoin {
		return nil, errors.New("first packet must be join")
	}
	join, err := pb.JoinFromPacket(pkt)
	if err != nil {
		return nil, err
	}
	if join.ShipId != shipID {
		return nil, errors.New("join ship_id does not match query")
	}
	return join, nil
}

// joinRoom retries once when it races a room that is shutting down.
func joinRoom(ctx context.Context, roomID string, p *Player) (*Room, error) {
	room := CreateRoom(roomID)
	err := room.Join(ctx, p)
	if errors.Is(err, ErrRoomClosed) {
		forget(room)
		room = CreateRoom(roomID)
		err = room.Join(ctx, p)
	}
	return room, err
}

func serve(room *Room, conn *WebSocketConn, shipID string, log *logrus.Entry) {
	ws := conn.Conn
	ws.SetReadDeadline(time.Now().Add(wsReadDeadline))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	messageChan := make(chan []byte)
	doneChan := make(chan struct{})

	go func() {
		defer close(doneChan)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				log.Debugf("Read error: %v", err)
				return
			}
			select {
			case messageChan <- data:
			case <-room.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-pingTicker.C:
			if err := conn.Ping(); err != nil {
				log.Debugf("Ping error: %v", err)
				return
			}

		case data := <-messageChan:
			ws.SetReadDeadline(time.Now().Add(wsReadDeadline))

			pkt, err := pb.UnmarshalPacket(data)
			if err != nil {
				continue
			}
			if pkt.Type == pb.PacketPosition {
				pos := pb.PositionFromPacket(pkt)
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				err := room.UpdatePosition(ctx, shipID,
					world.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z},
					world.Vec3{X: pos.FwdX, Z: pos.FwdZ})
				cancel()
				if errors.Is(err, ErrRoomClosed) {
					return
				}
			}

		case <-room.Done():
			return

		case <-doneChan:
			return
		}
	}
}
