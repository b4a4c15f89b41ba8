// Package gameserver is the websocket transport: it authenticates
// connect tickets, owns the per-connection read/write loops, routes
// client operations into the game packages and fans engine events back
// out through the ClientManager sink.
package gameserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vexelgames/polyrift/internal/events"
	"github.com/vexelgames/polyrift/internal/game/combat"
	"github.com/vexelgames/polyrift/internal/game/dungeon"
	"github.com/vexelgames/polyrift/internal/game/progression"
	"github.com/vexelgames/polyrift/internal/game/weapon"
	"github.com/vexelgames/polyrift/internal/model"
	"github.com/vexelgames/polyrift/internal/world"
)

// handshakeTimeout bounds the wait for the connect frame.
const handshakeTimeout = 10 * time.Second

// teardownTimeout bounds the durable flush on disconnect.
const teardownTimeout = 5 * time.Second

// Deps collects the collaborators a Gateway routes into. Clients is
// shared with the engine as its event sink, so it is constructed by
// the caller rather than in NewGateway.
type Deps struct {
	Verifier   *TicketVerifier
	State      *world.State
	Clients    *ClientManager
	Weapons    *weapon.Model
	Session    *progression.Session
	Persistent *progression.Persistent
	Resolver   *combat.Resolver
	Dungeons   *dungeon.Manager
	Ticks      *combat.TickManager
}

// Gateway owns the /ws endpoint and each connection's lifecycle, from
// ticket verification through hub admission to disconnect teardown.
type Gateway struct {
	verifier   *TicketVerifier
	state      *world.State
	clients    *ClientManager
	weapons    *weapon.Model
	session    *progression.Session
	persistent *progression.Persistent
	resolver   *combat.Resolver
	dungeons   *dungeon.Manager
	ticks      *combat.TickManager

	upgrader websocket.Upgrader
}

func NewGateway(d Deps) *Gateway {
	return &Gateway{
		verifier:   d.Verifier,
		state:      d.State,
		clients:    d.Clients,
		weapons:    d.Weapons,
		session:    d.Session,
		persistent: d.Persistent,
		resolver:   d.Resolver,
		dungeons:   d.Dungeons,
		ticks:      d.Ticks,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes builds the HTTP surface: the websocket endpoint and a probe.
func (g *Gateway) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", g.ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ServeWS upgrades the connection and runs its whole session. The
// request context doubles as the player's cancellation signal: work in
// flight when the client vanishes is canceled with it.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	claims, ok := g.handshake(conn)
	if !ok {
		conn.Close()
		return
	}

	ctx := r.Context()
	p := g.admit(ctx, claims)
	client := newClient(p.ID(), claims.UserID, conn)
	g.clients.Register(client)
	go client.writePump()

	connectedAt := time.Now()
	slog.Info("player connected",
		"player", p.ID(),
		"user", claims.UserID,
		"username", claims.Name)

	g.welcome(p)
	g.readLoop(ctx, conn, p)
	g.teardown(ctx, client, p, connectedAt)
}

// handshake reads and verifies the connect frame. Any failure answers
// with a policy-violation close.
func (g *Gateway) handshake(conn *websocket.Conn) (TicketClaims, bool) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return TicketClaims{}, false
	}

	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Op != OpConnect {
		g.reject(conn, "connect frame expected")
		return TicketClaims{}, false
	}

	claims, err := g.verifier.Verify(msg.Ticket)
	if err != nil {
		slog.Warn("connect ticket rejected", "error", err)
		g.reject(conn, "invalid ticket")
		return TicketClaims{}, false
	}
	return claims, true
}

func (g *Gateway) reject(conn *websocket.Conn, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
}

// admit builds the session player, binds the durable character (first
// login creates one lazily) and places the player in the hub.
func (g *Gateway) admit(ctx context.Context, claims TicketClaims) *model.Player {
	p := model.NewPlayer(g.state.IDs().NextPlayerID(), claims.UserID, claims.Name)
	p.SetShape(claims.Shape)
	p.SetColor(claims.Color)
	g.session.Initialize(p)

	if g.persistent != nil {
		g.persistent.GetUserCharacters(ctx, claims.UserID, claims.Shape, claims.Color)
		if c := g.persistent.GetPrimaryCharacter(ctx, claims.UserID); c != nil {
			p.SetCharacterID(c.ID)
			if c.WeaponType != "" {
				p.SetWeaponType(c.WeaponType)
			}
		}
	}

	g.state.AddPlayer(p)
	g.state.EnterHub(p.ID())
	return p
}

// welcome delivers the handshake answer, the hub snapshot, and the join
// announce for everyone else.
func (g *Gateway) welcome(p *model.Player) {
	g.clients.SendToPlayer(p.ID(), EventConnected, ConnectedPayload{
		PlayerID:    p.ID(),
		Username:    p.Username(),
		Shape:       p.Shape(),
		Color:       p.Color(),
		CharacterID: p.CharacterID(),
		Stats:       g.session.GetCharacterStats(p),
	})
	g.clients.SendToPlayer(p.ID(), events.HubSnapshot, events.HubSnapshotPayload{
		Occupants: g.hubOccupants(),
	})
	g.clients.BroadcastToHub(events.PlayerJoined, events.PlayerJoinedPayload{
		Player: events.NewHubOccupant(p),
	}, p.ID())
}

// readLoop pulls frames until the connection dies. Malformed frames are
// dropped, not fatal.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, p *model.Player) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("malformed frame", "player", p.ID(), "error", err)
			continue
		}
		g.dispatch(ctx, p, msg)
	}
}

// teardown unwinds a disconnected player: combat scheduling, party
// membership, hub occupancy, world registration, and a best-effort
// play-time flush into the durable record.
func (g *Gateway) teardown(ctx context.Context, client *Client, p *model.Player, connectedAt time.Time) {
	id := p.ID()
	g.clients.Unregister(id, client)
	g.ticks.Unregister(id)

	if party := g.state.PlayerParty(id); party != nil {
		empty := party.RemoveMember(id)
		if empty {
			g.state.DisbandParty(party.ID())
			if roomID := party.RoomID(); roomID != 0 {
				g.state.RemoveRoom(roomID)
				party.SetRoomID(0)
			}
		} else {
			g.broadcastPartyUpdate(party)
		}
	}
	p.SetPartyID(0)

	wasInHub := g.state.LeaveHub(id)
	g.state.RemovePlayer(id)
	if wasInHub {
		g.clients.BroadcastToHub(events.PlayerLeft, events.PlayerLeftPayload{PlayerID: id}, id)
	}
	client.close()

	if g.persistent != nil && p.CharacterID() != 0 {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		defer cancel()
		seconds := int64(time.Since(connectedAt) / time.Second)
		g.persistent.RecordPlayTime(flushCtx, p.UserID(), p.CharacterID(), seconds)
	}

	slog.Info("player disconnected", "player", id, "user", p.UserID())
}

func (g *Gateway) hubOccupants() []events.HubOccupant {
	players := g.state.HubOccupants()
	out := make([]events.HubOccupant, 0, len(players))
	for _, p := range players {
		out = append(out, events.NewHubOccupant(p))
	}
	return out
}
