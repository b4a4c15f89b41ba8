package gameserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vexelgames/polyrift/internal/charclient"
	"github.com/vexelgames/polyrift/internal/events"
	"github.com/vexelgames/polyrift/internal/model"
)

// dispatch routes one inbound frame. Unknown ops are logged and
// dropped; malformed input never kills the connection.
func (g *Gateway) dispatch(ctx context.Context, p *model.Player, msg clientMessage) {
	switch msg.Op {
	case OpMove:
		g.handleMove(p, msg)
	case OpChangeWeapon:
		g.handleChangeWeapon(p, msg)
	case OpUpgradeWeapon:
		g.handleUpgradeWeapon(p, msg)
	case OpUpgradeStat:
		g.handleUpgradeStat(p, msg)
	case OpPartyCreate:
		g.handlePartyCreate(p)
	case OpPartyInvite:
		g.handlePartyInvite(p, msg)
	case OpPartyAccept:
		g.handlePartyAccept(p, msg)
	case OpPartyLeave:
		g.handlePartyLeave(p)
	case OpStartDungeon:
		g.handleStartDungeon(p, msg)
	case OpAttack:
		g.handleAttack(ctx, p, msg)
	case OpGetCharacters:
		g.handleGetCharacters(ctx, p)
	case OpSelectPrimary:
		g.handleSelectPrimary(ctx, p, msg)
	case OpDeleteCharacter:
		g.handleDeleteCharacter(ctx, p, msg)
	default:
		slog.Debug("unknown op", "player", p.ID(), "op", msg.Op)
	}
}

func (g *Gateway) sendError(p *model.Player, op, message string) {
	g.clients.SendToPlayer(p.ID(), EventError, ErrorPayload{Op: op, Message: message})
}

func (g *Gateway) sendStats(p *model.Player) {
	g.clients.SendToPlayer(p.ID(), EventStatsUpdate, g.session.GetCharacterStats(p))
}

// handleMove applies the client position and rebroadcasts it: to the
// other hub occupants while in the hub, to the whole party inside a
// dungeon (the echo carries the authoritative position).
func (g *Gateway) handleMove(p *model.Player, msg clientMessage) {
	p.SetPosition(model.Vector3{X: msg.X, Y: msg.Y, Z: msg.Z})

	payload := events.PlayerMovedPayload{PlayerID: p.ID(), Position: p.Position()}
	if g.state.InHub(p.ID()) {
		g.clients.BroadcastToHub(events.PlayerMoved, payload, p.ID())
		return
	}
	if partyID := p.PartyID(); partyID != 0 {
		g.clients.BroadcastToParty(partyID, events.PlayerMoved, payload)
	}
}

// handleChangeWeapon validates the requested type against the
// catalogue. The weapon model itself tolerates unknown stored types,
// but new ones only enter through here.
func (g *Gateway) handleChangeWeapon(p *model.Player, msg clientMessage) {
	if !g.weapons.Catalogue().Has(msg.WeaponType) {
		g.sendError(p, OpChangeWeapon, "unknown weapon type")
		return
	}
	g.weapons.ChangeWeapon(p, msg.WeaponType)
	g.sendStats(p)
}

func (g *Gateway) handleUpgradeWeapon(p *model.Player, msg clientMessage) {
	if !g.weapons.ApplyUpgrade(p, msg.Kind, msg.Amount) {
		g.sendError(p, OpUpgradeWeapon, "unknown upgrade kind")
		return
	}
	g.sendStats(p)
}

func (g *Gateway) handleUpgradeStat(p *model.Player, msg clientMessage) {
	var ok bool
	switch msg.Stat {
	case StatHealth:
		ok = g.session.UpgradeHealth(p, int32(msg.Amount))
	case StatMana:
		ok = g.session.UpgradeMana(p, int32(msg.Amount))
	case StatDefense:
		ok = g.session.UpgradeDefense(p, int32(msg.Amount))
	case StatMovementSpeed:
		ok = g.session.UpgradeMovementSpeed(p, msg.Mult)
	case StatDamageMultiplier:
		ok = g.session.UpgradeDamageMultiplier(p, msg.Mult)
	case StatAttackSpeed:
		ok = g.session.UpgradeAttackSpeed(p, msg.Mult)
	default:
		g.sendError(p, OpUpgradeStat, "unknown stat")
		return
	}
	if !ok {
		g.sendError(p, OpUpgradeStat, "upgrade rejected")
		return
	}
	g.sendStats(p)
}

func (g *Gateway) handlePartyCreate(p *model.Player) {
	if p.PartyID() != 0 {
		g.sendError(p, OpPartyCreate, "already in a party")
		return
	}
	party := g.state.CreateParty(p)
	slog.Info("party created", "party", party.ID(), "leader", p.ID())
	g.broadcastPartyUpdate(party)
}

// handlePartyInvite stores a pending invite on the target and notifies
// them. The party itself is created lazily when the first invite is
// accepted.
func (g *Gateway) handlePartyInvite(p *model.Player, msg clientMessage) {
	if party := g.state.PlayerParty(p.ID()); party != nil {
		if party.MemberCount() >= model.MaxPartyMembers {
			g.sendError(p, OpPartyInvite, "party is full")
			return
		}
		if !party.IsLeader(p.ID()) {
			g.sendError(p, OpPartyInvite, "only the party leader can invite")
			return
		}
	}

	target := g.state.Player(msg.PlayerID)
	if target == nil {
		g.sendError(p, OpPartyInvite, "player not found")
		return
	}
	if target.ID() == p.ID() {
		g.sendError(p, OpPartyInvite, "cannot invite yourself")
		return
	}
	if target.PartyID() != 0 {
		g.sendError(p, OpPartyInvite, "player is already in a party")
		return
	}
	if target.PendingPartyInvite() != nil {
		g.sendError(p, OpPartyInvite, "player already has a pending invite")
		return
	}

	target.SetPendingPartyInvite(&model.PartyInvite{
		FromID:   p.ID(),
		FromName: p.Username(),
	})
	g.clients.SendToPlayer(target.ID(), EventPartyInvite, PartyInvitePayload{
		FromID:   p.ID(),
		FromName: p.Username(),
	})
	slog.Debug("party invite sent", "from", p.ID(), "to", target.ID())
}

func (g *Gateway) handlePartyAccept(p *model.Player, msg clientMessage) {
	invite := p.PendingPartyInvite()
	if invite == nil {
		return
	}
	p.ClearPendingPartyInvite()

	inviter := g.state.Player(invite.FromID)
	if inviter == nil {
		// Inviter disconnected while the invite sat unanswered.
		return
	}

	if !msg.Accepted {
		g.clients.SendToPlayer(inviter.ID(), EventPartyDeclined, PartyDeclinedPayload{
			PlayerID: p.ID(),
			Username: p.Username(),
		})
		slog.Debug("party invite declined", "from", inviter.ID(), "by", p.ID())
		return
	}

	if p.PartyID() != 0 {
		g.sendError(p, OpPartyAccept, "already in a party")
		return
	}

	party := g.state.PlayerParty(inviter.ID())
	if party == nil {
		party = g.state.CreateParty(inviter)
	}
	if party.RoomID() != 0 {
		g.sendError(p, OpPartyAccept, "party is inside a dungeon")
		return
	}
	if err := party.AddMember(p); err != nil {
		g.sendError(p, OpPartyAccept, err.Error())
		return
	}
	p.SetPartyID(party.ID())

	slog.Info("player joined party", "party", party.ID(), "player", p.ID())
	g.broadcastPartyUpdate(party)
}

// handlePartyLeave removes the player from their party. Leadership
// hand-off and disband-when-empty are the party's own rules; a leaver
// still inside a dungeon room is walked back to the hub first.
func (g *Gateway) handlePartyLeave(p *model.Player) {
	party := g.state.PlayerParty(p.ID())
	if party == nil {
		return
	}

	empty := party.RemoveMember(p.ID())
	p.SetPartyID(0)
	g.dungeons.ReturnMemberToHub(p)

	if empty {
		g.state.DisbandParty(party.ID())
		if roomID := party.RoomID(); roomID != 0 {
			// Last member walked out of a live run; drop the instance.
			g.state.RemoveRoom(roomID)
			party.SetRoomID(0)
		}
	} else {
		g.broadcastPartyUpdate(party)
	}

	g.clients.SendToPlayer(p.ID(), events.PartyUpdated, events.PartyUpdatedPayload{PartyID: 0})
	slog.Info("player left party", "party", party.ID(), "player", p.ID())
}

func (g *Gateway) handleStartDungeon(p *model.Player, msg clientMessage) {
	if _, err := g.dungeons.StartDungeon(p.ID(), msg.Template); err != nil {
		g.sendError(p, OpStartDungeon, err.Error())
	}
}

func (g *Gateway) handleAttack(ctx context.Context, p *model.Player, msg clientMessage) {
	result := g.resolver.AttackEnemy(ctx, p, msg.EnemyID)
	g.clients.SendToPlayer(p.ID(), EventAttackResult, result)
}

func (g *Gateway) handleGetCharacters(ctx context.Context, p *model.Player) {
	g.sendCharacters(ctx, p)
}

func (g *Gateway) handleSelectPrimary(ctx context.Context, p *model.Player, msg clientMessage) {
	if g.persistent == nil {
		g.sendError(p, OpSelectPrimary, "character service unavailable")
		return
	}
	if !g.persistent.SetPrimaryCharacter(ctx, p.UserID(), msg.CharacterID) {
		g.sendError(p, OpSelectPrimary, "could not select primary character")
		return
	}
	p.SetCharacterID(msg.CharacterID)
	g.sendCharacters(ctx, p)
}

// handleDeleteCharacter surfaces the service's own rejection message so
// the client can tell a business rule (last character) from an outage.
func (g *Gateway) handleDeleteCharacter(ctx context.Context, p *model.Player, msg clientMessage) {
	if g.persistent == nil {
		g.sendError(p, OpDeleteCharacter, "character service unavailable")
		return
	}
	if err := g.persistent.DeleteCharacter(ctx, p.UserID(), msg.CharacterID); err != nil {
		var apiErr *charclient.APIError
		if errors.As(err, &apiErr) {
			g.sendError(p, OpDeleteCharacter, apiErr.Message)
		} else {
			g.sendError(p, OpDeleteCharacter, "character service unavailable")
		}
		return
	}

	if p.CharacterID() == msg.CharacterID {
		p.SetCharacterID(0)
		if c := g.persistent.GetPrimaryCharacter(ctx, p.UserID()); c != nil {
			p.SetCharacterID(c.ID)
		}
	}
	g.sendCharacters(ctx, p)
}

func (g *Gateway) sendCharacters(ctx context.Context, p *model.Player) {
	if g.persistent == nil {
		g.sendError(p, OpGetCharacters, "character service unavailable")
		return
	}
	chars := g.persistent.GetUserCharacters(ctx, p.UserID(), p.Shape(), p.Color())
	if chars == nil {
		chars = []model.Character{}
	}
	g.clients.SendToPlayer(p.ID(), EventCharacters, CharactersPayload{Characters: chars})
}

func (g *Gateway) broadcastPartyUpdate(party *model.Party) {
	g.clients.BroadcastToParty(party.ID(), events.PartyUpdated, events.PartyUpdatedPayload{
		PartyID:  party.ID(),
		LeaderID: party.Leader().ID(),
		Members:  party.MemberIDs(),
		RoomID:   party.RoomID(),
	})
}
