package collab

import (
	"github.com/google/uuid"
)

// Room is the set of connections currently collaborating on one diagram.
// Rooms are created on first join and torn down by the hub once empty.
// All access happens under the hub lock.
type Room struct {
	diagramID uuid.UUID
	name      string
	ownerID   uuid.UUID
	members   map[string]*Client // keyed by connection id
}

func newRoom(diagramID uuid.UUID, name string, ownerID uuid.UUID) *Room {
	return &Room{
		diagramID: diagramID,
		name:      name,
		ownerID:   ownerID,
		members:   make(map[string]*Client),
	}
}

func (r *Room) memberInfos() []MemberInfo {
	infos := make([]MemberInfo, 0, len(r.members))
	for _, m := range r.members {
		infos = append(infos, MemberInfo{
			ConnectionID: m.ID,
			UserID:       m.UserID,
			Name:         m.Name,
			Permission:   m.permission,
			Cursor:       m.lastCursor,
		})
	}
	return infos
}

// hasUser reports whether any current member belongs to the given user; a
// reconnecting user does not consume a second capacity slot.
func (r *Room) hasUser(userID uuid.UUID) bool {
	for _, m := range r.members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// broadcastExcept delivers the event to every member but the sender.
func (r *Room) broadcastExcept(senderID string, ev Event) {
	for id, m := range r.members {
		if id == senderID {
			continue
		}
		m.deliver(ev)
	}
}

// anyOther picks an arbitrary member other than the excluded connection, used
// to choose a state source for late joiners.
func (r *Room) anyOther(excludeID string) *Client {
	for id, m := range r.members {
		if id != excludeID {
			return m
		}
	}
	return nil
}
