package sonos

import (
	"fmt"
	"strings"
)

// RoomStatus is the outcome of one per-room call inside a composite
// operation.
type RoomStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// GroupResult is the outcome of a group or ungroup composite: one entry per
// room in call order, plus the overall status. The overall status is
// "success" only if every per-room call succeeded; with no per-room calls
// the operation is vacuously successful.
type GroupResult struct {
	Status string       `json:"status"`
	Rooms  []RoomStatus `json:"rooms"`
}

// Succeeded reports whether the composite as a whole succeeded.
func (r *GroupResult) Succeeded() bool {
	return r.Status == "success"
}

func (r *GroupResult) finalize() *GroupResult {
	r.Status = "success"
	for _, room := range r.Rooms {
		if room.Status != "success" {
			r.Status = "error"
			break
		}
	}
	return r
}

// Group adds each room in others to the group playing whatever room is
// playing. Sub-calls run sequentially in the given order; a failed call is
// recorded and the loop continues. Grouping a room with itself is skipped.
func (c *Client) Group(room string, others []string) *GroupResult {
	result := &GroupResult{}
	for _, other := range others {
		if strings.EqualFold(other, room) {
			continue
		}
		status, err := c.performAction(room, epAddPlayer, strings.ToLower(other))
		if err != nil {
			status = fmt.Sprintf("error: %v", err)
		}
		result.Rooms = append(result.Rooms, RoomStatus{Name: other, Status: status})
	}
	return result.finalize()
}

// GroupAllRoomsWith groups every other room in the system with room.
func (c *Client) GroupAllRoomsWith(room string) (*GroupResult, error) {
	allRooms, err := c.GetRooms()
	if err != nil {
		return nil, err
	}
	others := make([]string, 0, len(allRooms))
	for _, r := range allRooms {
		if !strings.EqualFold(r, room) {
			others = append(others, r)
		}
	}
	return c.Group(room, others), nil
}

// Ungroup removes each room from its current group. Playback stops in the
// removed rooms. Same sequencing and status semantics as Group.
func (c *Client) Ungroup(rooms []string) *GroupResult {
	result := &GroupResult{}
	for _, room := range rooms {
		status, err := c.performAction(room, epUngroup)
		if err != nil {
			status = fmt.Sprintf("error: %v", err)
		}
		result.Rooms = append(result.Rooms, RoomStatus{Name: room, Status: status})
	}
	return result.finalize()
}

// UngroupAllRoomsFrom removes every other member of room's group, leaving
// room as a standalone player. A room that is already standalone (or not in
// the topology at all) is a no-op reported as success.
func (c *Client) UngroupAllRoomsFrom(room string) (*GroupResult, error) {
	others, err := c.RoomsInGroupExclusive(room)
	if err != nil {
		return nil, err
	}
	return c.Ungroup(others), nil
}

// RoomsInGroupInclusive returns all members of the group containing room,
// including room itself. Standalone rooms form singleton groups, so a room
// known to the system always yields at least itself.
func (c *Client) RoomsInGroupInclusive(room string) ([]string, error) {
	groups, err := c.GetGroups()
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		for _, name := range group {
			if strings.EqualFold(name, room) {
				return group, nil
			}
		}
	}
	return nil, fmt.Errorf("room %q not found in any group", room)
}

// RoomsInGroupExclusive returns the members of room's group other than room.
// An empty result means the room plays standalone. A room missing from the
// topology also yields an empty result.
func (c *Client) RoomsInGroupExclusive(room string) ([]string, error) {
	groups, err := c.GetGroups()
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		found := false
		for _, name := range group {
			if strings.EqualFold(name, room) {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		others := make([]string, 0, len(group)-1)
		for _, name := range group {
			if !strings.EqualFold(name, room) {
				others = append(others, name)
			}
		}
		return others, nil
	}
	return nil, nil
}

// PlayFavoriteEverywhere groups all rooms onto the first room the server
// reports, then plays favorite there. The gathering room follows server
// order and may vary between calls. Any failed step aborts the sequence.
func (c *Client) PlayFavoriteEverywhere(favorite string) (string, error) {
	room, err := c.gatherEverywhere()
	if err != nil {
		return "", err
	}
	return c.PlayFavorite(favorite, room)
}

// PlayPlaylistEverywhere groups all rooms onto the first room the server
// reports, then plays playlist there.
func (c *Client) PlayPlaylistEverywhere(playlist string) (string, error) {
	room, err := c.gatherEverywhere()
	if err != nil {
		return "", err
	}
	return c.PlayPlaylist(playlist, room)
}

// gatherEverywhere groups the whole system onto the first reported room and
// returns that room.
func (c *Client) gatherEverywhere() (string, error) {
	allRooms, err := c.GetRooms()
	if err != nil {
		return "", err
	}
	if len(allRooms) == 0 {
		return "", fmt.Errorf("no rooms found in the system")
	}
	room := allRooms[0]

	result, err := c.GroupAllRoomsWith(room)
	if err != nil {
		return "", err
	}
	if !result.Succeeded() {
		failed := 0
		for _, r := range result.Rooms {
			if r.Status != "success" {
				failed++
			}
		}
		return "", fmt.Errorf("failed to group %d room(s) with %q", failed, room)
	}
	return room, nil
}
