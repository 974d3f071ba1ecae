package engine

import (
	"fmt"
	"strings"
)

// Direction is one of the four axis directions
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every valid direction in a stable order
var Directions = []Direction{Up, Down, Left, Right}

// ParseDirection accepts up/top/down/left/right, compass names and u/d/l/r,
// case-insensitive
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "top", "u", "north":
		return Up, nil
	case "down", "d", "south":
		return Down, nil
	case "left", "l", "west":
		return Left, nil
	case "right", "r", "east":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Delta returns the (row, col) unit vector
func (d Direction) Delta() (int, int) {
	switch d {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// MarshalText encodes the direction by name
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes any name accepted by ParseDirection
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MoveOutcome is the result of resolving one directional command
type MoveOutcome int

const (
	Blocked MoveOutcome = iota
	MovedPlayer
	PushedBox
)

func (o MoveOutcome) String() string {
	switch o {
	case MovedPlayer:
		return "moved"
	case PushedBox:
		return "pushed"
	default:
		return "blocked"
	}
}

// MarshalText encodes the outcome by name
func (o MoveOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name
func (o *MoveOutcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "moved":
		*o = MovedPlayer
	case "pushed":
		*o = PushedBox
	case "blocked":
		*o = Blocked
	default:
		return fmt.Errorf("unknown move outcome %q", text)
	}
	return nil
}

// Resolve applies one directional command to g. A Blocked outcome leaves g
// untouched. The only error is ErrPlayerNotFound on a malformed grid.
func Resolve(g *Grid, dir Direction) (MoveOutcome, error) {
	p, err := g.LocatePlayer()
	if err != nil {
		return Blocked, err
	}
	adj := p.Add(dir)
	target := g.CellAt(adj)

	switch {
	case target.IsTraversable():
		movePlayer(g, p, adj, target)
		return MovedPlayer, nil

	case target.IsBox():
		beyond := adj.Add(dir)
		beyondCell := g.CellAt(beyond)
		if !beyondCell.IsTraversable() {
			return Blocked, nil
		}
		if beyondCell == Goal {
			g.SetCell(beyond, BoxOnGoal)
		} else {
			g.SetCell(beyond, Box)
		}
		movePlayer(g, p, adj, target)
		return PushedBox, nil
	}

	// Wall, OutOfBounds, or a second player symbol
	return Blocked, nil
}

// movePlayer vacates from, restoring its template terrain, and occupies to.
// entered is what to held before the player arrived.
func movePlayer(g *Grid, from, to Position, entered Symbol) {
	if g.TerrainAt(from) == Goal {
		g.SetCell(from, Goal)
	} else {
		g.SetCell(from, Floor)
	}

	if entered.Terrain() == Goal {
		g.SetCell(to, PlayerOnGoal)
	} else {
		g.SetCell(to, Player)
	}
}

// CanMove reports whether dir would change the grid, without mutating it
func CanMove(g *Grid, dir Direction) bool {
	probe := g.Clone()
	outcome, err := Resolve(probe, dir)
	return err == nil && outcome != Blocked
}
