package engine

import "fmt"

// Grid holds the mutable play cells alongside the immutable template they
// were copied from. Rows may be of unequal length.
type Grid struct {
	template [][]Symbol
	cells    [][]Symbol
}

// ParseLayout converts authored rows into symbols
func ParseLayout(layout []string) ([][]Symbol, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: layout is empty", ErrMalformedLevel)
	}
	if len(layout) > MaxLevelRows {
		return nil, fmt.Errorf("%w: layout has %d rows, max %d", ErrMalformedLevel, len(layout), MaxLevelRows)
	}

	rows := make([][]Symbol, len(layout))
	for r, line := range layout {
		if len(line) > MaxLevelColumns {
			return nil, fmt.Errorf("%w: row %d has %d columns, max %d", ErrMalformedLevel, r, len(line), MaxLevelColumns)
		}
		rows[r] = make([]Symbol, len(line))
		for c := 0; c < len(line); c++ {
			sym, ok := ParseSymbol(line[c])
			if !ok {
				return nil, fmt.Errorf("%w: invalid character '%c' at row %d, col %d", ErrMalformedLevel, line[c], r, c)
			}
			rows[r][c] = sym
		}
	}
	return rows, nil
}

// NewGrid builds a play grid as a structural copy of template
func NewGrid(template [][]Symbol) *Grid {
	return &Grid{
		template: copyRows(template),
		cells:    copyRows(template),
	}
}

// NewGridFromLayout parses layout and builds a grid from it
func NewGridFromLayout(layout []string) (*Grid, error) {
	rows, err := ParseLayout(layout)
	if err != nil {
		return nil, err
	}
	return NewGrid(rows), nil
}

func copyRows(src [][]Symbol) [][]Symbol {
	dst := make([][]Symbol, len(src))
	for i, row := range src {
		dst[i] = append([]Symbol(nil), row...)
	}
	return dst
}

func lookup(rows [][]Symbol, pos Position) Symbol {
	if pos.Row < 0 || pos.Row >= len(rows) {
		return OutOfBounds
	}
	row := rows[pos.Row]
	if pos.Col < 0 || pos.Col >= len(row) {
		return OutOfBounds
	}
	return row[pos.Col]
}

// CellAt returns the current symbol at pos, or OutOfBounds
func (g *Grid) CellAt(pos Position) Symbol {
	return lookup(g.cells, pos)
}

// TemplateCellAt returns the authored symbol at pos, or OutOfBounds
func (g *Grid) TemplateCellAt(pos Position) Symbol {
	return lookup(g.template, pos)
}

// TerrainAt returns the fixed terrain class at pos, read from the template
func (g *Grid) TerrainAt(pos Position) Symbol {
	return g.TemplateCellAt(pos).Terrain()
}

// SetCell overwrites the symbol at pos. Out of bounds writes are ignored.
func (g *Grid) SetCell(pos Position, s Symbol) {
	if g.CellAt(pos) == OutOfBounds {
		return
	}
	g.cells[pos.Row][pos.Col] = s
}

// LocatePlayer scans for the player symbol
func (g *Grid) LocatePlayer() (Position, error) {
	for r, row := range g.cells {
		for c, s := range row {
			if s.IsPlayer() {
				return Position{Row: r, Col: c}, nil
			}
		}
	}
	return Position{}, ErrPlayerNotFound
}

// Count returns how many cells currently hold s
func (g *Grid) Count(s Symbol) int {
	count := 0
	for _, row := range g.cells {
		for _, cell := range row {
			if cell == s {
				count++
			}
		}
	}
	return count
}

// Height returns the number of rows
func (g *Grid) Height() int {
	return len(g.cells)
}

// Width returns the length of the longest row
func (g *Grid) Width() int {
	width := 0
	for _, row := range g.cells {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Rows renders the play cells as strings
func (g *Grid) Rows() []string {
	return renderRows(g.cells)
}

// TemplateRows renders the template as strings
func (g *Grid) TemplateRows() []string {
	return renderRows(g.template)
}

func renderRows(rows [][]Symbol) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		b := make([]byte, len(row))
		for j, s := range row {
			b[j] = byte(s)
		}
		out[i] = string(b)
	}
	return out
}

// Clone returns an independent copy sharing no cells with g
func (g *Grid) Clone() *Grid {
	return &Grid{
		template: copyRows(g.template),
		cells:    copyRows(g.cells),
	}
}

// Equal reports whether both grids hold the same play cells
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || len(g.cells) != len(other.cells) {
		return false
	}
	for i := range g.cells {
		if len(g.cells[i]) != len(other.cells[i]) {
			return false
		}
		for j := range g.cells[i] {
			if g.cells[i][j] != other.cells[i][j] {
				return false
			}
		}
	}
	return true
}

// restoreCells replaces the play cells with rows, keeping the template.
// Rows must match the template shape and terrain.
func (g *Grid) restoreCells(rows []string) error {
	parsed, err := ParseLayout(rows)
	if err != nil {
		return err
	}
	if len(parsed) != len(g.template) {
		return fmt.Errorf("%w: restored grid has %d rows, template has %d", ErrMalformedLevel, len(parsed), len(g.template))
	}
	for r := range parsed {
		if len(parsed[r]) != len(g.template[r]) {
			return fmt.Errorf("%w: restored row %d has %d columns, template has %d", ErrMalformedLevel, r, len(parsed[r]), len(g.template[r]))
		}
		for c := range parsed[r] {
			if (parsed[r][c] == Wall) != (g.template[r][c] == Wall) {
				return fmt.Errorf("%w: wall mismatch at row %d, col %d", ErrMalformedLevel, r, c)
			}
		}
	}
	g.cells = parsed
	return nil
}
