package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGrid(t *testing.T, layout ...string) *Grid {
	t.Helper()
	g, err := NewGridFromLayout(layout)
	require.NoError(t, err)
	return g
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		name    string
		layout  []string
		wantErr bool
	}{
		{"classic symbols", []string{"#####", "#@$.#", "#####"}, false},
		{"goal variants", []string{"#+*.#"}, false},
		{"dash and underscore floor", []string{"#-_@#"}, false},
		{"jagged rows", []string{"####", "#@ ##", "###"}, false},
		{"empty layout", []string{}, true},
		{"invalid character", []string{"#@X#"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayout(tt.layout)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformedLevel), "expected ErrMalformedLevel, got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseLayout_FloorAliases(t *testing.T) {
	rows, err := ParseLayout([]string{"#-_@#"})
	require.NoError(t, err)
	assert.Equal(t, Floor, rows[0][1])
	assert.Equal(t, Floor, rows[0][2])
}

func TestGrid_CellAt(t *testing.T) {
	g := mustGrid(t,
		"#####",
		"#@$.#",
		"###",
	)

	tests := []struct {
		name string
		pos  Position
		want Symbol
	}{
		{"wall corner", Position{0, 0}, Wall},
		{"player", Position{1, 1}, Player},
		{"box", Position{1, 2}, Box},
		{"goal", Position{1, 3}, Goal},
		{"negative row", Position{-1, 0}, OutOfBounds},
		{"negative col", Position{1, -1}, OutOfBounds},
		{"row past height", Position{3, 0}, OutOfBounds},
		{"col past width", Position{1, 5}, OutOfBounds},
		{"col past short row", Position{2, 3}, OutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.CellAt(tt.pos))
		})
	}
}

func TestGrid_TemplateIsIndependent(t *testing.T) {
	g := mustGrid(t, "#@.#")

	g.SetCell(Position{0, 2}, PlayerOnGoal)
	g.SetCell(Position{0, 1}, Floor)

	assert.Equal(t, PlayerOnGoal, g.CellAt(Position{0, 2}))
	assert.Equal(t, Goal, g.TemplateCellAt(Position{0, 2}))
	assert.Equal(t, Player, g.TemplateCellAt(Position{0, 1}))
	assert.Equal(t, Floor, g.TerrainAt(Position{0, 1}))
	assert.Equal(t, Goal, g.TerrainAt(Position{0, 2}))
}

func TestGrid_TerrainAt(t *testing.T) {
	g := mustGrid(t, "#+*$@. #")

	assert.Equal(t, Wall, g.TerrainAt(Position{0, 0}))
	assert.Equal(t, Goal, g.TerrainAt(Position{0, 1}))
	assert.Equal(t, Goal, g.TerrainAt(Position{0, 2}))
	assert.Equal(t, Floor, g.TerrainAt(Position{0, 3}))
	assert.Equal(t, Floor, g.TerrainAt(Position{0, 4}))
	assert.Equal(t, Goal, g.TerrainAt(Position{0, 5}))
	assert.Equal(t, Floor, g.TerrainAt(Position{0, 6}))
	assert.Equal(t, OutOfBounds, g.TerrainAt(Position{0, 8}))
}

func TestGrid_SetCellOutOfBoundsIgnored(t *testing.T) {
	g := mustGrid(t, "#@#")
	before := g.Clone()

	g.SetCell(Position{-1, 0}, Box)
	g.SetCell(Position{0, 3}, Box)
	g.SetCell(Position{5, 5}, Box)

	assert.True(t, g.Equal(before))
}

func TestGrid_LocatePlayer(t *testing.T) {
	g := mustGrid(t, "####", "# +#", "####")
	pos, err := g.LocatePlayer()
	require.NoError(t, err)
	assert.Equal(t, Position{Row: 1, Col: 2}, pos)

	empty := mustGrid(t, "####", "# .#", "####")
	_, err = empty.LocatePlayer()
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestGrid_Dimensions(t *testing.T) {
	g := mustGrid(t, "  ####", "###@ #", "####")
	assert.Equal(t, 3, g.Height())
	assert.Equal(t, 6, g.Width())
	assert.Equal(t, []string{"  ####", "###@ #", "####"}, g.Rows())
	assert.Equal(t, g.Rows(), g.TemplateRows())
}

func TestGrid_CloneAndEqual(t *testing.T) {
	g := mustGrid(t, "#@ #")
	clone := g.Clone()
	assert.True(t, g.Equal(clone))

	clone.SetCell(Position{0, 2}, Box)
	assert.False(t, g.Equal(clone))
	assert.Equal(t, Floor, g.CellAt(Position{0, 2}))
	assert.False(t, g.Equal(nil))
}

func TestGrid_Count(t *testing.T) {
	g := mustGrid(t, "#$$*.@#")
	assert.Equal(t, 2, g.Count(Box))
	assert.Equal(t, 1, g.Count(BoxOnGoal))
	assert.Equal(t, 1, g.Count(Goal))
	assert.Equal(t, 2, CountGoals(g))
}

func TestGrid_RestoreCells(t *testing.T) {
	g := mustGrid(t, "#####", "#@$.#", "#####")

	require.NoError(t, g.restoreCells([]string{"#####", "# @*#", "#####"}))
	assert.Equal(t, BoxOnGoal, g.CellAt(Position{1, 3}))

	err := g.restoreCells([]string{"#####", "#@$.#"})
	assert.ErrorIs(t, err, ErrMalformedLevel)

	err = g.restoreCells([]string{"#####", "#@$. ", "#####"})
	assert.ErrorIs(t, err, ErrMalformedLevel, "walls must not move")
}
