// Command analyze prints quick, human-readable heuristics about the level
// catalog: dimensions, box and goal counts, a push lower bound from Manhattan
// distances, and dead corners where a box could never be moved again.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/levels"
)

// LevelAnalysis holds the heuristics computed for one level
type LevelAnalysis struct {
	ID          int
	Name        string
	Width       int
	Height      int
	Boxes       int
	Goals       int
	BoxesOnGoal int
	Player      engine.Position
	// PushLowerBound sums each box's Manhattan distance to its nearest goal
	PushLowerBound int
	DeadCorners    []engine.Position
	StuckBoxes     []engine.Position
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Print heuristics for every level in the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "levels-dir", Usage: "Directory of extra *.json levels", Sources: cli.EnvVars("LEVELS_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			catalog, err := levels.NewCatalog(cmd.String("levels-dir"))
			if err != nil {
				return err
			}
			return analyzeCatalog(os.Stdout, catalog)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func analyzeCatalog(out io.Writer, catalog engine.Catalog) error {
	for _, id := range catalog.IDs() {
		level, err := catalog.Template(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n=== Analyzing level %d ===\n", id)

		analysis, err := analyzeLevel(level)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printAnalysis(out, analysis)
	}
	return nil
}

func analyzeLevel(level *engine.Level) (*LevelAnalysis, error) {
	rows, err := engine.ValidateLevel(level)
	if err != nil {
		return nil, err
	}
	grid := engine.NewGrid(rows)
	player, err := grid.LocatePlayer()
	if err != nil {
		return nil, err
	}

	analysis := &LevelAnalysis{
		ID:          level.ID,
		Name:        level.Name,
		Width:       grid.Width(),
		Height:      grid.Height(),
		Goals:       engine.CountGoals(grid),
		BoxesOnGoal: grid.Count(engine.BoxOnGoal),
		Player:      player,
	}

	var boxes, goals []engine.Position
	for r := 0; r < grid.Height(); r++ {
		for c := 0; c < grid.Width(); c++ {
			pos := engine.Position{Row: r, Col: c}
			cell := grid.CellAt(pos)
			if cell.IsBox() {
				boxes = append(boxes, pos)
			}
			if cell.Terrain() == engine.Goal {
				goals = append(goals, pos)
			}
			if isDeadCorner(grid, pos) {
				analysis.DeadCorners = append(analysis.DeadCorners, pos)
				if cell.IsBox() {
					analysis.StuckBoxes = append(analysis.StuckBoxes, pos)
				}
			}
		}
	}
	analysis.Boxes = len(boxes)

	for _, box := range boxes {
		minDist := -1
		for _, goal := range goals {
			dist := abs(box.Row-goal.Row) + abs(box.Col-goal.Col)
			if minDist < 0 || dist < minDist {
				minDist = dist
			}
		}
		if minDist > 0 {
			analysis.PushLowerBound += minDist
		}
	}

	return analysis, nil
}

// isDeadCorner reports whether a box on pos could never move again: a floor
// cell with a wall on one vertical and one horizontal side.
func isDeadCorner(grid *engine.Grid, pos engine.Position) bool {
	if grid.TerrainAt(pos) != engine.Floor {
		return false
	}
	blocked := func(dir engine.Direction) bool {
		t := grid.TerrainAt(pos.Add(dir))
		return t == engine.Wall || t == engine.OutOfBounds
	}
	vertical := blocked(engine.Up) || blocked(engine.Down)
	horizontal := blocked(engine.Left) || blocked(engine.Right)
	return vertical && horizontal
}

func printAnalysis(out io.Writer, a *LevelAnalysis) {
	fmt.Fprintf(out, "Name: %s\n", a.Name)
	fmt.Fprintf(out, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(out, "Player Position: %s\n", a.Player)
	fmt.Fprintf(out, "Boxes: %d (%d already on goals)\n", a.Boxes, a.BoxesOnGoal)
	fmt.Fprintf(out, "Goals: %d\n", a.Goals)
	fmt.Fprintf(out, "Push Lower Bound: %d\n", a.PushLowerBound)
	fmt.Fprintf(out, "Dead Corners: %d\n", len(a.DeadCorners))

	if a.Boxes < a.Goals {
		fmt.Fprintf(out, "⚠️  CRITICAL: %d boxes for %d goals, level cannot be solved\n", a.Boxes, a.Goals)
	}

	if len(a.StuckBoxes) > 0 {
		fmt.Fprintf(out, "⚠️  CRITICAL: %d boxes start in a dead corner!\n", len(a.StuckBoxes))
		for i, p := range a.StuckBoxes {
			if i < 5 {
				fmt.Fprintf(out, "   Stuck box: %s\n", p)
			}
		}
		if len(a.StuckBoxes) > 5 {
			fmt.Fprintf(out, "   ... and %d more\n", len(a.StuckBoxes)-5)
		}
	} else {
		fmt.Fprintf(out, "✅ No box starts in a dead corner\n")
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
