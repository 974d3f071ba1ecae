// Command validate checks Sokoban level files before they are dropped into a
// levels directory. For every *.json file it checks:
//   - JSON structure and a positive id
//   - Allowed characters (# space - _ . $ * @ +) and the row/column limits
//   - Exactly one player and at least one goal
//   - At least as many boxes as goals
//   - Enclosure: the player cannot walk off the grid through a gap in the walls
//   - Every goal and box lies in the player's walled area
//
// With --builtin the levels shipped with the server are checked as well.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/levels"
)

// ValidationResult captures the outcome of validating a single level.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateLevelFile loads and validates a single level JSON file
func validateLevelFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var level engine.Level
	if err := json.Unmarshal(data, &level); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	checked := validateLevel(&level)
	checked.File = result.File
	return checked
}

// validateLevel runs every structural and playability check on level
func validateLevel(level *engine.Level) ValidationResult {
	result := ValidationResult{
		File:   fmt.Sprintf("level %d", level.ID),
		Valid:  true,
		Errors: []string{},
	}

	if level.ID <= 0 {
		result.fail("id must be positive, got %d", level.ID)
	}
	if strings.TrimSpace(level.Name) == "" {
		result.fail("name is required")
	}
	if len(level.Layout) == 0 {
		result.fail("Layout is empty")
		return result
	}
	if len(level.Layout) > engine.MaxLevelRows {
		result.fail("Layout has %d rows, limit is %d", len(level.Layout), engine.MaxLevelRows)
	}

	counts := map[engine.Symbol]int{}
	for i, row := range level.Layout {
		if len(row) > engine.MaxLevelColumns {
			result.fail("Row %d has %d columns, limit is %d", i+1, len(row), engine.MaxLevelColumns)
		}
		for j := 0; j < len(row); j++ {
			s, ok := engine.ParseSymbol(row[j])
			if !ok {
				result.fail("Invalid character '%c' at position [%d,%d]", row[j], i+1, j+1)
				continue
			}
			counts[s]++
		}
	}
	if !result.Valid {
		return result
	}

	players := counts[engine.Player] + counts[engine.PlayerOnGoal]
	boxes := counts[engine.Box] + counts[engine.BoxOnGoal]
	goals := counts[engine.Goal] + counts[engine.BoxOnGoal] + counts[engine.PlayerOnGoal]

	switch {
	case players == 0:
		result.fail("Must have exactly 1 player (@ or +), found none")
	case players > 1:
		result.fail("Must have exactly 1 player (@ or +), found %d", players)
	}
	if goals == 0 {
		result.fail("Must have at least 1 goal (., * or +)")
	}
	if boxes < goals {
		result.fail("Not enough boxes: %d boxes for %d goals", boxes, goals)
	}
	if !result.Valid {
		return result
	}

	grid, err := engine.NewGridFromLayout(level.Layout)
	if err != nil {
		result.fail("Invalid layout: %v", err)
		return result
	}

	reach := validateEnclosure(grid)
	if !reach.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, reach.Errors...)

	if result.Valid {
		result.info("Name: %s", level.Name)
		result.info("Grid: %dx%d", grid.Height(), grid.Width())
		result.info("Boxes: %d (%d on goals)", boxes, counts[engine.BoxOnGoal])
		result.info("Goals: %d", goals)
		if engine.IsSolved(grid) {
			result.info("Note: level starts solved")
		}
	}
	return result
}

// validateEnclosure flood fills from the player over every non-wall cell.
// Reaching outside the grid means the walls have a gap; goals and boxes the
// fill never reaches can never take part in the puzzle.
func validateEnclosure(grid *engine.Grid) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	start, err := grid.LocatePlayer()
	if err != nil {
		result.fail("Cannot validate enclosure: %v", err)
		return result
	}

	visited := map[engine.Position]bool{start: true}
	queue := []engine.Position{start}
	leaks := map[engine.Position]bool{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dir := range engine.Directions {
			next := current.Add(dir)
			if visited[next] {
				continue
			}
			switch grid.TerrainAt(next) {
			case engine.Wall:
				continue
			case engine.OutOfBounds:
				leaks[current] = true
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	if len(leaks) > 0 {
		result.fail("Enclosure failure: player can walk off the grid from %d cell(s)", len(leaks))
		for r := 0; r < grid.Height(); r++ {
			for c := 0; c < grid.Width(); c++ {
				pos := engine.Position{Row: r, Col: c}
				if leaks[pos] {
					result.Errors = append(result.Errors, fmt.Sprintf("Open edge at %s", pos))
				}
			}
		}
		return result
	}

	var stranded []string
	for r := 0; r < grid.Height(); r++ {
		for c := 0; c < grid.Width(); c++ {
			pos := engine.Position{Row: r, Col: c}
			cell := grid.CellAt(pos)
			if (cell.IsBox() || cell.Terrain() == engine.Goal) && !visited[pos] {
				stranded = append(stranded, fmt.Sprintf("%s at %s", cell.Name(), pos))
			}
		}
	}

	if len(stranded) > 0 {
		result.fail("Reachability failure: %d cell(s) outside the player's area", len(stranded))
		for _, s := range stranded {
			result.Errors = append(result.Errors, "Unreachable: "+s)
		}
		return result
	}

	result.info("Enclosure: %d cells reachable, no gaps in the walls", len(visited))
	return result
}

// validateBuiltins checks every level compiled into the server
func validateBuiltins() ([]ValidationResult, error) {
	catalog, err := levels.NewCatalog("")
	if err != nil {
		return nil, err
	}

	results := make([]ValidationResult, 0, len(catalog.IDs()))
	for _, id := range catalog.IDs() {
		level, err := catalog.Template(id)
		if err != nil {
			return nil, err
		}
		result := validateLevel(level)
		result.File = fmt.Sprintf("builtin level %d", id)
		results = append(results, result)
	}
	return results, nil
}

// printResult writes a concise report for one level and reports whether it passed
func printResult(result ValidationResult) bool {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, info := range result.Errors {
			fmt.Println("  " + info)
		}
		return true
	}

	fmt.Println("❌ INVALID")
	for _, err := range result.Errors {
		if !strings.HasPrefix(err, "✓") {
			fmt.Println("  ❌ " + err)
		}
	}
	return false
}

func run(ctx context.Context, cmd *cli.Command) error {
	var results []ValidationResult

	if cmd.Bool("builtin") {
		builtin, err := validateBuiltins()
		if err != nil {
			return fmt.Errorf("failed to load built-in levels: %w", err)
		}
		results = append(results, builtin...)
	}

	dirs := cmd.Args().Slice()
	if len(dirs) == 0 && !cmd.Bool("builtin") {
		dirs = []string{"../levels"}
	}
	for _, dir := range dirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return fmt.Errorf("error finding level files: %w", err)
		}
		for _, file := range files {
			results = append(results, validateLevelFile(file))
		}
	}

	allValid := true
	for _, result := range results {
		if !printResult(result) {
			allValid = false
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		return cli.Exit("❌ Some levels have errors", 1)
	}
	fmt.Printf("✅ All %d levels are valid!\n", len(results))
	return nil
}

// main validates the levels in each directory argument (default ../levels)
// and exits with non-zero status if any are invalid.
func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate Sokoban level files",
		ArgsUsage: "[levels-dir ...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "builtin", Usage: "Also validate the built-in levels"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
