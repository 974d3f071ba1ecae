package engine

// IsSolved reports whether every goal is covered by a box. A goal held only
// by the player does not count.
func IsSolved(g *Grid) bool {
	for _, row := range g.cells {
		for _, s := range row {
			if s == Goal || s == PlayerOnGoal {
				return false
			}
		}
	}
	return true
}

// CountGoals returns the number of goal squares in the template
func CountGoals(g *Grid) int {
	count := 0
	for _, row := range g.template {
		for _, s := range row {
			if s.Terrain() == Goal {
				count++
			}
		}
	}
	return count
}
