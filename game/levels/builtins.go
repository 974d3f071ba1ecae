package levels

import "github.com/wricardo/sokoban-game/game/engine"

// builtinLevels are the five levels the game ships with. Levels 4 and 5 share
// a layout and keep separate ids so saved sessions for either stay valid.
func builtinLevels() []*engine.Level {
	return []*engine.Level{
		{
			ID:          1,
			Name:        "First Steps",
			Description: "Two boxes, two goals, plenty of room",
			Layout: []string{
				"########",
				"#      #",
				"#@ $   #",
				"#   $  #",
				"# . .  #",
				"########",
			},
		},
		{
			ID:          2,
			Name:        "Winding Room",
			Description: "One box around a pillar",
			Layout: []string{
				"  ##### ",
				"###   # ",
				"# $ # ##",
				"# #  . #",
				"#    # #",
				"## #   #",
				" #@  ###",
				" #####  ",
			},
		},
		{
			ID:          3,
			Name:        "Back Door",
			Description: "Reach the box from behind",
			Layout: []string{
				"    ####",
				"#####  #",
				"#   $  #",
				"#  .#  #",
				"## ## ##",
				"#      #",
				"# @#   #",
				"#  #####",
				"####    ",
			},
		},
		{
			ID:          4,
			Name:        "Crossroads",
			Description: "Two boxes either side of the start",
			Layout:      crossroads(),
		},
		{
			ID:          5,
			Name:        "Crossroads Again",
			Description: "The same crossroads, one more time",
			Layout:      crossroads(),
		},
	}
}

func crossroads() []string {
	return []string{
		"    #### ",
		" ####  # ",
		"## $   # ",
		"#  # #$# ",
		"#.@.   ##",
		"## # #  #",
		" #      #",
		" #  #####",
		" ####    ",
	}
}
