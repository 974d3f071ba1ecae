// Package levels provides the level catalog for the Sokoban server.
//
// The catalog starts from the five built-in levels and overlays any *.json
// level files found in the levels directory:
//
//	{
//	  "id": 6,
//	  "name": "Corner Case",
//	  "description": "Optional text",
//	  "layout": ["#####", "#@$.#", "#####"]
//	}
//
// Layout rows use the standard Sokoban characters (# wall, space floor,
// . goal, $ box, * box on goal, @ player, + player on goal). Files are
// checked with engine.ValidateLevel when loaded; invalid ones are skipped.
//
// Usage:
//
//	catalog, err := levels.NewCatalog("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//	game := engine.NewGameSession(catalog)
//	err = game.LoadLevel(levels.ResolveLevelID(os.Getenv("SOKOBAN_LEVEL"), catalog))
package levels
