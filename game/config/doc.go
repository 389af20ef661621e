// Package config provides deck theme management for the memory match game.
//
// The config package handles:
//   - Loading deck themes from JSON, YAML or TOML files
//   - Theme validation
//   - Default theme selection
//   - Theme discovery and listing
//
// Theme Format:
//
// A theme is one file in the configs directory; its id is the file name
// without the extension. Each theme defines:
//   - name and description
//   - pair_count, the number of pairs dealt
//   - symbols, the card faces (image paths or short tokens)
//   - penalties, the score cost of an extra move and of a second
//   - flip_back_delay_ms, how long a mismatched pair stays visible
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("letters")
//	defaultConfig := manager.GetDefault()
//	themes, err := manager.ListConfigs()
//
// The default theme is "classic" when present, otherwise the first valid
// theme, otherwise the built-in eight picture deck.
package config
