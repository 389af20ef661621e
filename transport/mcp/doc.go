// Package mcp exposes the memory match game as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool calls the REST API of a running
// server with a login token, so an AI agent plays exactly like a browser
// does and shares its session rules.
//
// MCP Tools:
//   - new_game: deal a new game, optionally from a deck theme
//   - game_state: the board with hidden, open and matched cards
//   - flip_card: flip one card and report match / no match
//   - reset_flipped_cards: turn a mismatched pair face down
//   - preload_images: card pictures of a deck theme
//   - save_score: score the current game
//   - list_configs, leaderboard, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", token)
//	server.ServeStdio(client.GetMCPServer())
package mcp
