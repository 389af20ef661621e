// Command memory-match starts the Memory Match game server.
//
// Commands:
//  1. "serve" (default) – runs the HTTP server exposing the game API, WebSocket events, metrics and an /mcp endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "migrate" – creates the PostgreSQL user tables
//  4. "validate" – checks the deck themes of a config directory
//
// Every flag can also be set through the environment or a .env file, and the
// serve command can expose itself through an ngrok tunnel during development.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/wricardo/memory-match/logger"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Memory Match Server"
)

// main loads .env and runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("error loading .env file", "error", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		logger.Fatal("command failed", "error", err)
	}
}
