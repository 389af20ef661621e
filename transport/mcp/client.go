package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
)

// cardsPerRow is the board width used when rendering a game as text.
const cardsPerRow = 4

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API. token is a
// login token sent as a bearer token on every call.
func NewClient(baseURL, token string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Memory Match",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Memory Match - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Find every pair of matching cards in as few moves as possible.

AVAILABLE TOOLS:
- new_game: Deal a new game (optionally from a deck theme)
- game_state: Show the board
- flip_card: Turn a card face up
- reset_flipped_cards: Turn a mismatched pair face down again
- preload_images: List the card pictures of a deck theme
- save_score: Save the score of the current game
- list_configs: List deck themes
- leaderboard: Show the best players
- game_instructions: Rules and tips`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Deal a new game. The previous game stays available until the session holds more than three games.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config": map[string]interface{}{
					"type":        "string",
					"description": "Deck theme to deal from (optional, see list_configs)",
				},
			},
		},
	}, c.handleNewGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board of the current game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flip_card",
		Description: "Flip a card face up. The second flip of a move reports whether the pair matched.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"card_id": map[string]interface{}{
					"type":        "integer",
					"description": "Position of the card, starting at 0",
				},
			},
			Required: []string{"card_id"},
		},
	}, c.handleFlipCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_flipped_cards",
		Description: "Turn the cards of a mismatched pair face down again",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"card_ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "Cards to turn face down, usually cards_to_flip_back of the last flip",
				},
			},
			Required: []string{"card_ids"},
		},
	}, c.handleResetFlippedCards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "preload_images",
		Description: "List the card pictures of a deck theme",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config": map[string]interface{}{
					"type":        "string",
					"description": "Deck theme (optional, defaults to the server default)",
				},
			},
		},
	}, c.handlePreloadImages)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "save_score",
		Description: "Score the current game and keep it if it is a new high score",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"moves": map[string]interface{}{
					"type":        "integer",
					"description": "Moves taken",
				},
				"seconds": map[string]interface{}{
					"type":        "integer",
					"description": "Seconds played",
				},
			},
			Required: []string{"moves", "seconds"},
		},
	}, c.handleSaveScore)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available deck themes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Show the best high scores",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of entries (default 10)",
				},
			},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"].(string); ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument.
func intArg(args map[string]interface{}, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Tool handlers

func (c *Client) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	config, _ := args["config"].(string)

	body := map[string]string{}
	if config != "" {
		body["config"] = config
	}

	var info service.GameInfo
	if err := c.apiCall(ctx, "POST", "/new_game", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameInfo(&info)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.GameInfo
	if err := c.apiCall(ctx, "GET", "/game", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameInfo(&info)), nil
}

func (c *Client) handleFlipCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cardID, ok := intArg(arguments(request), "card_id")
	if !ok {
		return mcp.NewToolResultError("card_id must be an integer"), nil
	}

	var result service.FlipResult
	err := c.apiCall(ctx, "POST", "/flip_card", map[string]int{"card_id": cardID}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFlipResult(cardID, &result)), nil
}

func (c *Client) handleResetFlippedCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, _ := arguments(request)["card_ids"].([]interface{})

	ids := make([]int, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return mcp.NewToolResultError("card_ids must be integers"), nil
		}
		ids = append(ids, int(f))
	}

	var state engine.GameState
	err := c.apiCall(ctx, "POST", "/reset_flipped_cards", map[string][]int{"card_ids": ids}, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handlePreloadImages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	config, _ := arguments(request)["config"].(string)

	p := "/preload_images"
	if config != "" {
		p += "?config=" + config
	}

	var response struct {
		Images []string `json:"images"`
	}
	if err := c.apiCall(ctx, "GET", p, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(response.Images) == 0 {
		return mcp.NewToolResultText("This deck has no pictures."), nil
	}
	return mcp.NewToolResultText("Card pictures:\n" + strings.Join(response.Images, "\n")), nil
}

func (c *Client) handleSaveScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	moves, ok := intArg(args, "moves")
	if !ok {
		return mcp.NewToolResultError("moves must be an integer"), nil
	}
	seconds, ok := intArg(args, "seconds")
	if !ok {
		return mcp.NewToolResultError("seconds must be an integer"), nil
	}

	var result service.ScoreResult
	err := c.apiCall(ctx, "POST", "/save_score", map[string]int{"moves": moves, "seconds": seconds}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Score: %d\nHigh score: %d", result.Score, result.HighScore)
	if result.IsHighScore {
		text += "\nNew high score!"
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Deck Themes:\n\n"
	for _, config := range configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Pairs: %d\n\n",
			config.ConfigID, config.Name, config.Description, config.PairCount)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := "/leaderboard"
	if limit, ok := intArg(arguments(request), "limit"); ok && limit > 0 {
		p += fmt.Sprintf("?limit=%d", limit)
	}

	var response struct {
		Entries []struct {
			Rank      int    `json:"rank"`
			Username  string `json:"username"`
			HighScore int    `json:"high_score"`
		} `json:"entries"`
	}
	if err := c.apiCall(ctx, "GET", p, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(response.Entries) == 0 {
		return mcp.NewToolResultText("No scores yet."), nil
	}

	var b strings.Builder
	b.WriteString("Leaderboard:\n")
	for _, e := range response.Entries {
		fmt.Fprintf(&b, "%2d. %-20s %d\n", e.Rank, e.Username, e.HighScore)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Memory Match - Complete Instructions

GAME OBJECTIVE:
Every card has exactly one twin. Find all pairs.

GAME MECHANICS:
• Cards are numbered from 0. Flip one with flip_card.
• A move is two flips. The second flip of a move is compared with the first.
• Match: both cards stay face up for the rest of the game.
• No match: both cards stay visible until you call reset_flipped_cards
  with the cards_to_flip_back of that flip. Remember what they showed!
• Flipping a card that is already face up, or any card after the game is
  finished, changes nothing.
• The game ends when the last pair is found.

BOARD LEGEND (game_state):
• [ 3:??  ] - face down card number 3
• [ 3:cat ] - face up card showing "cat"
• < 3:cat > - matched card

SCORING:
score = 10000 - (moves - pairs) × move penalty - seconds × time penalty
The default penalties are 50 per extra move and 10 per second.
The score never drops below 100. Call save_score when you finish.

STRATEGY TIPS:
• Keep track of every card you have seen.
• If the first card of a move matches a card you have already seen, flip
  that one next.
• Flip unseen cards first when you have no known pair.

SESSIONS:
new_game keeps up to three games per session; older games are dropped.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting

func formatGameInfo(info *service.GameInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game: %s\n", info.GameID)
	if info.Config != "" {
		fmt.Fprintf(&b, "Deck: %s\n", info.Config)
	}
	b.WriteString(formatGameState(info.GameState))
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Pairs: %d/%d | Moves: %d\n\n", state.MatchedPairs, state.TotalPairs, state.Moves)

	for i, card := range state.Cards {
		switch {
		case card.IsMatched:
			fmt.Fprintf(&result, "<%2d:%-5s>", card.ID, symbolLabel(card.Symbol))
		case card.IsFlipped:
			fmt.Fprintf(&result, "[%2d:%-5s]", card.ID, symbolLabel(card.Symbol))
		default:
			fmt.Fprintf(&result, "[%2d:%-5s]", card.ID, "??")
		}
		if (i+1)%cardsPerRow == 0 {
			result.WriteString("\n")
		} else {
			result.WriteString(" ")
		}
	}
	if len(state.Cards)%cardsPerRow != 0 {
		result.WriteString("\n")
	}

	if state.GameCompleted {
		fmt.Fprintf(&result, "\nAll pairs found in %d moves!", state.Moves)
	}

	return result.String()
}

// symbolLabel shortens image paths to their file name.
func symbolLabel(symbol string) string {
	base := path.Base(symbol)
	return strings.TrimSuffix(base, path.Ext(base))
}

func formatFlipResult(cardID int, result *service.FlipResult) string {
	var b strings.Builder

	switch {
	case result.Completed():
		fmt.Fprintf(&b, "Match! Game complete in %d moves. Call save_score to record it.\n\n", *result.FinalMoves)
	case result.MatchFound:
		fmt.Fprintf(&b, "Match! Cards %v stay face up.\n\n", result.MatchedCardIDs)
	case result.NoMatch:
		fmt.Fprintf(&b, "No match. Call reset_flipped_cards with %v.\n\n", result.CardsToFlipBack)
	case result.GameState != nil && result.HasCard(cardID) && result.Cards[cardID].IsFlipped && len(result.FlippedCards) == 1 && result.FlippedCards[0] == cardID:
		fmt.Fprintf(&b, "Card %d shows %q. Flip a second card.\n\n", cardID, symbolLabel(result.Cards[cardID].Symbol))
	default:
		fmt.Fprintf(&b, "Card %d cannot be flipped; nothing changed.\n\n", cardID)
	}

	b.WriteString(formatGameState(result.GameState))
	return b.String()
}
