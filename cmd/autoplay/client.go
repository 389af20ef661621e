package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
)

// Client talks to the game server's HTTP API as a logged in player.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges credentials for a bearer token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("login: no token in response")
	}
	c.token = resp.Token
	return nil
}

func (c *Client) NewGame(ctx context.Context, config string) (*service.GameInfo, error) {
	var info service.GameInfo
	if err := c.do(ctx, http.MethodPost, "/new_game", map[string]string{"config": config}, &info); err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	if info.GameState == nil {
		return nil, fmt.Errorf("new game: no game state in response")
	}
	return &info, nil
}

func (c *Client) Flip(ctx context.Context, cardID int) (*service.FlipResult, error) {
	result := service.FlipResult{GameState: &engine.GameState{}}
	if err := c.do(ctx, http.MethodPost, "/flip_card", map[string]int{"card_id": cardID}, &result); err != nil {
		return nil, fmt.Errorf("flip card %d: %w", cardID, err)
	}
	return &result, nil
}

func (c *Client) ResetFlipped(ctx context.Context, cardIDs []int) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodPost, "/reset_flipped_cards", map[string][]int{"card_ids": cardIDs}, &state); err != nil {
		return nil, fmt.Errorf("reset flipped cards: %w", err)
	}
	return &state, nil
}

func (c *Client) SaveScore(ctx context.Context, moves, seconds int) (*service.ScoreResult, error) {
	var result service.ScoreResult
	body := map[string]int{"moves": moves, "seconds": seconds}
	if err := c.do(ctx, http.MethodPost, "/save_score", body, &result); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
