// Package api provides the HTTP handlers of the memory match game.
//
// Endpoints:
//
// Game Operations (login required):
//   - POST /new_game - Deal a new game, optionally {"config": "letters"}
//   - GET /game - Current game of the session
//   - POST /flip_card - Flip {"card_id": n} (JSON or form)
//   - POST /reset_flipped_cards - Turn {"card_ids": [...]} face down
//   - GET /preload_images - Image paths of a deck theme
//   - POST /save_score - Score {"moves", "seconds"} and keep the high score
//   - GET /ws - Stream of game events for the session
//
// Accounts:
//   - POST /signup, /verify, /verify/resend, /login
//   - POST /logout, GET /me (login required)
//   - GET /leaderboard?limit=N
//
// Operations:
//   - GET /configs - Deck themes
//   - GET /healthz
//   - GET /metrics (when a metrics collector is configured)
//
// Authentication:
//
// /login returns a signed token and also sets it as the "session" cookie.
// Either the cookie or an "Authorization: Bearer <token>" header is accepted.
// The token carries a session id that scopes every game operation, so two
// logins of the same user play separate games.
//
// Flip responses are the game state with the flip result merged in:
//
//	{
//	  "cards": [...], "moves": 3, "matched_pairs": 1, ...,
//	  "no_match": true,
//	  "cards_to_flip_back": [4, 9]
//	}
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "No active game"}
package api
