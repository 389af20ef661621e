// Package events carries game events out of the service layer.
//
// The service publishes an Event for every game started, card flipped,
// pair resolved and score saved. Publishers fan these out: the websocket
// hub pushes them to the browser tabs of the session, and NATSPublisher
// puts them on a NATS subject per event type ("memorymatch.game_completed",
// "memorymatch.score_saved", ...) for anything else that wants to listen.
package events
