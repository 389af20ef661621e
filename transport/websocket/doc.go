// Package websocket pushes game events to browsers over WebSocket.
//
// A central Hub owns every connection and groups them by session key. The hub
// implements events.Publisher, so the game service publishes to it like any
// other sink: each event is encoded once and queued to every client of the
// session it belongs to. Clients only listen; anything they send is read and
// discarded so pings and close frames keep working.
//
// Usage:
//
//	hub := websocket.NewHub(logger.Get())
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, configs, scores,
//		service.WithPublisher(hub))
//
//	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, sessionKey, nil)
//	})
//
// All hub state is touched only by the Run goroutine. A client whose send
// buffer is full is dropped rather than allowed to stall the others.
package websocket
