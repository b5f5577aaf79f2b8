// Package websocket pushes live game state to browser and agent watchers.
//
// A Hub groups connections by session id. The REST layer calls
// BroadcastToSession after every state change and BroadcastEvent for
// out-of-band notices such as a finished solve. Broadcasts are queued and
// never block the caller; a client whose send buffer is full is dropped.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//
//	{"session_id": "a1b2", "event": "state_update", "game_state": {...}}
//
// Incoming messages are read only to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithAllowedOrigins("https://maze.example"))
//	go hub.Run()
//	defer hub.Stop()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
