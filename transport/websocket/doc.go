// Package websocket pushes Sokoban session updates to browsers and accepts
// move commands over the same connection.
//
// A single Hub owns every connection. Clients join a session with the
// ?session= query parameter and receive a Message for each change to that
// session:
//
//	{"session_id":"a1b2","event":"state_update","game_state":{...}}
//	{"session_id":"a1b2","event":"level_complete","data":{"level_id":3,"moves":41}}
//
// Clients may send commands back:
//
//	{"action":"move","direction":"left"}
//	{"action":"reset"}
//	{"action":"load_level","level":4}
//
// Commands are passed to the CommandHandler installed with
// SetCommandHandler. Unparseable input is answered with an "error" event.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetCommandHandler(handle)
//	go hub.Run()
//	defer hub.Stop()
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
