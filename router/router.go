package router

import (
	"net/http"

	"hebedit/config"
	editorHandler "hebedit/internal/editor"
	"hebedit/middleware"
	"hebedit/socket"
	"hebedit/web"
)

func Setup(cfg *config.Config, hub *socket.Hub) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.Auth(cfg.JWTSecret)

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(middleware.UserIDKey).(string)
		socket.ServeWs(hub, w, r, userID)
	})
	mux.Handle("/ws", auth(wsHandler))

	// REST API
	h := editorHandler.NewEditorHandler(hub)

	mux.Handle("/api/editor/record", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			h.DeleteRecord(w, r)
			return
		}
		h.GetRecord(w, r)
	})))
	mux.Handle("/api/editor/download", auth(http.HandlerFunc(h.Download)))
	mux.Handle("/api/editor/upload", auth(http.HandlerFunc(h.Upload)))

	// Page
	mux.Handle("/", web.Handler())

	return middleware.CORSMiddleware(cfg.AllowedOrigins)(mux)
}
