package http

import (
	"net/http"

	wsDelivery "studychat/internal/delivery/websocket"
	"studychat/internal/metrics"

	"github.com/go-chi/chi/v5"
)

func MapHttpRoutes(r *chi.Mux, httpHandler *HttpHandler, websocketHandler *wsDelivery.WebsocketHandler, authMiddleware *AuthMiddleware) {
	r.Handle("/ws", http.HandlerFunc(websocketHandler.HandleWebSocket))
	r.Handle("/metrics", metrics.Handler())

	// Protected routes
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/user/{userId}", func(r chi.Router) {
			r.Get("/unread", http.HandlerFunc(httpHandler.GetUnread))
			r.Get("/unread/total", http.HandlerFunc(httpHandler.GetUnreadTotal))
		})

		r.Route("/conversation/{conversationId}", func(r chi.Router) {
			r.Post("/read", http.HandlerFunc(httpHandler.ClearUnread))
			r.Get("/messages", http.HandlerFunc(httpHandler.GetMessages))
		})

		r.Route("/group", func(r chi.Router) {
			r.Post("/", http.HandlerFunc(httpHandler.CreateGroup))
			r.Post("/{conversationId}/members", http.HandlerFunc(httpHandler.AddGroupMember))
			r.Delete("/{conversationId}/members/{userId}", http.HandlerFunc(httpHandler.RemoveGroupMember))
		})
	})
}
