// Package server provides HTTP server initialization and lifecycle management
// for the EchoVoice API and its WebSocket event stream.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/echovoice/echovoice/internal/assist"
	"github.com/echovoice/echovoice/internal/config"
	"github.com/echovoice/echovoice/internal/escalate"
	"github.com/echovoice/echovoice/pkg/types"
)

// Start initializes and starts the HTTP server and wires assistant events
// into the WebSocket hub. It returns the actual address being listened on
// (useful for testing with port 0) and the hub.
func Start(ctx context.Context, cfg *config.Config, assistant *assist.Assistant) (string, *WebSocketHub, error) {
	wsHub := NewWebSocketHub(cfg.Server.Port)
	go wsHub.Run()

	assistant.SetOnSuggestions(func(suggestions []types.Suggestion, source string) {
		wsHub.Broadcast(suggestionsMessage{
			Type:        "suggestions.updated",
			Suggestions: suggestions,
			Source:      source,
		})
	})
	assistant.SetOnEmergency(func(stage string, event types.EmergencyEvent) {
		wsHub.Broadcast(emergencyMessage{
			Type:  "emergency." + stage,
			Stage: stage,
			Event: event,
		})
	})
	assistant.SetOnDispatch(func(result escalate.DispatchResult) {
		wsHub.Broadcast(dispatchMessage{
			Type:   "emergency.result",
			Result: dispatchView(result),
		})
	})

	handler := buildHandler(cfg, assistant, wsHub)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		wsHub.Stop()
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	log.Printf("server listening on %s (security=%s)", actualAddr, cfg.Security.SecurityMode)
	return actualAddr, wsHub, nil
}

// buildHandler assembles the route table and middleware chain.
func buildHandler(cfg *config.Config, assistant *assist.Assistant, wsHub *WebSocketHub) http.Handler {
	api := NewHandlers(assistant)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/health", api.GetHealth)
	apiMux.HandleFunc("GET /api/context", api.GetContext)
	apiMux.HandleFunc("POST /api/context/person", api.PostPerson)
	apiMux.HandleFunc("POST /api/context/location", api.PostLocation)
	apiMux.HandleFunc("POST /api/context/tone", api.PostTone)
	apiMux.HandleFunc("GET /api/suggestions", api.GetSuggestions)
	apiMux.HandleFunc("POST /api/suggestions/refresh", api.RefreshSuggestions)
	apiMux.HandleFunc("POST /api/speak", api.PostSpeak)
	apiMux.HandleFunc("GET /api/emergency", api.GetEmergency)
	apiMux.HandleFunc("POST /api/emergency/press", api.PostEmergencyPress)
	apiMux.HandleFunc("POST /api/emergency/release", api.PostEmergencyRelease)
	apiMux.HandleFunc("POST /api/emergency/cancel", api.PostEmergencyCancel)
	apiMux.HandleFunc("POST /api/emergency/confirm", api.PostEmergencyConfirm)
	apiMux.HandleFunc("GET /api/history", api.GetHistory)

	mux := http.NewServeMux()
	mux.Handle("/api/", requireAuth(apiMux, cfg))
	mux.Handle("/ws", wsHub)

	rateLimiter := NewRateLimiter(10.0, 20)
	handler := rateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)
	return handler
}
