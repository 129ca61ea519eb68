package main

import (
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server bundles what the HTTP handlers need
type Server struct {
	hub       *Hub
	db        *DB
	auth      *Auth
	analytics *Analytics
	cfg       Config
}

// SetupRoutes configures HTTP routes
func SetupRoutes(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWS)
	r.Get("/qr.png", s.handleQR)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Logger)
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
		s.apiRoutes(api)
	})

	if s.cfg.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(s.cfg.ClientDir))
		r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			if req.URL.Path == "/" {
				http.ServeFile(w, req, filepath.Join(s.cfg.ClientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, req)
		}))
	}
	return r
}

// handleWS upgrades the connection and seats the player straight away
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !s.hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	s.hub.TrackConnect(ip)

	client := NewClient(s.hub, conn, ip, r.URL.Query().Get("enc") == "msgpack")
	s.hub.register <- client
	client.join()

	go client.WritePump()
	go client.ReadPump()
}

// handleQR renders the join URL as a QR code for phones around the table
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	target := s.joinURL(r)
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "qr encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (s *Server) joinURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

// defaultClientDir finds ../client next to the binary, falling back to the
// working directory during development
func defaultClientDir() string {
	exe, _ := os.Executable()
	dir := filepath.Join(filepath.Dir(exe), "..", "client")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dir = "../client"
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ""
	}
	return dir
}
