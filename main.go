package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.ClientDir == "" {
		cfg.ClientDir = defaultClientDir()
	}

	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db %s: %v", cfg.DBPath, err)
	}
	defer db.Close()

	analytics := NewAnalytics(db)
	auth := NewAuth(db, cfg.AdminPassword, cfg.JWTSecret)

	room := NewRoom(analytics)
	go room.Run()

	hub := NewHub(room, cfg.MaxConnsPerIP)
	go hub.Run()

	handler := SetupRoutes(&Server{
		hub:       hub,
		db:        db,
		auth:      auth,
		analytics: analytics,
		cfg:       cfg,
	})

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		printBanner(cfg)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	room.Stop()
	analytics.Stop()
}

func printBanner(cfg Config) {
	title := color.New(color.FgMagenta, color.Bold)
	link := color.New(color.FgCyan, color.Underline)

	title.Println("Paddle Arena server")
	url := cfg.PublicURL
	if url == "" {
		url = "http://localhost" + cfg.Addr
	}
	link.Printf("  join: %s\n", url)
	color.New(color.FgHiBlack).Printf("  qr:   %s/qr.png\n", trimSlash(url))
	if cfg.ClientDir != "" {
		log.Printf("Serving client files from %s", cfg.ClientDir)
	}
	if cfg.DBPath == ":memory:" {
		log.Printf("Round history kept in memory only")
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
