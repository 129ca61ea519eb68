package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds server configuration. Environment variables (optionally
// from a .env file) provide defaults; command-line flags override them.
type Config struct {
	Addr           string
	ClientDir      string
	PublicURL      string
	DBPath         string
	AdminPassword  string
	JWTSecret      string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxConnsPerIP  int
}

// LoadConfig reads .env, the environment and then flags from args
func LoadConfig(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := Config{
		Addr:           getEnv("ADDR", ":8080"),
		ClientDir:      getEnv("CLIENT_DIR", ""),
		PublicURL:      getEnv("PUBLIC_URL", ""),
		DBPath:         getEnv("DB_PATH", ":memory:"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		ReadTimeout:    parseDuration(getEnv("READ_TIMEOUT", "15s"), 15*time.Second),
		WriteTimeout:   parseDuration(getEnv("WRITE_TIMEOUT", "15s"), 15*time.Second),
		MaxConnsPerIP:  parseInt(getEnv("MAX_CONNS_PER_IP", "5"), defaultMaxConnsPerIP),
	}

	fs := flag.NewFlagSet("paddle-arena", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.ClientDir, "client", cfg.ClientDir, "Path to client directory (default: ../client)")
	fs.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "URL players use to join (shown as QR code)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (:memory: keeps nothing across restarts)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
