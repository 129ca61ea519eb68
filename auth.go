package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 12 * time.Hour
	adminSubject     = "admin"
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

// Auth guards the admin API: a bcrypt-hashed operator password is traded
// for a short-lived HS256 token.
type Auth struct {
	jwtSecret []byte
	passHash  []byte // nil disables admin login

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler. An empty password disables login;
// an empty secret is loaded from (or generated into) the settings table.
func NewAuth(db *DB, adminPassword, secret string) *Auth {
	a := &Auth{rateMap: make(map[string]*rateEntry)}
	if secret != "" {
		a.jwtSecret = []byte(secret)
	} else {
		a.jwtSecret = loadOrCreateSecret(db)
	}
	if adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("auth: could not hash admin password: %v", err)
		} else {
			a.passHash = hash
		}
	}
	return a
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// Enabled reports whether an admin password is configured
func (a *Auth) Enabled() bool {
	return a.passHash != nil
}

// Login checks the admin password and returns a JWT
func (a *Auth) Login(password, ip string) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("admin login disabled")
	}
	if !a.checkRate(ip) {
		return "", fmt.Errorf("too many login attempts, try again later")
	}
	if err := bcrypt.CompareHashAndPassword(a.passHash, []byte(password)); err != nil {
		return "", fmt.Errorf("invalid password")
	}
	token, err := a.generateToken()
	if err != nil {
		return "", fmt.Errorf("internal error")
	}
	return token, nil
}

// ValidateToken validates an admin JWT
func (a *Auth) ValidateToken(tokenStr string) error {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid token")
	}
	if sub, _ := claims["sub"].(string); sub != adminSubject {
		return fmt.Errorf("invalid token claims")
	}
	return nil
}

// bearerToken extracts the token from an Authorization header
func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func (a *Auth) generateToken() (string, error) {
	claims := jwt.MapClaims{
		"sub": adminSubject,
		"exp": time.Now().Add(jwtExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
