// Package main mints a PASETO bearer token for local development.
//
// The key is read from AUTH_TOKEN_KEY or DATA_PATH/auth.key, the same
// sources the server uses, so tokens are accepted by a server sharing
// that configuration.
//
// Usage:
//
//	go run ./cmd/token -id user-1 -name "Ada Lovelace" -email ada@example.com
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/wellspringapp/wellspring-server/internal/auth"
	"github.com/wellspringapp/wellspring-server/internal/domain"
)

var (
	identityID = flag.String("id", "", "Identity ID (required)")
	name       = flag.String("name", "", "Display name, used to derive the username")
	email      = flag.String("email", "", "Email address")
	ttl        = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
)

func main() {
	flag.Parse()

	if *identityID == "" {
		log.Fatal("-id is required")
	}

	key, err := loadKey()
	if err != nil {
		log.Fatalf("Failed to load auth key: %v", err)
	}

	tokens, err := auth.NewTokenService(key)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	token, err := tokens.IssueToken(domain.Identity{
		ID:    *identityID,
		Name:  *name,
		Email: *email,
	}, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println(token)
}

func loadKey() ([]byte, error) {
	if keyHex := os.Getenv("AUTH_TOKEN_KEY"); keyHex != "" {
		return auth.ParseKey(keyHex)
	}

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dataPath = filepath.Join(home, "Wellspring", "data")
	}
	return auth.LoadOrGenerateKey(dataPath)
}
