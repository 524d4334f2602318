package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/service"
	"golang.org/x/term"
)

// issue-token signs a candidate token with the server's JWT settings, for local
// testing against a running server.
func main() {
	userID := flag.Int("user", 0, "Candidate user ID (required)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -user must be a positive ID")
		flag.Usage()
		os.Exit(2)
	}

	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTIssuer)
	token, err := authService.GenerateToken(*userID, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	// Print only the token when piped so it can be captured by scripts.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(token)
		return
	}
	fmt.Printf("Token for user %d (expires %s):\n\n%s\n", *userID, time.Now().Add(*ttl).Format(time.RFC3339), token)
}
