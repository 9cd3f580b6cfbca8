// Command ledger_token mints a bearer token for local use against a ledger backend
// that shares the same JWT_SECRET and JWT_ISSUER.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/banking_ledger/internal/middleware"
	"github.com/SscSPs/banking_ledger/internal/platform/config"
	"github.com/SscSPs/banking_ledger/internal/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	userID := flag.String("user", "", "user id to place in the token subject")
	admin := flag.Bool("admin", false, "grant the admin role")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	role := ""
	if *admin {
		role = middleware.RoleAdmin
	}
	token, err := utils.GenerateJWT(*userID, role, cfg.JWTSecret, cfg.JWTIssuer, *ttl)
	if err != nil {
		logger.Error("Failed to mint token", slog.String("error", err.Error()))
		os.Exit(2)
	}
	fmt.Println(token)
}
