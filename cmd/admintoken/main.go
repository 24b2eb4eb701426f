package main

//管理API用のJWTを発行する
//
//	ADMIN_JWT_SECRET=... go run ./cmd/admintoken -sub ops -ttl 1h

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/middleware"

	"github.com/joho/godotenv"
)

func main() {
	sub := flag.String("sub", "admin", "subject claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.AdminJWTSecret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_JWT_SECRET is not set")
		os.Exit(1)
	}
	if *ttl <= 0 {
		fmt.Fprintln(os.Stderr, "-ttl must be positive")
		os.Exit(1)
	}

	tok, err := middleware.IssueAdminToken(cfg.AdminJWTSecret, *sub, *ttl, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
