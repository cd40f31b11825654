package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"tsadaash/internal/config"
	"tsadaash/internal/serverapp"
	"tsadaash/internal/store"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string) error
}

var commands = []command{
	{"signup", "signup", cmdSignup},
	{"signin", "signin", cmdSignin},
	{"signout", "signout", cmdSignout},
	{"task", "task add|list|rm|schedule|ics [flags]", cmdTask},
	{"agenda", "agenda [--from 2026-01-05] [--to 2026-01-12 | --span P1W]", cmdAgenda},
	{"serve", "serve [--addr :8080]", cmdServe},
	{"backup", "backup [--out backups/tsadaash.tar.gz]", cmdBackup},
	{"restore", "restore --archive backups/tsadaash.tar.gz --target-dir data-restored", cmdRestore},
	{"drill", "drill [--work-dir /tmp]", cmdDrill},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	name := os.Args[1]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		err := c.run(context.Background(), os.Args[2:])
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", name, err)
			os.Exit(1)
		}
		return
	}
	printUsage()
	os.Exit(2)
}

func printUsage() {
	fmt.Println("usage:")
	for _, c := range commands {
		fmt.Println("  tsadaash " + c.usage)
	}
	fmt.Println()
	fmt.Println("Configuration is read from $TSADAASH_CONFIG (default tsadaash.yml)")
	fmt.Println("after loading .env; TSADAASH_* variables override the file.")
}

func configPath() string {
	if p := strings.TrimSpace(os.Getenv("TSADAASH_CONFIG")); p != "" {
		return p
	}
	return "tsadaash.yml"
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// env is everything a command needs once the database is open.
type env struct {
	cfg    *config.Config
	db     *store.DB
	app    *serverapp.App
	logger *log.Logger
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger := log.New(os.Stderr, "", 0)
	app, err := serverapp.New(serverapp.Options{Config: cfg, DB: db, Logger: logger})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &env{cfg: cfg, db: db, app: app, logger: logger}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}
