// Command diag dumps the contents of the active user store. It is the Go
// counterpart of ad-hoc database inspection scripts: point it at the same
// configuration as the server and it prints every user with message counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"whisperbox/config"
	"whisperbox/internal/domain/repository"
	"whisperbox/internal/infrastructure/filestore"
	pginfra "whisperbox/internal/infrastructure/postgres"
	"whisperbox/pkg/helpers"
)

func main() {
	verbose := flag.Bool("v", false, "print messages too")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-diag", cfg.Env)

	ctx := context.Background()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	users, err := store.ListAll(ctx)
	if err != nil {
		log.Fatalf("list users: %v", err)
	}

	fmt.Printf("%d user(s)\n", len(users))
	for _, u := range users {
		fmt.Printf("  %s  username=%s email=%s verified=%t accepting=%t messages=%d\n",
			u.ID, u.Username, u.Email, u.IsVerified, u.IsAcceptingMessages, len(u.Messages))
		if *verbose {
			for _, m := range u.Messages {
				fmt.Printf("    [%s] %s: %q\n", m.CreatedAt.Format("2006-01-02 15:04:05"), m.ID, m.Content)
			}
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserStore, error) {
	if cfg.StoreDriver == "postgres" {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err == nil {
			return pginfra.NewUserStore(pool), nil
		}
		logger.WithError(err).Warn("postgres unreachable, reading file store")
	}
	return filestore.Open(cfg.StoreFilePath, logger)
}
