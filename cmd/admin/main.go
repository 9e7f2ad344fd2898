// Command learnhub-admin runs operator tasks against the LearnHub database.
// Database settings come from the same config file, environment and flags
// as the server.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/learnhub/internal/admincli"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/server"
	"github.com/dmitrijs2005/learnhub/internal/server/config"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, err := server.OpenDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	tx := dbx.NewSQLTransactor(db, nil)

	seed := func(ctx context.Context, s services.AdminSeed) (bool, error) {
		if err := rm.RunMigrations(ctx, db); err != nil {
			return false, err
		}
		return services.SeedAdmin(ctx, db, tx, rm, s, nil)
	}
	migrate := func(ctx context.Context) error {
		return rm.RunMigrations(ctx, db)
	}

	app := admincli.NewApp(os.Stdin, os.Stdout, cfg.AdminName, seed, migrate)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Printf("%v", err)
		db.Close()
		os.Exit(1)
	}

}
