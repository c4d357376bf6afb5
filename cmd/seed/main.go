package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"natours/internal/core/config"
	"natours/internal/core/database"
	"natours/internal/core/logger"
	"natours/internal/repo"
	"natours/internal/seed"
	"natours/internal/service"
)

func main() {
	_ = godotenv.Load()
	log, cleanup := logger.New("info", false)
	defer cleanup()

	app := &cli.App{
		Name:  "seed",
		Usage: "import or delete natours dev data",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, EnvVars: []string{"CONFIG_PATH"}, Usage: "config file"},
		},
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "load users.json, tours.json and reviews.json from --dir",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: "./dev-data", Usage: "directory with the JSON files"},
				},
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					if err := database.Migrate(db); err != nil {
						return err
					}
					data, err := seed.Load(c.String("dir"))
					if err != nil {
						return err
					}
					if err := seed.Import(c.Context, db, data, log); err != nil {
						return err
					}

					// 导入的评价不经过钩子，这里统一重算
					users, err := repo.NewUserRepo(db)
					if err != nil {
						return err
					}
					tours, err := repo.NewTourRepo(db, users)
					if err != nil {
						return err
					}
					reviews, err := repo.NewReviewRepo(db)
					if err != nil {
						return err
					}
					rs := &service.ReviewService{Reviews: reviews, Tours: tours, Log: log}
					return rs.ReconcileAll(c.Context)
				},
			},
			{
				Name:  "delete",
				Usage: "delete every booking, review, tour and user",
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					return seed.Delete(c.Context, db, log)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("seed failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}

func openDB(c *cli.Context) (*gorm.DB, error) {
	cfg := config.Load(c.String("config"))
	return database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       4,
		MaxIdleConns:       2,
		ConnMaxLifetimeMin: 5,
		LogLevel:           "error",
	})
}
