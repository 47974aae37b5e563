// Command quotectl runs maintenance tasks against the quotes database.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/diewo77/go-quotes/internal/config"
	"github.com/diewo77/go-quotes/internal/db"
	"github.com/diewo77/go-quotes/internal/export"
	"github.com/diewo77/go-quotes/internal/persistence"
	"github.com/diewo77/go-quotes/internal/services"
)

var slotFlag = &cli.StringFlag{
	Name:     "slot",
	Usage:    "document slot (the owning user id, e.g. local:1)",
	Required: true,
}

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("quotectl failed", "err", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "quotectl",
		Usage: "maintenance for stored quote documents",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "bring the database schema up to date",
				Action: func(c *cli.Context) error {
					cfg, conn, err := connect()
					if err != nil {
						return err
					}
					if err := db.Migrate(conn, cfg.Database, cfg.Database.Driver == "postgres"); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "migrations completed")
					return nil
				},
			},
			{
				Name:  "slots",
				Usage: "list stored document slots",
				Action: func(c *cli.Context) error {
					_, conn, err := connect()
					if err != nil {
						return err
					}
					slots, err := persistence.NewSQL(conn).Slots(c.Context)
					if err != nil {
						return err
					}
					for _, s := range slots {
						fmt.Fprintln(c.App.Writer, s)
					}
					return nil
				},
			},
			{
				Name:  "export-csv",
				Usage: "write a slot's quotes as CSV",
				Flags: []cli.Flag{
					slotFlag,
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
				},
				Action: func(c *cli.Context) error {
					wsp, err := openWorkspace(c.Context, c.String("slot"))
					if err != nil {
						return err
					}
					var w io.Writer = c.App.Writer
					if path := c.String("out"); path != "" {
						f, err := os.Create(path)
						if err != nil {
							return err
						}
						defer f.Close()
						w = f
					}
					return export.CSV(w, wsp.Snapshot())
				},
			},
			{
				Name:  "renumber",
				Usage: "recompute the next quote number from stored quotes",
				Flags: []cli.Flag{slotFlag},
				Action: func(c *cli.Context) error {
					wsp, err := openWorkspace(c.Context, c.String("slot"))
					if err != nil {
						return err
					}
					next, err := wsp.Renumber(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "next quote number counter: %d\n", next)
					return nil
				},
			},
			{
				Name:  "next-number",
				Usage: "print the number the next generated quote will get",
				Flags: []cli.Flag{slotFlag},
				Action: func(c *cli.Context) error {
					wsp, err := openWorkspace(c.Context, c.String("slot"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, wsp.NextNumber())
					return nil
				},
			},
		},
	}
}

func connect() (*config.Config, *gorm.DB, error) {
	cfg := config.Load()
	conn, err := db.Open(cfg.Database, cfg.App.Debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}

func openWorkspace(ctx context.Context, slot string) (*services.Workspace, error) {
	_, conn, err := connect()
	if err != nil {
		return nil, err
	}
	store := persistence.NewSQL(conn)
	return services.OpenWorkspace(ctx, slot, store.Gateway(slot), services.Options{})
}
