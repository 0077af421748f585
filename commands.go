package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/urfave/cli/v2"

	"ms-events/internal/config"
	"ms-events/internal/events/agenda"
	"ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	"ms-events/internal/events/ical"
	"ms-events/internal/events/qr"
	"ms-events/internal/jobs"
	"ms-events/internal/logger"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			log.Info("APP", "Starting event service initialization")

			deps, err := wire(c.Context, cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			handler := event_api.NewHandler(
				deps.Service,
				qr.NewGenerator(cfg.Server.PublicBaseURL),
				ical.Feed{Name: "Events", BaseURL: cfg.Server.PublicBaseURL},
				log,
			)
			handler.Ping = deps.Ping

			log.Info("HTTP", "Setting up router and middleware")
			r := chi.NewRouter()
			r.Use(middleware.RequestID)
			r.Use(middleware.Recoverer)
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
			r.Use(event_api.RequestLogger(log))
			handler.RegisterRoutes(r)
			log.Info("ROUTER", "Event routes registered under /events, /weather and /health")

			scheduler := jobs.NewScheduler(deps.Service.Location, log)
			warmup := &jobs.HolidayWarmup{
				Source:  deps.Holidays,
				Country: cfg.External.HolidayCountry,
				Timeout: cfg.External.ClientTimeout,
				Logger:  log,
			}
			if err := scheduler.AddHolidayWarmup(cfg.External.HolidayWarmup, warmup); err != nil {
				return err
			}
			scheduler.Start()

			server := &http.Server{
				Addr:         cfg.Server.Port,
				Handler:      r,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			serveErr := make(chan error, 1)
			go func() {
				log.Info("HTTP", fmt.Sprintf("🚀 Event service running on %s", cfg.Server.Port))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serveErr <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			log.Info("APP", "Service started successfully, waiting for shutdown signal")

			select {
			case <-stop:
				log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
			case err := <-serveErr:
				log.Error("HTTP", fmt.Sprintf("HTTP server error: %v", err))
				return err
			}

			ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			scheduler.Stop(ctxShutdown)
			if err := server.Shutdown(ctxShutdown); err != nil {
				log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
				return err
			}
			log.Info("HTTP", "✅ Event service shutdown complete")
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the events table and its indexes.",
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			bunDB, err := openDB(cfg.Database, log)
			if err != nil {
				return err
			}
			defer bunDB.Close()

			if err := db.Migrate(c.Context, bunDB); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.LogDatabase("MIGRATE", "events", "schema is up to date")
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-ics",
		Usage: "Write every stored event as an iCalendar feed.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "-", Usage: "Output file, - for stdout."},
			&cli.StringFlag{Name: "name", Value: "Events", Usage: "Calendar name."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			bunDB, err := openDB(cfg.Database, log)
			if err != nil {
				return err
			}
			defer bunDB.Close()

			store := &db.DB{Bun: bunDB}
			events, err := store.All(c.Context)
			if err != nil {
				return fmt.Errorf("failed to read events: %w", err)
			}

			feed := ical.Feed{Name: c.String("name"), BaseURL: cfg.Server.PublicBaseURL}
			body, err := feed.Render(events, time.Now())
			if err != nil {
				return err
			}

			if out := c.String("out"); out != "-" {
				if err := os.WriteFile(out, []byte(body), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				log.Info("EXPORT", fmt.Sprintf("wrote %d events to %s", len(events), out))
				return nil
			}
			_, err = fmt.Fprint(c.App.Writer, body)
			return err
		},
	}
}

func agendaCommand() *cli.Command {
	return &cli.Command{
		Name:  "agenda",
		Usage: "Print stored events as a table in chronological order.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Only events on this YYYY-MM-DD date."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()
			log.SetLevel(logger.WARN)

			bunDB, err := openDB(cfg.Database, log)
			if err != nil {
				return err
			}
			defer bunDB.Close()

			events, err := (&db.DB{Bun: bunDB}).All(c.Context)
			if err != nil {
				return fmt.Errorf("failed to read events: %w", err)
			}
			if date := c.String("date"); date != "" {
				filtered := events[:0]
				for _, e := range events {
					if e.Date == date {
						filtered = append(filtered, e)
					}
				}
				events = filtered
			}

			_, err = fmt.Fprint(c.App.Writer, agenda.Table(events))
			return err
		},
	}
}
