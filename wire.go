package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	goredis "github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/config"
	"ms-events/internal/events/db"
	"ms-events/internal/events/service"
	"ms-events/internal/external/geo"
	"ms-events/internal/external/holiday"
	"ms-events/internal/external/weather"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/redis"
)

type dependencies struct {
	Service  *service.EventService
	Holidays *holiday.Client
	closers  []func() error
	ping     []func(ctx context.Context) error
}

// Ping checks the database and, when enabled, Redis.
func (d *dependencies) Ping(ctx context.Context) error {
	for _, p := range d.ping {
		if err := p(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.NewLogger(cfg.Log.Dir, cfg.Log.Service)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

func openDB(cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		// a single writer keeps SQLite from reporting SQLITE_BUSY
		sqldb.SetMaxOpenConns(1)
		log.Info("DATABASE", "✅ SQLite database opened")
		return bun.NewDB(sqldb, sqlitedialect.New()), nil

	case "postgres":
		var sqldb *sql.DB
		var err error
		maxRetries := 5

		for i := 0; i < maxRetries; i++ {
			log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
			sqldb, err = sql.Open("postgres", cfg.PostgresDSN)
			if err == nil {
				err = sqldb.Ping()
			}
			if err == nil {
				break
			}
			log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
			if i < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", maxRetries, err)
		}

		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
		log.Info("DATABASE", "✅ PostgreSQL connection successful")
		return bun.NewDB(sqldb, pgdialect.New()), nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q, use sqlite or postgres", cfg.Driver)
	}
}

// wire builds the event service and its optional collaborators from cfg.
func wire(ctx context.Context, cfg *config.Config, log *logger.Logger) (*dependencies, error) {
	deps := &dependencies{}

	bunDB, err := openDB(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, bunDB.Close)
	deps.ping = append(deps.ping, bunDB.PingContext)

	if err := db.Migrate(ctx, bunDB); err != nil {
		deps.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	svc := service.NewEventService(&db.DB{Bun: bunDB}, log)
	svc.Country = cfg.External.HolidayCountry

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Server.Timezone, err)
	}
	svc.Location = loc

	var holidayCache holiday.Cache
	if cfg.Redis.Enabled {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			deps.Close()
			return nil, fmt.Errorf("redis connection error: %w", err)
		}
		log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))
		deps.closers = append(deps.closers, redisClient.Close)
		deps.ping = append(deps.ping, func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })

		svc.Locks = redis.NewDateLock(redisClient, cfg.Redis.DateLockTTL, log)
		holidayCache = redis.NewJSONCache(redisClient, "holidays:", cfg.Redis.HolidayCacheTTL)
	} else {
		log.Info("REDIS", "Redis disabled, using in-process date locks")
	}

	if cfg.Kafka.Enabled {
		topics := kafka.Topics(cfg.Kafka.TopicPrefix).All()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, log)
		deps.closers = append(deps.closers, producer.Close)
		svc.Publisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	} else {
		log.Info("KAFKA", "Kafka disabled, lifecycle messages are not published")
	}

	client := &http.Client{Timeout: cfg.External.ClientTimeout}
	deps.Holidays = holiday.NewClient(cfg.External.HolidayAPIURL, client, holidayCache, log)
	svc.Holidays = deps.Holidays
	svc.Weather = weather.NewClient(cfg.External.WeatherAPIURL, client, log)

	geocoder, err := geo.LoadFile(cfg.External.GeoCSVPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn("GEO", fmt.Sprintf("%s not found, event forecasts are disabled", cfg.External.GeoCSVPath))
	case err != nil:
		deps.Close()
		return nil, fmt.Errorf("failed to load geocoding data: %w", err)
	default:
		svc.Geo = geocoder
		log.Info("GEO", fmt.Sprintf("Loaded %d suburbs", geocoder.Len()))
	}

	cities, err := config.LoadCities(cfg.External.CitiesFile)
	if err != nil {
		deps.Close()
		return nil, err
	}
	svc.Cities = cities

	deps.Service = svc
	return deps, nil
}
