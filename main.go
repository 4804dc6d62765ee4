package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/calebds/userapi/api"
	"github.com/calebds/userapi/auth"
	"github.com/calebds/userapi/datastore"
	"github.com/calebds/userapi/migrations"
	rh "github.com/calebds/userapi/route-handlers"
)

const (
	defaultPort        = "8080"
	defaultDriver      = "postgres"
	defaultDatabaseURL = "user=postgres password=password dbname=userapi host=localhost port=5432 sslmode=disable"
	defaultSQLitePath  = "userapi.db"
	defaultTokenTTL    = 24 * time.Hour
	dbPingTimeout      = 5 * time.Second
	migrationTimeout   = 30 * time.Second
	shutdownTimeout    = 15 * time.Second
	dbMaxOpenConns     = 25
	dbMaxIdleConns     = 25
	dbConnMaxLifetime  = 5 * time.Minute
)

type config struct {
	port        string
	dbDriver    string
	databaseURL string
	sqlitePath  string
	jwtSecret   string
	tokenTTL    time.Duration
}

func main() {
	cfg := loadConfig()

	db, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	userStore := datastore.NewUserRepository(db)
	tokens := auth.NewTokenIssuer([]byte(cfg.jwtSecret), cfg.tokenTTL)

	userHandler := rh.NewUserHandler(userStore, tokens)

	router := api.SetupRoutes(userHandler, tokens)

	startServer(cfg.port, router)
}

func loadConfig() config {
	// A .env file is a convenience for local runs; absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = defaultDriver
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		dbURL = defaultDatabaseURL
		if driver == "postgres" {
			log.Println("WARNING: DB_CONNECTION_STRING not set, using default local connection string.")
		}
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = defaultSQLitePath
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Println("WARNING: JWT_SECRET not set. Tokens will be signed with an empty secret.")
	}

	tokenTTL := defaultTokenTTL
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid TOKEN_TTL %q: %v", raw, err)
		}
		tokenTTL = parsed
	}

	return config{
		port:        port,
		dbDriver:    driver,
		databaseURL: dbURL,
		sqlitePath:  sqlitePath,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
	}
}

func setupDatabase(cfg config) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch cfg.dbDriver {
	case "postgres":
		db, err = sql.Open("postgres", cfg.databaseURL)
	case "sqlite":
		db, err = sql.Open("sqlite", cfg.sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", cfg.dbDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close unusable connection pool
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = setupSchema(cfg.dbDriver, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("Database connection successful")
	return db, nil
}

// setupSchema runs the embedded goose migrations for postgres. The
// sqlite variant is dev-grade and bootstraps its DDL directly.
func setupSchema(driver string, db *sql.DB) error {
	if driver == "sqlite" {
		if _, err := db.Exec(datastore.SQLiteSchema); err != nil {
			return fmt.Errorf("failed to bootstrap sqlite schema: %w", err)
		}
		return nil
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
