package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mbolis/uss/app"
	"github.com/mbolis/uss/config"
	"github.com/mbolis/uss/database"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/jobs"
	"github.com/mbolis/uss/log"
	"github.com/mbolis/uss/model"
	"github.com/mbolis/uss/routes"
	"github.com/mbolis/uss/session"
)

func main() {
	fmt.Printf("%s\n", color.New(color.FgHiCyan).Add(color.Bold).Sprint("uss - user survey system"))
	color.HiBlack("========================================\n")

	err := config.LoadDotEnv()
	if err != nil {
		log.Fatal("main.dotenv:", err)
	}
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		log.UseJSON()
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	err = ensureAdmin(context.Background(), db, cfg)
	if err != nil {
		log.Fatal("main.admin:", err)
	}

	store, err := sessionStore(cfg)
	if err != nil {
		log.Fatal("main.sessions:", err)
	}
	sessions := session.NewManager(store, cfg.SessionSecret, cfg.SessionTTL)

	scheduler, err := jobs.Start(db)
	if err != nil {
		log.Fatal("main.jobs:", err)
	}
	defer scheduler.Stop()

	handler := routes.Wire(app.New(db, sessions, cfg))

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func sessionStore(cfg config.Config) (session.Store, error) {
	if cfg.RedisUrl == "" {
		log.Info("Sessions kept in memory")
		return session.NewMemoryStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("Sessions kept in Redis")
	return session.NewRedisStore(ctx, cfg.RedisUrl)
}

// ensureAdmin creates the configured administrator, or grants staff rights to an
// existing account with that name.
func ensureAdmin(ctx context.Context, users database.Users, cfg config.Config) error {
	if cfg.AdminUsername == "" {
		return nil
	}

	_, err := users.GetUserByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		log.Warnf("Account %q already exists: granting staff rights, password left unchanged", cfg.AdminUsername)
		return users.SetStaff(ctx, cfg.AdminUsername, true)
	}
	if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	hash, err := httpx.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	err = users.CreateUser(ctx, &model.User{
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		IsStaff:      true,
	})
	if err != nil {
		return err
	}
	log.WithField("username", cfg.AdminUsername).Info("Administrator account created")
	return nil
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("main.server.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
