// Package main starts the GophBank development server: an in-memory bank
// behind the same HTTP API the client talks to.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"fmt"
	"os"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/config"
	"github.com/atinyakov/GophBank/internal/logger"
	"github.com/atinyakov/GophBank/internal/server/handler/http"
	"github.com/atinyakov/GophBank/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, environment and file configuration.
	options, err := config.LoadServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))
	if options.Version {
		return
	}

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	bank := service.NewBank(0)
	if options.AdminPassword != "" {
		if err := bank.SeedAdmin(context.Background(), options.AdminUser, options.AdminPassword); err != nil {
			zapLogger.Fatal("failed to seed admin", zap.Error(err))
		}
		zapLogger.Info("seeded admin", zap.String("username", options.AdminUser))
	}

	userHandler := &http.UserHandler{Users: bank, Secret: []byte(options.JWTSecret), TTL: options.TokenTTL}
	accountHandler := &http.AccountHandler{Accounts: bank}
	loanHandler := &http.LoanHandler{Loans: bank}

	router := http.NewRouter(userHandler, accountHandler, loanHandler, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	if options.TLSCert != "" {
		cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if err != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
		if err := server.ListenAndServeTLS("", ""); err != nil {
			zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
		}
		return
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
