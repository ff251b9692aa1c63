// Package main runs the GophBank interactive client.
package main

import (
	"cmp"
	"context"
	"crypto/cipher"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/app"
	"github.com/atinyakov/GophBank/internal/client/session"
	"github.com/atinyakov/GophBank/internal/client/shell"
	"github.com/atinyakov/GophBank/internal/config"
	"github.com/atinyakov/GophBank/internal/logger"
)

var (
	version   string
	buildDate string
)

// main loads the configuration, restores the stored session and runs the shell.
func main() {
	options, err := config.LoadClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if options.Version {
		fmt.Printf("GophBank Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel, options.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}

	hc, err := api.NewHTTPClient(options.CAFile, options.Timeout)
	if err != nil {
		log.Log.Fatal("failed to build http client", zap.Error(err))
	}

	var aead cipher.AEAD
	if options.TokenSecret != "" {
		if aead, err = session.NewAEAD(options.TokenSecret); err != nil {
			log.Log.Fatal("failed to init token encryption", zap.Error(err))
		}
	}
	store := session.NewFileStore(options.TokenFile, aead)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompt := shell.NewPrompter(os.Stdin, os.Stdout)
	renderer := shell.NewTextRenderer(os.Stdout, prompt)
	client := api.New(options.URL, hc, api.WithLogger(log.Log.Named("api")))
	a := app.New(client, store, renderer, log.Log)

	log.Log.Info("client started", zap.String("url", options.URL))
	if err := a.Start(ctx); err != nil {
		log.Log.Error("start failed", zap.Error(err))
	}
	fmt.Println("Type 'help' for a list of commands.")
	shell.New(a, prompt, renderer, os.Stdout).Run(ctx)
}
