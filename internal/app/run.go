package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("source-mode", a.cfg.SourceMode),
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Duration("scan-interval", a.cfg.ScanInterval),
		zap.String("log-level", a.cfg.LogLevel))

	// Start all components
	err := a.startComponents()
	if err != nil {
		return err
	}

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("fleet-url", a.cfg.FleetBaseURL))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)
	a.healthChecker.SetReady("http", true)

	// Connect the streaming feed before the first scan needs it
	if a.feed != nil {
		err := a.feed.Start()
		if err != nil {
			return fmt.Errorf("start source feed: %w", err)
		}
		a.healthChecker.SetReady("feed", true)
	}

	// Start dispatcher before the scanner so no commit event is dropped
	err := a.dispatcher.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}

	// Start scanner
	a.wg.Add(1)
	go a.runScanner()
	a.healthChecker.SetReady("scanner", true)

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runScanner() {
	defer a.wg.Done()
	err := a.scanner.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("scanner-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
