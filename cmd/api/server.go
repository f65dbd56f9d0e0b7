package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardistry-catalog/pkg/container"
	"cardistry-catalog/pkg/logger"
)

// Serve runs the API until SIGINT or SIGTERM.
func Serve() error {
	// rootCtx carries the process lifetime: the live collection subscription
	// and every request (so open streams end on shutdown).
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// ========================================
	// 1. BUILD DI CONTAINER
	// ========================================
	appContainer, err := container.NewContainer(rootCtx)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer appContainer.Cleanup()

	if err := appContainer.Start(rootCtx); err != nil {
		// The first snapshot is loaded but won't refresh; /health reports it.
		logger.Warn("⚠️  live collection not running", err)
	}

	// ========================================
	// 2. SETUP ROUTER
	// ========================================
	router := SetupRouter(appContainer)

	// ========================================
	// 3. CONFIGURE HTTP SERVER
	// ========================================
	port := appContainer.Config.App.Port
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", port),
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		BaseContext:    func(net.Listener) context.Context { return rootCtx },
	}

	// ========================================
	// 4. START SERVER (NON-BLOCKING)
	// ========================================
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 server starting", map[string]interface{}{
			"addr":   "http://localhost:" + port,
			"health": "http://localhost:" + port + "/api/v1/health",
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ========================================
	// 5. GRACEFUL SHUTDOWN
	// ========================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err, ok := <-serveErr:
		if ok {
			stop()
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	logger.Info("🛑 shutting down server", nil)
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("⚠️  server forced to shutdown", err)
	}

	logger.Info("✅ server exited gracefully", nil)
	return nil
}
