package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/logging"
)

// Run serves HTTP and runs the background workers until ctx is cancelled
// or one of them fails.
func (a *app) Run(ctx context.Context) error {
	router := gin.New()
	router.Use(gin.Recovery())
	a.handler.Register(router)

	srv := &http.Server{
		Addr:         a.cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("Server started", logging.Fields{constants.LogFieldAddr: srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.watchdog.Run(ctx)
	})
	g.Go(func() error {
		_, err := a.driver.ResumeAll(ctx)
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		logging.Info("Shutting down server", nil)
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
