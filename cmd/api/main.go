package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/config"
	"github.com/hondana/hondana/pkg/database"
	"github.com/hondana/hondana/pkg/jobs"
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/hondana/hondana/pkg/metadata/googlebooks"
	"github.com/hondana/hondana/pkg/metadata/llm"
	"github.com/hondana/hondana/pkg/migrations"
	"github.com/hondana/hondana/pkg/server"
	"github.com/hondana/hondana/pkg/version"
	"github.com/hondana/hondana/pkg/worker"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting hondana", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	provider := metadata.NewProvider(googlebooks.New(cfg), llm.New(cfg))

	wrkr, err := worker.New(cfg, jobs.NewService(db), books.NewService(db), provider)
	if err != nil {
		log.Err(err).Fatal("worker error")
	}

	srv, err := server.New(cfg, db)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"port": listener.Addr().(*net.TCPAddr).Port})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
