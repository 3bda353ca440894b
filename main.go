package main

import (
	"context"
	"time"

	"github.com/cppla/noddit/config"
	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/routes"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(models.All()...)

	r := routes.SetupRouter(db)

	// Keep stored points in line with vote rows (best-effort)
	ctx, cancel := context.WithCancel(context.Background())
	services.StartScoreReconciler(ctx, services.NewVoteService(db), time.Duration(cfg.ReconcileIntervalSec)*time.Second)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, cancel, func() { _ = utils.Logger.Sync() }); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
