package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/SoloMen88/tenderServise/db"
	"github.com/SoloMen88/tenderServise/db/migrations"
	"github.com/SoloMen88/tenderServise/internal/config"
	"github.com/SoloMen88/tenderServise/internal/handlers"
	"github.com/SoloMen88/tenderServise/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	zapLog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Cannot init logger: %v", err)
	}
	defer zapLog.Sync()

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		zapLog.Fatal("cannot connect to DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := migrations.Up(dbConn.DB); err != nil {
		zapLog.Fatal("cannot run migrations", zap.Error(err))
	}

	store := db.NewStorage(dbConn)
	h := handlers.NewHandler(store, zapLog)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(zapLog))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		// тендеры
		r.Get("/tenders", h.GetTendersHandler)
		r.Post("/tenders/new", h.CreateTenderHandler)
		r.Get("/tenders/my", h.GetUserTendersHandler)
		r.Get("/tenders/{tenderId}/status", h.GetTenderStatusHandler)
		r.Put("/tenders/{tenderId}/status", h.UpdateTenderStatusHandler)
		r.Patch("/tenders/{tenderId}/edit", h.EditTenderHandler)
		r.Put("/tenders/{tenderId}/rollback/{version}", h.RollbackTenderHandler)
		// предложения (bids)
		r.Get("/bids", h.GetBidsHandler)
		r.Post("/bids/new", h.CreateBidHandler)
		r.Get("/bids/my", h.GetUserBidsHandler)
		r.Get("/bids/{tenderId}/list", h.GetBidsForTenderHandler)
		r.Get("/bids/{bidId}/status", h.GetBidStatusHandler)
		r.Put("/bids/{bidId}/status", h.UpdateBidStatusHandler)
		r.Patch("/bids/{bidId}/edit", h.EditBidHandler)
		r.Put("/bids/{bidId}/rollback/{version}", h.RollbackBidHandler)
		r.Put("/bids/{bidId}/submit-decision", h.SubmitBidDecisionHandler)
		r.Put("/bids/{bidId}/feedback", h.CreateBidFeedbackHandler)
		r.Get("/bids/{tenderId}/reviews", h.GetBidReviewsHandler)
	})

	zapLog.Info("starting server", zap.String("addr", cfg.ServerAddress))
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		zapLog.Fatal("server stopped", zap.Error(err))
	}
}
