package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(svc Services, opts Options) http.Handler {
	h := NewHandler(svc, opts)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhooks/stripe", h.StripeWebhookHandler)

	r.Group(func(r chi.Router) {
		r.Use(opts.Auth.RequireUser)

		r.Get("/ws", h.SubscribeHandler)

		r.Get("/me/balance", h.GetBalanceHandler)
		r.Get("/me/ledger", h.GetLedgerHandler)

		r.Get("/streams/current", h.GetCurrentStreamHandler)
		r.Get("/streams/{streamId}/overview", h.GetOverviewHandler)
		r.Get("/streams/{streamId}/rounds", h.ListRoundsHandler)
		r.Get("/streams/{streamId}/singles", h.ListSinglesHandler)

		r.Get("/rounds/{roundId}/slots", h.ListSlotsHandler)
		r.Get("/rounds/{roundId}/pulls", h.ListPullsHandler)
		r.Get("/rounds/{roundId}/lottery", h.GetLotteryHandler)
		r.Post("/rounds/{roundId}/lottery/entries", h.EnterLotteryHandler)

		r.Get("/slots/{slotId}/leader", h.GetSlotLeaderHandler)
		r.Post("/slots/{slotId}/bids", h.PlaceChaseBidHandler)

		r.Get("/singles/{singleId}/leader", h.GetSingleLeaderHandler)
		r.Post("/singles/{singleId}/bids", h.PlaceSingleBidHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Get("/streams", h.ListStreamsHandler)
			r.Post("/streams", h.CreateStreamHandler)
			r.Post("/streams/{streamId}/start", h.StartStreamHandler)
			r.Post("/streams/{streamId}/end", h.EndStreamHandler)
			r.Post("/streams/{streamId}/current", h.SetCurrentStreamHandler)
			r.Post("/streams/{streamId}/rounds", h.CreateRoundHandler)
			r.Post("/streams/{streamId}/singles", h.CreateSingleHandler)
			r.Post("/streams/{streamId}/singles/generate", h.GenerateSinglesHandler)
			r.Post("/streams/{streamId}/singles/close", h.CloseSinglesHandler)

			r.Post("/rounds/{roundId}/bidding/open", h.OpenBiddingHandler)
			r.Post("/rounds/{roundId}/bidding/close", h.CloseBiddingHandler)
			r.Post("/rounds/{roundId}/bidding/extend", h.ExtendBiddingHandler)
			r.Post("/rounds/{roundId}/slots", h.CreateSlotHandler)
			r.Post("/rounds/{roundId}/slots/generate", h.GenerateSlotsHandler)
			r.Post("/rounds/{roundId}/pulls", h.RecordPullHandler)
			r.Post("/rounds/{roundId}/packs/{packNumber}/settle", h.SettlePackHandler)
			r.Post("/rounds/{roundId}/conclude", h.ConcludeRoundHandler)

			r.Post("/singles/{singleId}/cancel", h.CancelSingleHandler)

			r.Post("/users/{userId}/credits", h.GrantCreditsHandler)

			r.Get("/cards", h.SearchCardsHandler)
			r.Put("/cards", h.UpsertCardHandler)
		})
	})

	return r
}
