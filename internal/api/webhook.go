package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/fastprodman/ripbid/internal/services/credits"
	svclottery "github.com/fastprodman/ripbid/internal/services/lottery"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Checkout metadata kinds.
const (
	checkoutLottery  = "lottery"
	checkoutEntryFee = "entry_fee"
)

// StripeWebhookHandler handles POST /webhooks/stripe
//
// Only checkout.session.completed is acted on; other event types are
// acknowledged and ignored. Redeliveries are no-ops.
func (h *HandlerProvider) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "unreadable body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.opts.StripeSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		logging.From(r.Context()).Warn("stripe signature rejected", "error", err)
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid signature")

		return
	}

	log := logging.From(r.Context()).With("stripe_event", event.ID, "type", event.Type)

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		log.Debug("stripe event ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})

		return
	}

	var session stripe.CheckoutSession

	err = json.Unmarshal(event.Data.Raw, &session)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid checkout session")
		return
	}

	userID, err := uuid.Parse(session.Metadata["user_id"])
	if err != nil {
		log.Warn("checkout session without user", "session", session.ID)
		writeError(w, http.StatusBadRequest, CodeValidation, "metadata.user_id must be a uuid")

		return
	}

	switch kind := session.Metadata["kind"]; kind {
	case checkoutEntryFee:
		err = h.grantEntryFee(r, session, userID)
	case checkoutLottery, "":
		err = h.confirmLotteryEntry(r, session, userID)
	default:
		log.Warn("unknown checkout kind", "kind", kind, "session", session.ID)
		writeError(w, http.StatusBadRequest, CodeValidation, "unknown metadata.kind")

		return
	}

	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info("checkout session applied", "session", session.ID, "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HandlerProvider) confirmLotteryEntry(r *http.Request, session stripe.CheckoutSession, userID uuid.UUID) error {
	roundID, err := uuid.Parse(session.Metadata["round_id"])
	if err != nil {
		return errInvalidMetadata("round_id")
	}

	_, err = h.svc.Lottery.ConfirmPaidEntry(r.Context(), svclottery.CheckoutEntry{
		SessionID: session.ID,
		UserID:    userID,
		RoundID:   roundID,
		Rarity:    session.Metadata["selected_rarity"],
	})

	return err
}

func (h *HandlerProvider) grantEntryFee(r *http.Request, session stripe.CheckoutSession, userID uuid.UUID) error {
	ref := "entry_fee"
	if streamID := session.Metadata["stream_id"]; streamID != "" {
		ref += ":" + streamID
	}

	_, err := h.svc.Credits.Grant(r.Context(), credits.Grant{
		TransactionID: "checkout:" + session.ID,
		UserID:        userID,
		Amount:        h.opts.EntryFeeGrant,
		Reference:     ref,
	})
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		return nil
	}

	return err
}

func errInvalidMetadata(field string) error {
	return validate.Errorf("metadata."+field, "must be a uuid")
}
