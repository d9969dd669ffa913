package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/services/bidding"
	"github.com/fastprodman/ripbid/internal/services/credits"
	svclottery "github.com/fastprodman/ripbid/internal/services/lottery"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	testSecret       = "test-secret"
	testIssuer       = "ripbid-test"
	testStripeSecret = "whsec_test"
)

// Stubs embed the service interfaces; calling a method a test did not
// override panics, which fails the test loudly.

type stubCredits struct {
	CreditService
	grant   func(credits.Grant) (int64, error)
	balance func(uuid.UUID) (int64, error)
}

func (s *stubCredits) Grant(_ context.Context, g credits.Grant) (int64, error) { return s.grant(g) }

func (s *stubCredits) Balance(_ context.Context, id uuid.UUID) (int64, error) { return s.balance(id) }

func (s *stubCredits) History(context.Context, uuid.UUID, int) ([]ledger.Record, error) {
	return nil, nil
}

type stubBids struct {
	BidService
	chase  func(bidding.BidRequest) (bidding.BidResult, error)
	single func(bidding.BidRequest) (bidding.BidResult, error)
}

func (s *stubBids) PlaceChaseBid(_ context.Context, req bidding.BidRequest) (bidding.BidResult, error) {
	return s.chase(req)
}

func (s *stubBids) PlaceSingleBid(_ context.Context, req bidding.BidRequest) (bidding.BidResult, error) {
	return s.single(req)
}

func (s *stubBids) SlotLeader(context.Context, uuid.UUID) (*auction.Bid, error) { return nil, nil }

type stubLottery struct {
	LotteryService
	enter   func(svclottery.EntryRequest) (svclottery.EntryResult, error)
	confirm func(svclottery.CheckoutEntry) (lottery.Entry, error)
}

func (s *stubLottery) Enter(_ context.Context, req svclottery.EntryRequest) (svclottery.EntryResult, error) {
	return s.enter(req)
}

func (s *stubLottery) ConfirmPaidEntry(_ context.Context, ce svclottery.CheckoutEntry) (lottery.Entry, error) {
	return s.confirm(ce)
}

type testEnv struct {
	auth    *Authenticator
	handler http.Handler
}

func newTestEnv(t *testing.T, svc Services) *testEnv {
	t.Helper()

	if svc.Events == nil {
		svc.Events = realtime.NewHub(8)
	}

	auth := NewAuthenticator(testSecret, testIssuer, "admin")

	return &testEnv{
		auth: auth,
		handler: NewRouter(svc, Options{
			Auth:          auth,
			StripeSecret:  testStripeSecret,
			EntryFeeGrant: 2500,
		}),
	}
}

func (e *testEnv) token(t *testing.T, userID uuid.UUID, admin bool) string {
	t.Helper()

	tok, err := e.auth.Sign(Principal{UserID: userID, Admin: admin}, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return out
}
