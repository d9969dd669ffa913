package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopics(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	roundID := uuid.New()

	topics, err := parseTopics("", userID)
	require.NoError(t, err)
	assert.Equal(t, []string{realtime.UserTopic(userID)}, topics)

	topics, err = parseTopics(" round:"+roundID.String()+", ,user:"+userID.String(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{realtime.UserTopic(userID), realtime.RoundTopic(roundID)}, topics)

	for _, raw := range []string{
		"user:" + uuid.NewString(),
		"round:42",
		"pack:" + roundID.String(),
		"round",
	} {
		_, err = parseTopics(raw, userID)
		require.ErrorIs(t, err, validate.ErrInvalid, raw)
	}

	many := make([]string, wsMaxTopics)
	for i := range many {
		many[i] = realtime.StreamTopic(uuid.New())
	}

	_, err = parseTopics(strings.Join(many, ","), userID)
	require.ErrorIs(t, err, validate.ErrInvalid)
}

func TestSubscribeHandler_PushesEvents(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(8)
	env := newTestEnv(t, Services{Events: hub})

	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	userID := uuid.New()
	roundID := uuid.New()

	q := url.Values{}
	q.Set("topics", realtime.RoundTopic(roundID))
	q.Set("access_token", env.token(t, userID, false))

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?"+q.Encode(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	resp.Body.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(t.Context(),
		realtime.NewEvent(realtime.RoundTopic(uuid.New()), realtime.EventBidding, nil),
		realtime.NewEvent(realtime.RoundTopic(roundID), realtime.EventBidding, map[string]string{"state": "open"}),
		realtime.NewEvent(realtime.UserTopic(userID), realtime.EventBalance, map[string]string{"balance": "5.00"}),
	)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first, second realtime.Event

	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, realtime.RoundTopic(roundID), first.Topic)
	assert.JSONEq(t, `{"state":"open"}`, string(first.Data))
	assert.Equal(t, realtime.UserTopic(userID), second.Topic)
	assert.Equal(t, realtime.EventBalance, second.Type)
}

func TestSubscribeHandler_Rejections(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Services{})

	rec := env.do(t, http.MethodGet, "/ws?topics=round:nope", env.token(t, uuid.New(), false), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "topics", decode(t, rec)["field"])

	rec = env.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	t.Parallel()

	withOrigin := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}

		return r
	}

	open := newUpgrader(nil)
	assert.True(t, open.CheckOrigin(withOrigin("https://anywhere.example")))

	strict := newUpgrader([]string{"https://ripbid.example"})
	assert.True(t, strict.CheckOrigin(withOrigin("https://RIPBID.example")))
	assert.True(t, strict.CheckOrigin(withOrigin("")))
	assert.False(t, strict.CheckOrigin(withOrigin("https://evil.example")))
}
