package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventBalance        = "balance.updated"
	EventOutbid         = "bid.outbid"
	EventSlotLeader     = "slot.leader"
	EventSlotSettled    = "slot.settled"
	EventSingleLeader   = "single.leader"
	EventSinglesClosed  = "singles.closed"
	EventLotteryEntries = "lottery.entries"
	EventPullRecorded   = "pull.recorded"
	EventPackSettled    = "pack.settled"
	EventBidding        = "round.bidding"
	EventStreamStatus   = "stream.status"
	EventRoundConcluded = "round.concluded"
	EventRefund         = "credit.refunded"
	EventWon            = "prize.won"
)

// Event is one push notification. Data is pre-encoded so events can cross
// process boundaries unchanged.
type Event struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	At    time.Time       `json:"at"`
}

func NewEvent(topic, typ string, data any) Event {
	ev := Event{Topic: topic, Type: typ, At: time.Now().UTC()}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			slog.Error("encode event payload", "type", typ, "error", err)
		} else {
			ev.Data = raw
		}
	}

	return ev
}

func UserTopic(id uuid.UUID) string   { return "user:" + id.String() }
func RoundTopic(id uuid.UUID) string  { return "round:" + id.String() }
func StreamTopic(id uuid.UUID) string { return "stream:" + id.String() }

// Publisher delivers events after the producing transaction has committed.
// Delivery is best effort; clients reconcile by re-reading.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}
