package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/anisbt/jauge/internal/database"
	"github.com/anisbt/jauge/internal/logging"
	"github.com/anisbt/jauge/internal/period"
)

const (
	ChannelName        = "jauge_period_events"
	EventPeriodChanged = "period_changed"
)

// instanceID marks events this process sent. An instance must not feed its
// own notifications back into its local bus: the local publish already ran
// before the notify went out.
var instanceID = uuid.NewString()

// PeriodPublisher receives period changes that originated on another
// instance. *bus.Bus satisfies it.
type PeriodPublisher interface {
	Publish(p period.Period)
}

// PeriodEvent is the payload pushed to browsers and relayed between
// instances when the active period changes.
type PeriodEvent struct {
	Type      string    `json:"type"`
	Month     string    `json:"mois"`
	Year      int       `json:"annee"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPeriodEvent(p period.Period) PeriodEvent {
	return PeriodEvent{
		Type:      EventPeriodChanged,
		Month:     p.Month,
		Year:      p.Year,
		Origin:    instanceID,
		CreatedAt: time.Now(),
	}
}

// NotifyPeriodChange fans a period change out through Postgres so every
// instance, not just the one that ran the cycle, pushes it to its clients.
// Delivery is best effort; a failed notify is logged and forgotten.
func NotifyPeriodChange(ctx context.Context, p period.Period) {
	data, err := json.Marshal(NewPeriodEvent(p))
	if err != nil {
		logging.L().Warn("failed to marshal period event", "error", err)
		return
	}

	if _, err := database.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChannelName, string(data)); err != nil {
		logging.L().Warn("failed to send period notification", "error", err)
	}
}

// StartListener subscribes to the period channel and forwards every
// notification to the websocket hub and, for events from other instances,
// to the local bus so server-side panels refetch too. Returns once the
// LISTEN is established; the forwarding loop runs until ctx is cancelled.
func StartListener(ctx context.Context, databaseURL string, hub *Hub, events PeriodPublisher) error {
	listener := pq.NewListener(databaseURL, 5*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			logging.L().Warn("period listener event", "event", event, "error", err)
		}
	})

	if err := listener.Listen(ChannelName); err != nil {
		return err
	}

	go func() {
		defer func() {
			_ = listener.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				if n == nil {
					continue
				}
				dispatchPeriodEvent([]byte(n.Extra), hub, events)
			case <-time.After(time.Minute):
				if err := listener.Ping(); err != nil {
					logging.L().Warn("period listener ping failed", "error", err)
				}
			}
		}
	}()

	return nil
}

// dispatchPeriodEvent pushes a raw notification to websocket clients and
// publishes periods that another instance announced on the local bus.
func dispatchPeriodEvent(payload []byte, hub *Hub, events PeriodPublisher) {
	hub.Broadcast(payload)

	var ev PeriodEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		logging.L().Warn("undecodable period notification", "error", err)
		return
	}
	if ev.Type != EventPeriodChanged || ev.Origin == instanceID {
		return
	}

	p := period.Period{Month: ev.Month, Year: ev.Year}
	if err := p.Validate(); err != nil {
		logging.L().Warn("invalid period in notification", "error", err)
		return
	}
	if events != nil {
		events.Publish(p)
	}
}
