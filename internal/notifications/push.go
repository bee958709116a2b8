package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/calebmonroy/storefront-backend/pkg/db/models"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
)

// publisher is the Redis surface needed to fan notifications out to live
// sessions. pkg/redis.Client satisfies it.
type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	PushChannel(userID string) string
}

// PushMessage is the payload published on a user's push channel. Gateways
// holding open connections relay it verbatim; users with no subscriber simply
// miss the push and catch up from the notification list.
type PushMessage struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      *string   `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pusher publishes notification events on per-user Redis channels.
type Pusher struct {
	pub  publisher
	logg *logger.Logger
}

// NewPusher builds a push publisher. A nil publisher yields a no-op pusher so
// callers never have to branch on whether Redis is wired.
func NewPusher(pub publisher, logg *logger.Logger) *Pusher {
	return &Pusher{pub: pub, logg: logg}
}

// Push serializes the notification and publishes it to the owner's channel.
// Publish failures are logged and swallowed: a missed push must never fail
// the write that produced the notification.
func (p *Pusher) Push(ctx context.Context, notification *models.Notification) {
	if p == nil || p.pub == nil || notification == nil {
		return
	}

	payload, err := json.Marshal(PushMessage{
		ID:        notification.ID,
		Type:      string(notification.Type),
		Title:     notification.Title,
		Message:   notification.Message,
		Link:      notification.Link,
		CreatedAt: notification.CreatedAt,
	})
	if err != nil {
		if p.logg != nil {
			p.logg.Warn(ctx, "marshal push notification: "+err.Error())
		}
		return
	}

	channel := p.pub.PushChannel(notification.UserID.String())
	if err := p.pub.Publish(ctx, channel, payload); err != nil {
		if p.logg != nil {
			p.logg.Warn(ctx, "publish push notification: "+err.Error())
		}
	}
}
