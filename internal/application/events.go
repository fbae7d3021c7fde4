package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	EventUserRegistered         = "user.registered"
	EventUserLoggedIn           = "user.logged_in"
	EventPasswordResetRequested = "password.reset_requested"
	EventPasswordReset          = "password.reset"
	EventPasswordChanged        = "password.changed"
)

// EventPublisher is satisfied by *helpers.RabbitPublisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

// AuthEvent never carries passwords, hashes or tokens.
type AuthEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurredAt"`
}

const publishTimeout = 2 * time.Second

// publishEvent is fire-and-report: a broker outage never fails the auth operation.
func publishEvent(ctx context.Context, pub EventPublisher, logger logrus.FieldLogger, typ, userID, email string) {
	if pub == nil {
		return
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := AuthEvent{Type: typ, UserID: userID, Email: email, OccurredAt: time.Now().UTC()}
	if err := pub.PublishJSON(c, typ, ev); err != nil && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{"event": typ, "user_id": userID}).Warn("publish auth event failed")
	}
}
