package services

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteops-backend/internal/models"
	"siteops-backend/internal/safety"
)

type recordingSender struct {
	messages []*messaging.MulticastMessage
}

func (r *recordingSender) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	r.messages = append(r.messages, m)
	return &messaging.BatchResponse{SuccessCount: len(m.Tokens)}, nil
}

func TestFCMDeliverCue(t *testing.T) {
	sender := &recordingSender{}
	svc := &FCMService{
		client: sender,
		tokens: func(context.Context) ([]string, error) { return []string{"a", "b"}, nil },
	}

	cue := safety.CueFor(models.Alert{
		ID:           "alert-1",
		ConditionKey: "proximity:1:2",
		Type:         models.AlertProximity,
		Severity:     models.SeverityCritical,
		OperatorID:   1,
		Message:      "John Smith too close to CAT 320 Excavator (3m, 15m required)",
	})
	require.NoError(t, svc.DeliverCue(context.Background(), cue))

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, []string{"a", "b"}, msg.Tokens)
	assert.Equal(t, "CRITICAL Safety Alert", msg.Notification.Title)
	assert.Equal(t, cue.Alert.Message, msg.Notification.Body)
	assert.Equal(t, "proximity:1:2", msg.Data["condition_key"])
	assert.Equal(t, "3", msg.Data["repeat"])
	assert.Equal(t, "1.0", msg.Data["volume"])
	assert.Equal(t, "fcm", svc.Name())
}

func TestFCMDeliverCueWithoutTokens(t *testing.T) {
	sender := &recordingSender{}
	svc := &FCMService{
		client: sender,
		tokens: func(context.Context) ([]string, error) { return nil, nil },
	}
	require.NoError(t, svc.DeliverCue(context.Background(), safety.Cue{}))
	assert.Empty(t, sender.messages)

	svc.tokens = func(context.Context) ([]string, error) { return nil, errors.New("db down") }
	assert.Error(t, svc.DeliverCue(context.Background(), safety.Cue{}))
}
