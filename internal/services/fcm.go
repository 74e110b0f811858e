package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"siteops-backend/internal/safety"
)

// multicastSender is the part of the messaging client the service uses
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// TokenSource lists the push tokens a safety cue goes to
type TokenSource func(ctx context.Context) ([]string, error)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client multicastSender
	tokens TokenSource
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string, tokens TokenSource) (*FCMService, error) {
	return newFCMService(option.WithCredentialsFile(credentialsFile), tokens)
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
func NewFCMServiceFromBase64(credentialsBase64 string, tokens TokenSource) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(option.WithCredentialsJSON(credentialsJSON), tokens)
}

func newFCMService(opt option.ClientOption, tokens TokenSource) (*FCMService, error) {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client, tokens: tokens}, nil
}

func (s *FCMService) Name() string {
	return "fcm"
}

// DeliverCue pushes a safety alert to every supervisor device
func (s *FCMService) DeliverCue(ctx context.Context, cue safety.Cue) error {
	tokens, err := s.tokens(ctx)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	alert := cue.Alert
	data := map[string]string{
		"type":          "safety_alert",
		"alert_id":      alert.ID,
		"condition_key": alert.ConditionKey,
		"alert_type":    string(alert.Type),
		"severity":      string(alert.Severity),
		"operator_id":   strconv.Itoa(alert.OperatorID),
		"volume":        strconv.FormatFloat(cue.Volume, 'f', 1, 64),
		"repeat":        strconv.Itoa(cue.Repeat),
	}
	title := fmt.Sprintf("%s Safety Alert", strings.ToUpper(string(alert.Severity)))

	return s.SendMulticast(ctx, tokens, title, alert.Message, data)
}

// SendMulticast sends the same message to multiple tokens
func (s *FCMService) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Printf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return nil
}
