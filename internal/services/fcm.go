package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"wastewatch-backend/internal/models"
)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(ctx context.Context, credentialsFile string) (*FCMService, error) {
	return newFCMService(ctx, option.WithCredentialsFile(credentialsFile))
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments where you can't upload files easily
func NewFCMServiceFromBase64(ctx context.Context, credentialsBase64 string) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(ctx, option.WithCredentialsJSON(credentialsJSON))
}

func newFCMService(ctx context.Context, opt option.ClientOption) (*FCMService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// reportStatusContent is the title, body and data payload for a report status push.
func reportStatusContent(r *models.Report) (string, string, map[string]string) {
	var title, body string
	switch r.Status {
	case models.ReportStatusInProgress:
		title = "Your report is being handled"
		body = fmt.Sprintf("A crew is working on %q.", r.Title)
	case models.ReportStatusResolved:
		title = "Report resolved"
		body = fmt.Sprintf("%q has been resolved. Thanks for keeping the city clean!", r.Title)
	default:
		title = "Report update"
		body = fmt.Sprintf("%q is now %s.", r.Title, r.Status)
	}
	data := map[string]string{
		"type":      "report_status",
		"report_id": r.ID,
		"status":    string(r.Status),
	}
	return title, body, data
}

// SendReportStatusNotification pushes a status change to every token and
// returns the tokens FCM reported as no longer registered.
func (s *FCMService) SendReportStatusNotification(ctx context.Context, tokens []string, r *models.Report) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	title, body, data := reportStatusContent(r)

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
		return nil, fmt.Errorf("error sending multicast message: %w", err)
	}

	var stale []string
	for i, resp := range response.Responses {
		if resp.Error != nil && messaging.IsRegistrationTokenNotRegistered(resp.Error) {
			stale = append(stale, tokens[i])
		}
	}

	log.Printf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return stale, nil
}
