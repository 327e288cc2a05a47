// Package firebase delivers push notifications over Firebase Cloud
// Messaging.
package firebase

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"saverr/internal/domain/notification"
)

var _ notification.Messenger = (*Client)(nil)

// FCM rejects multicast batches larger than this.
const fcmBatchLimit = 500

// Client sends push notifications through Firebase Cloud Messaging. It
// reports unregistered or malformed device tokens back to the caller so
// the device registry can drop them.
type Client struct {
	msgClient *messaging.Client
}

// NewClient initializes a Firebase app and returns an FCM client.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &Client{msgClient: msgClient}, nil
}

// SendToTokens sends a notification to every token, batching to the FCM
// limit. The returned slice holds tokens FCM reported as unregistered or
// invalid; per-token delivery failures of other kinds are logged and do
// not fail the call.
func (c *Client) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var invalid []string
	var totalSuccess, totalFailure int

	for _, batch := range chunkTokens(tokens, fcmBatchLimit) {
		msg := &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		}

		resp, err := c.msgClient.SendEachForMulticast(ctx, msg)
		if err != nil {
			return invalid, fmt.Errorf("failed to send FCM multicast: %w", err)
		}

		totalSuccess += resp.SuccessCount
		totalFailure += resp.FailureCount
		invalid = append(invalid, invalidTokens(batch, resp)...)
	}

	log.Printf("FCM multicast: %d success, %d failure", totalSuccess, totalFailure)
	return invalid, nil
}

func invalidTokens(tokens []string, resp *messaging.BatchResponse) []string {
	var invalid []string
	for i, sendResp := range resp.Responses {
		if sendResp.Error == nil {
			continue
		}
		if messaging.IsUnregistered(sendResp.Error) || messaging.IsInvalidArgument(sendResp.Error) {
			invalid = append(invalid, tokens[i])
		} else {
			log.Printf("FCM send error at index %d: %v", i, sendResp.Error)
		}
	}
	return invalid
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
