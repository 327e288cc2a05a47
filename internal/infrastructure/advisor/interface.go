package advisor

import (
	"context"
)

// ClientInterface defines the methods required from the advisor model client
type ClientInterface interface {
	Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error)
}
