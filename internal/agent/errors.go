package agent

import (
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// classify marks provider errors with retryable status codes as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var anthropicErr *sdk.Error
	if errors.As(err, &anthropicErr) {
		return resilience.ClassifyStatus(err, anthropicErr.StatusCode)
	}
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return resilience.ClassifyStatus(err, geminiErr.Code)
	}
	return err
}
