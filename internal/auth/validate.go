package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ai-stylist/internal/metrics"
)

// ValidationError represents a specific type of API key validation failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes validation failures.
type ValidationErrorType int

const (
	// ErrTypeNoKey indicates no API key was found.
	ErrTypeNoKey ValidationErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey
	// ErrTypeNetworkError indicates a network connectivity issue.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota has been exceeded.
	ErrTypeQuotaExceeded
	// ErrTypeUnknown indicates an unknown error occurred.
	ErrTypeUnknown
)

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// KeyChecker sends one minimal request to a model provider.
type KeyChecker interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// ValidateAPIKey verifies the key behind p with a minimal request. It
// returns nil if the key works, or a ValidationError whose Type names the
// failure.
func ValidateAPIKey(ctx context.Context, p KeyChecker) error {
	log.Debug().Str("provider", p.Name()).Msg("Validating API key")

	start := time.Now()
	_, err := p.Generate(ctx, "Reply with an empty JSON object.", "{}")
	elapsed := time.Since(start)

	result := "success"
	var valErr *ValidationError
	if err != nil {
		valErr = classifyError(err)
		switch valErr.Type {
		case ErrTypeInvalidKey:
			result = "invalid"
		case ErrTypeNetworkError:
			result = "network_error"
		case ErrTypeQuotaExceeded:
			result = "quota"
		default:
			result = "unknown"
		}
	}

	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Dimension("Provider", p.Name()).
		Metric("ApiKeyValidationMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ApiKeyValidationResult").
		Flush()

	if valErr != nil {
		return valErr
	}
	log.Info().Str("provider", p.Name()).Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}

// textRules classify errors that carry no HTTP status, first match wins.
var textRules = []struct {
	typ     ValidationErrorType
	message string
	needles []string
}{
	{ErrTypeInvalidKey, "API key is invalid or has been revoked",
		[]string{"api key not valid", "invalid api key", "api_key_invalid", "invalid x-api-key", "permission denied"}},
	{ErrTypeQuotaExceeded, "API quota exceeded or rate limited",
		[]string{"quota", "resource exhausted", "rate limit"}},
	{ErrTypeNetworkError, "Network error - check your internet connection",
		[]string{"connection", "network", "timeout", "dial", "no such host", "unreachable"}},
}

// classifyError maps a provider error to a ValidationError. Typed API errors
// are classified by status code, anything else by its message.
func classifyError(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var geminiErr *genai.APIError
	if errors.As(err, &geminiErr) {
		return classifyStatus(geminiErr.Code, geminiErr.Message, err)
	}
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) {
		return classifyStatus(claudeErr.StatusCode, http.StatusText(claudeErr.StatusCode), err)
	}

	text := strings.ToLower(err.Error())
	for _, rule := range textRules {
		for _, needle := range rule.needles {
			if strings.Contains(text, needle) {
				log.Error().Err(err).Int("type", int(rule.typ)).Msg("API key validation failed")
				return &ValidationError{Type: rule.typ, Message: rule.message, Err: err}
			}
		}
	}
	log.Error().Err(err).Msg("Unknown error during API validation")
	return &ValidationError{Type: ErrTypeUnknown, Message: "Failed to validate API key", Err: err}
}

// classifyStatus maps a provider HTTP status code. 529 is Anthropic's
// overloaded status.
func classifyStatus(code int, message string, err error) *ValidationError {
	v := &ValidationError{Type: ErrTypeUnknown, Message: message, Err: err}
	switch code {
	case http.StatusBadRequest:
		v.Type, v.Message = ErrTypeInvalidKey, "Bad request - API key may be malformed"
	case http.StatusUnauthorized, http.StatusForbidden:
		v.Type, v.Message = ErrTypeInvalidKey, "API key is invalid, expired, or lacks permissions"
	case http.StatusTooManyRequests:
		v.Type, v.Message = ErrTypeQuotaExceeded, "API rate limit exceeded - try again later"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		v.Type, v.Message = ErrTypeNetworkError, "Model API server error - try again later"
	}
	log.Error().Int("code", code).Str("message", message).Int("type", int(v.Type)).Msg("Model API error")
	return v
}
