package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/fpang/ai-stylist/internal/config"
)

func TestGetAPIKey(t *testing.T) {
	cfg := config.Config{
		Provider:        config.ProviderGemini,
		GeminiAPIKey:    " gemini-key ",
		AnthropicAPIKey: "claude-key",
	}
	key, err := GetAPIKey(cfg)
	require.NoError(t, err)
	require.Equal(t, "gemini-key", key)

	cfg.Provider = config.ProviderAnthropic
	key, err = GetAPIKey(cfg)
	require.NoError(t, err)
	require.Equal(t, "claude-key", key)
}

func TestGetAPIKeyMissing(t *testing.T) {
	_, err := GetAPIKey(config.Config{Provider: config.ProviderAnthropic})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, ErrTypeNoKey, valErr.Type)
	require.Contains(t, valErr.Error(), "ANTHROPIC_API_KEY")

	_, err = GetAPIKey(config.Config{Provider: "openai"})
	require.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ValidationErrorType
	}{
		{"genai unauthorized", &genai.APIError{Code: http.StatusUnauthorized}, ErrTypeInvalidKey},
		{"genai wrapped quota", fmt.Errorf("call: %w", &genai.APIError{Code: http.StatusTooManyRequests}), ErrTypeQuotaExceeded},
		{"genai server", &genai.APIError{Code: http.StatusServiceUnavailable}, ErrTypeNetworkError},
		{"invalid key text", errors.New("API key not valid. Please pass a valid API key."), ErrTypeInvalidKey},
		{"rate limit text", errors.New("rate limit reached"), ErrTypeQuotaExceeded},
		{"dial", errors.New("dial tcp: no such host"), ErrTypeNetworkError},
		{"other", errors.New("something odd"), ErrTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			require.Equal(t, tt.want, got.Type)
			require.ErrorIs(t, got, tt.err)
		})
	}
	require.Nil(t, classifyError(nil))
}

type fakeChecker struct{ err error }

func (p fakeChecker) Generate(context.Context, string, string) (string, error) { return "{}", p.err }
func (p fakeChecker) Name() string                                            { return "fake" }

func TestValidateAPIKey(t *testing.T) {
	require.NoError(t, ValidateAPIKey(context.Background(), fakeChecker{}))

	err := ValidateAPIKey(context.Background(), fakeChecker{err: errors.New("invalid x-api-key")})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, ErrTypeInvalidKey, valErr.Type)
}
