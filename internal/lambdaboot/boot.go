// Package lambdaboot holds the Lambda cold-start bootstrap: AWS config,
// the DynamoDB store, API keys from SSM Parameter Store, and startup logging.
package lambdaboot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/logging"
	"github.com/fpang/ai-stylist/internal/store"
)

// SecretParam names an environment variable and the SSM parameter that
// supplies it when the variable is unset.
type SecretParam struct {
	EnvVar string
	// ParamEnvVar names the environment variable that overrides Default.
	ParamEnvVar string
	Default     string
}

// Parameter paths for the stylist's secrets.
var (
	GeminiKeyParam = SecretParam{
		EnvVar:      "GEMINI_API_KEY",
		ParamEnvVar: "SSM_API_KEY_PARAM",
		Default:     "/ai-stylist/prod/gemini-api-key",
	}
	AnthropicKeyParam = SecretParam{
		EnvVar:      "ANTHROPIC_API_KEY",
		ParamEnvVar: "SSM_ANTHROPIC_KEY_PARAM",
		Default:     "/ai-stylist/prod/anthropic-api-key",
	}
	WeatherKeyParam = SecretParam{
		EnvVar:      "WEATHER_API_KEY",
		ParamEnvVar: "SSM_WEATHER_KEY_PARAM",
		Default:     "/ai-stylist/prod/weather-api-key",
	}
)

// Name returns the parameter path to read.
func (p SecretParam) Name() string {
	if v := os.Getenv(p.ParamEnvVar); v != "" {
		return v
	}
	return p.Default
}

// ParameterGetter is the SSM call LoadSecret needs.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, opts ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSClients holds the core AWS SDK clients.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitDynamo creates the DynamoDB-backed store for tableName. Fatals if
// the name is empty.
func InitDynamo(cfg aws.Config, tableName string) *store.DynamoStore {
	if tableName == "" {
		log.Fatal().Msg("DynamoDB table name is required")
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(cfg), tableName)
}

// LoadSecret copies the SSM parameter for p into its environment variable
// unless the variable is already set. A missing optional parameter only
// logs a warning.
func LoadSecret(ctx context.Context, client ParameterGetter, p SecretParam, required bool) error {
	if os.Getenv(p.EnvVar) != "" {
		return nil
	}
	name := p.Name()
	start := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if !required {
			log.Warn().Err(err).Str("param", name).Msg("Optional secret not found in SSM")
			return nil
		}
		return fmt.Errorf("read %s from SSM: %w", name, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return fmt.Errorf("SSM parameter %s has no value", name)
	}
	os.Setenv(p.EnvVar, *result.Parameter.Value)
	log.Debug().Str("param", name).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
	return nil
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
