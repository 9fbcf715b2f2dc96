// Package main is the Lambda entry point for the stylist API. It serves the
// same handlers as stylist-web behind API Gateway, with secrets read from
// SSM Parameter Store and state kept in DynamoDB.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/app"
	"github.com/fpang/ai-stylist/internal/config"
	"github.com/fpang/ai-stylist/internal/lambdaboot"
	"github.com/fpang/ai-stylist/internal/logging"
	"github.com/fpang/ai-stylist/internal/store"
)

var adapter *httpadapter.HandlerAdapterV2

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	ctx := context.Background()

	keyParam := lambdaboot.GeminiKeyParam
	if os.Getenv("STYLIST_LLM_PROVIDER") == config.ProviderAnthropic {
		keyParam = lambdaboot.AnthropicKeyParam
	}
	if err := lambdaboot.LoadSecret(ctx, aws.SSM, keyParam, true); err != nil {
		log.Fatal().Err(err).Msg("Failed to load model API key")
	}
	if err := lambdaboot.LoadSecret(ctx, aws.SSM, lambdaboot.WeatherKeyParam, false); err != nil {
		log.Fatal().Err(err).Msg("Failed to load weather API key")
	}

	// Lambda always persists to DynamoDB.
	os.Setenv("STYLIST_STORE", config.StoreDynamo)
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	gen, err := app.NewGenerator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}
	var st store.Store = lambdaboot.InitDynamo(aws.Config, cfg.DynamoTable)
	a, err := app.New(cfg, gen, st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire stylist")
	}
	adapter = httpadapter.NewV2(a.Handler(commitHash))

	a.Describe(lambdaboot.StartupLog("stylist-lambda", initStart)).
		CommitHash(commitHash).
		BuildTime(buildTime).
		SSMParam("modelKey", keyParam.Name()).
		SSMParam("weatherKey", lambdaboot.WeatherKeyParam.Name()).
		Log()
}

func main() {
	lambda.Start(adapter.ProxyWithContext)
}
