package main

import (
	"log"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go/service/ssm"
	"github.com/smoghal/cognito-custom-resources/pkg/cognito"
	"github.com/smoghal/cognito-custom-resources/pkg/config"
	"github.com/smoghal/cognito-custom-resources/pkg/journal"
	"github.com/smoghal/cognito-custom-resources/pkg/logging"
	"github.com/smoghal/cognito-custom-resources/pkg/oauth"
	"github.com/smoghal/cognito-custom-resources/pkg/resource"
	"github.com/smoghal/cognito-custom-resources/pkg/ssm"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Configuration Error: %+v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger Error: %+v", err)
	}
	defer logger.Sync()

	sess, err := session.NewSession()
	if err != nil {
		logger.Fatalw("AWS Session Error", "Error", err)
	}

	var opts []resource.Option
	if cfg.JournalTable != "" {
		opts = append(opts, resource.WithRecorder(journal.New(dynamodb.New(sess), cfg.JournalTable)))
	}

	clients := cognito.NewAppClientManager(cognito.NewClientFactory(sess), cfg,
		cognito.WithParameterStore(ssm.NewStore(awsssm.New(sess))),
		cognito.WithVerifier(oauth.NewVerifier(cfg.VerifyTimeout)),
	)
	dispatcher := resource.NewDispatcher(logger, opts...)

	lambda.Start(cfn.LambdaWrap(dispatcher.Handler(clients)))
}
