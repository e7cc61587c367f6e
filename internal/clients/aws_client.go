package clients

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

var (
	awsCfg  aws.Config
	awsOnce sync.Once
)

// GetAWSConfig loads the shared AWS config once. Endpoint overrides are
// applied per client, not here.
func GetAWSConfig(region string) aws.Config {
	awsOnce.Do(func() {
		slog.Info("[AWSClient] Initializing AWS Config...", slog.String("region", region))
		cfg, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion(region))
		if err != nil {
			slog.Error("[AWSClient] Failed to load AWS config", slog.String("error", err.Error()))
			panic(err)
		}

		awsCfg = cfg
		slog.Info("[AWSClient] AWS Config Initialized")
	})

	return awsCfg
}

// GetDynamoDBClient points at awsEndpoint when set, for local stacks.
func GetDynamoDBClient(region, awsEndpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(GetAWSConfig(region), func(o *dynamodb.Options) {
		if awsEndpoint != "" {
			o.BaseEndpoint = aws.String(awsEndpoint)
		}
	})
}

// GetBedrockClient returns a runtime client with SDK retries disabled; the
// judge owns the retry policy for inference calls.
func GetBedrockClient(region string) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(GetAWSConfig(region), func(o *bedrockruntime.Options) {
		o.Retryer = aws.NopRetryer{}
	})
}
