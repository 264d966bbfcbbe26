package bedrock

import (
	"context"

	"jlpt-listening/config"

	aws_config "github.com/aws/aws-sdk-go-v2/config"
	aws_credentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

func GetClient(ctx context.Context) (*bedrockruntime.Client, error) {
	bcfg := config.Cfg.Bedrock
	region := bcfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*aws_config.LoadOptions) error{
		aws_config.WithRegion(region),
	}
	if bcfg.AccessKey != "" && bcfg.SecretKey != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(
			aws_credentials.NewStaticCredentialsProvider(
				bcfg.AccessKey,
				bcfg.SecretKey,
				"",
			),
		))
	}

	cfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}
