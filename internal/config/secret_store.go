package config

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SecretStore is an S3-compatible bucket (R2, MinIO, S3) holding the signing
// secret for recovery when the environment does not provide one
type SecretStore struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	JWTSecretObject string `mapstructure:"jwt_secret_object"`
}

func (s SecretStore) Configured() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// FetchJWTSecret reads the signing secret object
func (s SecretStore) FetchJWTSecret() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKey,
			s.SecretKey,
			"",
		)),
		awsconfig.WithRegion(s.Region),
	)
	if err != nil {
		return "", fmt.Errorf("configure s3 client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.JWTSecretObject),
	})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", s.JWTSecretObject, err)
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(io.LimitReader(result.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.JWTSecretObject, err)
	}

	return strings.TrimSpace(string(secret)), nil
}
