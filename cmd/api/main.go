package main

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"shrinkray/internal/api"
	"shrinkray/internal/notify"
	"shrinkray/internal/pipeline"
	"shrinkray/internal/queue"
	"shrinkray/internal/store"
)

func main() {
	s3Config, err := awsConfig(os.Getenv("S3_REGION"), os.Getenv("S3_ENDPOINT"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load S3 config")
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) { o.UsePathStyle = true })
	blobs := store.NewS3BlobStore(s3Client, envOr("S3_BUCKET", "videos"))

	dynamoConfig, err := awsConfig(envOr("DYNAMODB_REGION", os.Getenv("S3_REGION")), os.Getenv("DYNAMODB_ENDPOINT"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load DynamoDB config")
	}
	meta := store.NewDynamoMetadataStore(dynamodb.NewFromConfig(dynamoConfig), envOr("DYNAMODB_TABLE", "videos_table"))
	if err := meta.EnsureTable(context.TODO()); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure the table")
	}

	conn, err := amqp.Dial(os.Getenv("RABBITMQ_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer conn.Close()
	jobs, err := queue.NewRabbitQueue(conn, envOr("QUEUE_NAME", "transcode"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up the queue")
	}
	defer jobs.Close()

	var notifier notify.Notifier
	if r := notify.NewRedisNotifier(os.Getenv("REDIS_DSN"), os.Getenv("REDIS_CHANNEL")); r != nil {
		notifier = r
	}

	coordinator := pipeline.NewCoordinator(meta, blobs, jobs, notifier)
	server := api.NewServer(coordinator)

	addr := envOr("HTTP_ADDR", ":8000")
	log.Info().Str("addr", addr).Msg("starting the API server")
	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func awsConfig(region, endpoint string) (aws.Config, error) {
	return config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     os.Getenv("S3_ACCESS_KEY"),
				SecretAccessKey: os.Getenv("S3_SECRET_KEY"),
			},
		}),
	)
}

func envOr(name, fallback string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return fallback
}
