package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/wallchart/internal/telemetry"
)

// Sink stores a finished artifact and returns where it went.
type Sink interface {
	Put(ctx context.Context, art Artifact, body []byte) (string, error)
}

// Run writes a backup and hands it to sink.
func Run(ctx context.Context, e *Exporter, sink Sink) (Artifact, string, error) {
	var buf bytes.Buffer
	art, err := e.Write(ctx, &buf)
	if err != nil {
		return Artifact{}, "", err
	}

	location, err := sink.Put(ctx, art, buf.Bytes())
	if err != nil {
		telemetry.GetMetrics().BackupErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "upload")))
		return Artifact{}, "", err
	}

	log.Ctx(ctx).Info().Str("location", location).Msg("Backup stored")
	return art, location, nil
}

// FileSink writes artifacts into a directory.
type FileSink struct {
	Dir string
}

// Put writes the artifact next to its final name and renames it into place
// so a partial file never carries the artifact name.
func (s FileSink) Put(_ context.Context, art Artifact, body []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", s.Dir, err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+art.Name+"-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir, art.Name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// S3Config configures an S3Sink. Endpoint and PathStyle select an S3
// compatible service such as MinIO.
type S3Config struct {
	Bucket          string `help:"S3 bucket for backups" env:"WALLCHART_S3_BUCKET"`
	Prefix          string `help:"key prefix for backups" default:"backups/" env:"WALLCHART_S3_PREFIX"`
	Region          string `help:"S3 region" default:"us-east-1" env:"WALLCHART_S3_REGION"`
	Endpoint        string `help:"custom S3 endpoint" env:"WALLCHART_S3_ENDPOINT"`
	PathStyle       bool   `help:"use path style addressing" env:"WALLCHART_S3_PATH_STYLE"`
	AccessKeyID     string `help:"access key, defaults to the AWS credential chain" env:"WALLCHART_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `help:"secret key" env:"WALLCHART_S3_SECRET_ACCESS_KEY"`
}

// S3Sink uploads artifacts to an S3 bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink creates an S3Sink from cfg. Extra options are applied to the
// client after the configuration, which tests use to swap the transport.
func NewS3Sink(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})

	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put uploads the artifact with its CRC64-NVME checksum so S3 verifies the
// upload.
func (s *S3Sink) Put(ctx context.Context, art Artifact, body []byte) (string, error) {
	key := strings.TrimLeft(s.prefix+art.Name, "/")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(body),
		ContentLength:     aws.Int64(int64(len(body))),
		ContentType:       aws.String("application/zstd"),
		ChecksumCRC64NVME: aws.String(art.ChecksumBase64()),
		Metadata: map[string]string{
			"crc64nvme": art.ChecksumHex(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
