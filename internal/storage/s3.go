// Package storage holds the object-storage client used for archiving run
// reports outside the database.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/act-placemat/loom/internal/util"
	"github.com/act-placemat/loom/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		logger.Error("Failed to load S3 config, report archiving disabled", "err", err)
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

func reportKey(runID string) string {
	return fmt.Sprintf("reports/%s.json", runID)
}

// ReportArchive stores run reports as JSON objects under reports/ in the
// configured bucket. It satisfies the runner's report sink contract.
type ReportArchive struct {
	client *s3.Client
	bucket string
}

func NewReportArchive(client *s3.Client) *ReportArchive {
	return &ReportArchive{
		client: client,
		bucket: util.GetEnvString("AWS_BUCKET", "loom"),
	}
}

func (a *ReportArchive) SaveReport(ctx context.Context, runID string, report []byte) error {
	if a.client == nil {
		logger.Warn("[Storage] S3 unavailable, run report kept in store only", "run", runID)
		return nil
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(reportKey(runID)),
		Body:        bytes.NewReader(report),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload run report to S3: %v", err)
	}
	return nil
}

// GetReport fetches an archived run report.
func (a *ReportArchive) GetReport(ctx context.Context, runID string) ([]byte, error) {
	if a.client == nil {
		return nil, fmt.Errorf("s3 client unavailable")
	}
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(reportKey(runID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run report from S3: %v", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read run report: %v", err)
	}
	return buf.Bytes(), nil
}
