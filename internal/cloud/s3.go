package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/config"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive writes dropped messages to S3, one JSON object per message,
// under <prefix>/<yyyy>/<mm>/<dd>/<reason>/<uuid>.json.
type S3Archive struct {
	svc    objectPutter
	bucket string
	prefix string
	newID  func() string
}

// NewS3Archive loads AWS credentials from the default chain. A non-empty
// endpoint selects an S3-compatible store (MinIO, LocalStack) with path-style
// addressing.
func NewS3Archive(ctx context.Context, cfg config.DeadLetterConfig) (*S3Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	svc := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Archive(svc, cfg.Bucket, cfg.Prefix), nil
}

func newS3Archive(svc objectPutter, bucket, prefix string) *S3Archive {
	return &S3Archive{
		svc:    svc,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		newID:  uuid.NewString,
	}
}

func (a *S3Archive) Archive(ctx context.Context, dl domain.DeadLetter) error {
	body, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}

	key := a.key(dl)
	_, err = a.svc.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"reason": dl.Reason,
			"topic":  dl.Topic,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload dead letter %s: %w", key, err)
	}
	return nil
}

func (a *S3Archive) key(dl domain.DeadLetter) string {
	reason := strings.ReplaceAll(strings.ToLower(dl.Reason), " ", "-")
	if reason == "" {
		reason = "unknown"
	}
	return path.Join(a.prefix, dl.ReceivedAt.UTC().Format("2006/01/02"), reason, a.newID()+".json")
}
