package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/hndao/inkpost/internal/storageid"
)

// S3Gateway hosts images in an S3-compatible bucket. Objects are keyed
// <folder>/<name> with no file extension so that hosted URLs remain exactly
// invertible by the storageid codec: the last two path segments of every URL
// this gateway returns are the folder and the object name.
type S3Gateway struct { // implements Gateway
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

func NewS3Gateway(accessKeyID, accessKeySecret, region, baseEndpoint, bucket, publicBaseURL string) (*S3Gateway, error) {
	if region == "" {
		region = "auto"
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
	})

	return &S3Gateway{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (g *S3Gateway) Upload(ctx context.Context, file io.Reader, filename, folder string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("error reading upload file: %w", err)
	}

	key := folder + "/" + strings.ReplaceAll(uuid.New().String(), "-", "")

	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading image: %w", err)
	}

	url := g.publicBaseURL + "/" + key
	mediaLogger.Debug().Str("key", key).Str("url", url).Msg("Image uploaded to S3")
	return url, nil
}

func (g *S3Gateway) Remove(ctx context.Context, id storageid.Identifier) (RemoveResult, error) {
	key := id.PublicID()

	// DeleteObject succeeds on missing keys, so probe first to report
	// not_found as its own outcome.
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return RemoveNotFound, nil
		}
		return RemoveFailed, fmt.Errorf("error probing object %s: %w", key, err)
	}

	_, err = g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return RemoveFailed, fmt.Errorf("error deleting object %s: %w", key, err)
	}

	return RemoveDeleted, nil
}
