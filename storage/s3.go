package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"reviewagent"
)

// S3API is the subset of *s3.Client used here.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3InputState implements InputState backed by S3
type S3InputState struct {
	bucket string
	key    string
	s3     S3API
}

func NewS3InputState(s3Client S3API, bucket, key string) *S3InputState {
	return &S3InputState{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3InputState) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get input object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// S3ReviewStore stores reviews as JSON objects under <prefix><key>.json.
type S3ReviewStore struct {
	bucket string
	prefix string
	s3     S3API
}

func NewS3ReviewStore(s3Client S3API, bucket, prefix string) *S3ReviewStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3ReviewStore{bucket: bucket, prefix: prefix, s3: s3Client}
}

func (s *S3ReviewStore) objectKey(key string) string {
	return s.prefix + key + ".json"
}

func (s *S3ReviewStore) Save(ctx context.Context, key string, review reviewagent.Review) error {
	b, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put review object to S3: %w", err)
	}
	return nil
}

func (s *S3ReviewStore) Get(ctx context.Context, key string) (reviewagent.Review, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return reviewagent.Review{}, ErrNotFound
		}
		return reviewagent.Review{}, fmt.Errorf("failed to get review object from S3: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return reviewagent.Review{}, fmt.Errorf("failed to read review object: %w", err)
	}
	return decodeReview(b)
}
