package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3SnapshotState implements SnapshotState backed by S3. The fetch job
// writes one object per refresh under a fixed key.
type S3SnapshotState struct {
	bucket string
	key    string
	s3     s3Client
}

func NewS3SnapshotState(client s3Client, bucket, key string) *S3SnapshotState {
	return &S3SnapshotState{
		bucket: bucket,
		key:    key,
		s3:     client,
	}
}

func (s *S3SnapshotState) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
