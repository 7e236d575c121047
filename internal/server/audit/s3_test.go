package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	e := &models.AuditEntry{ID: "abc", Timestamp: time.Date(2026, 3, 2, 7, 0, 0, 5, time.UTC)}
	assert.Equal(t, "archive/audit/2026/03/02/"+"1772434800000000005-abc.json", ObjectKey("archive/", e))
}

func TestS3Sink_Create(t *testing.T) {
	fp := &fakePutter{}
	s := &S3Sink{client: fp, bucket: "audit-bucket"}

	e := &models.AuditEntry{
		ID: "e-1", Type: "AUTH", Username: "joao", Action: models.ActionLoginSuccess, Success: true,
		Timestamp: time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Create(context.Background(), e))

	require.NotNil(t, fp.in)
	assert.Equal(t, "audit-bucket", aws.ToString(fp.in.Bucket))
	assert.Equal(t, ObjectKey("", e), aws.ToString(fp.in.Key))
	assert.Equal(t, "*", aws.ToString(fp.in.IfNoneMatch))

	var got models.AuditEntry
	require.NoError(t, json.Unmarshal(fp.body, &got))
	assert.Equal(t, "joao", got.Username)
	assert.Equal(t, models.ActionLoginSuccess, got.Action)
}

func TestS3Sink_PutError(t *testing.T) {
	s := &S3Sink{client: &fakePutter{err: errors.New("AccessDenied")}, bucket: "b"}
	err := s.Create(context.Background(), &models.AuditEntry{ID: "x"})
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestNewS3Sink_UsesSeams(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	defer func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew }()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}
	var opts s3.Options
	fp := &fakePutter{}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		for _, fn := range optFns {
			fn(&opts)
		}
		return fp
	}

	s, err := NewS3Sink(context.Background(), S3Config{Bucket: "b", BaseEndpoint: "http://minio:9000"})
	require.NoError(t, err)
	assert.Same(t, fp, s.client)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Sink_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	defer func() { loadDefaultAWSConfig = orig }()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "no region")
}
