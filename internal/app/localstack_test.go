package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/services"
	"github.com/planease/engine/pkg/config"
)

// setupLocalStack points a config at a LocalStack container serving both
// DynamoDB and S3.
func setupLocalStack(t *testing.T) *config.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := localstack.Run(ctx, "localstack/localstack:3.8")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "4566/tcp")
	require.NoError(t, err)
	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg := memoryConfig()
	cfg.ItemStore = "dynamodb"
	cfg.ObjectStore = "s3"
	cfg.AWSRegion = "us-east-1"
	cfg.DynamoDBEndpoint = endpoint
	cfg.S3Endpoint = endpoint
	return cfg
}

func TestFinaliseAgainstLocalStack(t *testing.T) {
	cfg := setupLocalStack(t)
	ctx := context.Background()

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Migrate(ctx))
	// second run leaves existing tables alone
	require.NoError(t, a.Migrate(ctx))

	awsCfg, err := a.awsConfig(ctx)
	require.NoError(t, err)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(cfg.FilesBucket)})
	require.NoError(t, err)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.FilesBucket),
		Key:    aws.String("intake/s1/site-plan.pdf"),
		Body:   bytes.NewReader([]byte("%PDF-1.4")),
	})
	require.NoError(t, err)

	sess, err := a.Intake.Create(ctx, "u1", &services.CreateSessionInput{CouncilCode: "BCC"})
	require.NoError(t, err)

	parsed := json.RawMessage(`{"parsed":{"conditions":{"sections":[{"title":"General","conditions":[
		{"number":"1","title":"Approved plans"},{"number":"2","title":"Hours","material":{"required":true}}
	]}]}}}`)
	_, err = a.Intake.SaveStep(ctx, sess.SessionID, "u1", models.StepCouncilConditions, parsed)
	require.NoError(t, err)
	uploads := json.RawMessage(`{"uploads":[{"key":"intake/s1/site-plan.pdf","fileName":"site-plan.pdf","category":"Plans"}]}`)
	_, err = a.Intake.SaveStep(ctx, sess.SessionID, "u1", models.StepDocuments, uploads)
	require.NoError(t, err)

	res, err := a.Finalise.Finalise(ctx, sess.SessionID, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, res.Counts.Conditions)
	require.Equal(t, 1, res.Counts.UploadedDocuments)

	docs, err := a.Repos.Documents.ListByProject(ctx, res.ProjectID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(cfg.FilesBucket),
		Key:    aws.String(docs[0].StorageKey),
	})
	require.NoError(t, err)

	again, err := a.Finalise.Finalise(ctx, sess.SessionID, "u1")
	require.NoError(t, err)
	require.True(t, again.AlreadyFinalised)
	require.Equal(t, res.ProjectID, again.ProjectID)
}
