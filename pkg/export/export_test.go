package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfm-segments/pkg/config"
	"rfm-segments/pkg/models"
)

func customer(id string, seg models.Segment) models.SegmentedCustomer {
	return models.SegmentedCustomer{
		ScoredCustomer: models.ScoredCustomer{CustomerMetrics: models.CustomerMetrics{CustomerID: id}},
		Segment:        seg,
	}
}

func sample() []models.SegmentedCustomer {
	return []models.SegmentedCustomer{
		customer("12346", models.SegmentHibernating),
		customer("12347", models.SegmentLoyalCustomers),
		customer("12348", models.SegmentChampions),
		customer("12350", models.SegmentLoyalCustomers),
	}
}

type putCall struct {
	bucket, key, contentType string
	body                     []byte
}

type fakePutter struct {
	calls []putCall
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, putCall{
		bucket:      aws.ToString(in.Bucket),
		key:         aws.ToString(in.Key),
		contentType: aws.ToString(in.ContentType),
		body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()[1:3]))

	assert.Equal(t, ",customer_id\n0,12347\n1,12348\n", buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t, ",customer_id\n", buf.String())
}

func TestSegments_FileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := FileSink{Dir: dir}

	written, err := Segments(context.Background(), sink, sample(), []string{"loyal_customers", "at_risk"}, nil)
	require.NoError(t, err)
	require.Len(t, written, 2)

	assert.Equal(t, models.SegmentLoyalCustomers, written[0].Segment)
	assert.Equal(t, 2, written[0].Customers)
	assert.Equal(t, filepath.Join(dir, "loyal_customers.csv"), written[0].Location)
	assert.Equal(t, 0, written[1].Customers)

	data, err := os.ReadFile(filepath.Join(dir, "loyal_customers.csv"))
	require.NoError(t, err)
	assert.Equal(t, ",customer_id\n0,12347\n1,12350\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "at_risk.csv"))
	require.NoError(t, err)
	assert.Equal(t, ",customer_id\n", string(data))
}

func TestSegments_UnknownSegmentWritesNothing(t *testing.T) {
	dir := t.TempDir()

	_, err := Segments(context.Background(), FileSink{Dir: dir}, sample(), []string{"champions", "at_Risk"}, nil)
	require.ErrorContains(t, err, `unknown segment "at_Risk"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSegments_S3Sink(t *testing.T) {
	putter := &fakePutter{}
	sink := &S3Sink{client: putter, Bucket: "analytics", Prefix: "rfm/2011-12-11"}

	written, err := Segments(context.Background(), sink, sample(), []string{"champions"}, nil)
	require.NoError(t, err)

	require.Len(t, putter.calls, 1)
	call := putter.calls[0]
	assert.Equal(t, "analytics", call.bucket)
	assert.Equal(t, "rfm/2011-12-11/champions.csv", call.key)
	assert.Equal(t, "text/csv", call.contentType)
	assert.Equal(t, ",customer_id\n0,12348\n", string(call.body))
	assert.Equal(t, "s3://analytics/rfm/2011-12-11/champions.csv", written[0].Location)
}

func TestSegments_S3Error(t *testing.T) {
	sink := &S3Sink{client: &fakePutter{err: errors.New("access denied")}, Bucket: "analytics"}

	_, err := Segments(context.Background(), sink, sample(), []string{"champions"}, nil)
	assert.ErrorContains(t, err, "access denied")
	assert.ErrorContains(t, err, "s3://analytics/champions.csv")
}

func TestFileSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := FileSink{Dir: t.TempDir()}.Put(ctx, "x.csv", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSink(t *testing.T) {
	t.Run("directory", func(t *testing.T) {
		sink, err := NewSink(context.Background(), "exports", config.S3Config{})
		require.NoError(t, err)
		assert.Equal(t, FileSink{Dir: "exports"}, sink)
	})

	t.Run("s3 url", func(t *testing.T) {
		sink, err := NewSink(context.Background(), "s3://analytics/rfm/", config.S3Config{
			Region:       "eu-west-3",
			Endpoint:     "http://localhost:9000",
			AccessKey:    "minio",
			SecretKey:    "minio123",
			UsePathStyle: true,
		})
		require.NoError(t, err)

		s3Sink, ok := sink.(*S3Sink)
		require.True(t, ok)
		assert.Equal(t, "analytics", s3Sink.Bucket)
		assert.Equal(t, "rfm", s3Sink.Prefix)
		assert.Equal(t, "s3://analytics/rfm/loyal_customers.csv", s3Sink.Location("loyal_customers.csv"))
	})

	t.Run("s3 url without bucket", func(t *testing.T) {
		_, err := NewSink(context.Background(), "s3:///rfm", config.S3Config{})
		assert.ErrorContains(t, err, "bucket is required")
	})
}
