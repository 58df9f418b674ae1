package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves objects from memory, one key per list page.
type fakeAPI struct {
	objects map[string][]byte
	keys    []string

	putContentType string
}

func (f *fakeAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range f.keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	var matched []string
	for _, k := range f.keys[start:] {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			matched = append(matched, k)
		}
	}
	out := &s3.ListObjectsV2Output{}
	if len(matched) == 0 {
		return out, nil
	}
	out.Contents = []s3types.Object{{Key: aws.String(matched[0])}}
	if len(matched) > 1 {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(matched[1])
	}
	return out, nil
}

func (f *fakeAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.keys = append(f.keys, key)
	f.putContentType = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	client, err := New(api)
	require.NoError(t, err)

	require.NoError(t, client.PutBytes(ctx, "b", "seeders/one.json", []byte(`{}`), "application/json"))
	require.NoError(t, client.PutBytes(ctx, "b", "seeders/two.json", []byte(`[]`), ""))
	require.NoError(t, client.PutBytes(ctx, "b", "other/three.json", []byte(`1`), ""))
	assert.Empty(t, api.putContentType)

	keys, err := client.ListKeys(ctx, "b", "seeders/")
	require.NoError(t, err)
	assert.Equal(t, []string{"seeders/one.json", "seeders/two.json"}, keys)

	data, err := client.GetObject(ctx, "b", "seeders/two.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = client.GetObject(ctx, "b", "missing")
	require.Error(t, err)
}

func TestNewClientFromEnvRequiresEndpoint(t *testing.T) {
	t.Setenv("S3_ENDPOINT", "")
	_, err := NewClientFromEnv(context.Background())
	require.Error(t, err)

	t.Setenv("S3_ENDPOINT", "localhost:8333")
	t.Setenv("S3_ACCESS_KEY", "")
	_, err = NewClientFromEnv(context.Background())
	require.Error(t, err)
}

func TestNewRequiresAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
