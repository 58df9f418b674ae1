package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirRepository(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "after_seeders")
	repo := NewDirRepository(dir)
	ctx := context.Background()

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "missing directory lists nothing")

	require.NoError(t, repo.Write(ctx, "2024_06_02_000000_roles", []byte(`{"RECORDS":[]}`)))
	require.NoError(t, repo.Write(ctx, "2024_06_01_000000_users", []byte(`{"RECORDS":[]}`)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.json"), 0o755))

	names, err = NewDiscovery(repo).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024_06_01_000000_users", "2024_06_02_000000_roles"}, names)

	body, err := repo.Read(ctx, "2024_06_01_000000_users")
	require.NoError(t, err)
	assert.JSONEq(t, `{"RECORDS":[]}`, string(body))
	assert.Equal(t, filepath.Join(dir, "2024_06_01_000000_users.json"), repo.Path("2024_06_01_000000_users"))
}

type memObjects struct {
	objects map[string][]byte
	types   map[string]string
	listErr error
}

func (m *memObjects) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, bucket+"/"+prefix) {
			keys = append(keys, strings.TrimPrefix(key, bucket+"/"))
		}
	}
	return keys, nil
}

func (m *memObjects) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	body, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return body, nil
}

func (m *memObjects) PutBytes(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	m.objects[bucket+"/"+key] = data
	m.types[bucket+"/"+key] = contentType
	return nil
}

func TestBucketRepository(t *testing.T) {
	store := &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
	repo, err := NewBucketRepository(store, "seeds", "/prod/after_seeders/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, "2024_06_01_000000_users", []byte(`{"RECORDS":[]}`)))
	assert.Equal(t, "application/json", store.types["seeds/prod/after_seeders/2024_06_01_000000_users.json"])

	store.objects["seeds/prod/after_seeders/nested/2024_06_02_000000_users.json"] = []byte(`{}`)
	store.objects["seeds/prod/after_seeders/notes.txt"] = []byte(`x`)
	store.objects["seeds/other/2024_06_03_000000_users.json"] = []byte(`{}`)

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024_06_01_000000_users"}, names)

	body, err := repo.Read(ctx, "2024_06_01_000000_users")
	require.NoError(t, err)
	assert.JSONEq(t, `{"RECORDS":[]}`, string(body))

	store.listErr = errors.New("access denied")
	_, err = repo.List(ctx)
	require.ErrorContains(t, err, "s3://seeds/prod/after_seeders/")
}

func TestBucketRepositoryKeyWithoutPrefix(t *testing.T) {
	repo, err := NewBucketRepository(&memObjects{}, "seeds", "")
	require.NoError(t, err)
	assert.Equal(t, "2024_06_01_000000_users.json", repo.Key("2024_06_01_000000_users"))

	_, err = NewBucketRepository(nil, "seeds", "")
	require.Error(t, err)
	_, err = NewBucketRepository(&memObjects{}, "", "")
	require.Error(t, err)
}
