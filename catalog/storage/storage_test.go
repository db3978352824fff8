package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuagent/catalog"
)

const snapshotJSON = `{"meal":"Lunch","halls":{"North":{"Grill":[{"name":"Grilled Chicken","protein_g":30,"calories":"350","dietary_flags":["gluten-free"]}]}}}`

func TestFileSnapshotState(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{
			name:     "basic snapshot load",
			filename: "snapshot.json",
			data:     []byte(snapshotJSON),
		},
		{
			name:     "empty halls",
			filename: "empty.json",
			data:     []byte(`{"meal":"dinner","halls":{}}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.filename)
			require.NoError(t, os.WriteFile(filePath, tt.data, 0644))

			loaded, err := NewFileSnapshotState(filePath).Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.data, loaded)
		})
	}

	t.Run("load nonexistent snapshot", func(t *testing.T) {
		_, err := NewFileSnapshotState(filepath.Join(tmpDir, "nonexistent.json")).Load(context.Background())
		assert.Error(t, err)
		assert.True(t, os.IsNotExist(err))
	})
}

type mockS3 struct {
	body  string
	err   error
	input *s3.GetObjectInput
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(m.body))}, nil
}

func TestS3SnapshotState(t *testing.T) {
	t.Run("reads bucket and key", func(t *testing.T) {
		client := &mockS3{body: snapshotJSON}
		b, err := NewS3SnapshotState(client, "menus", "latest.json").Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, snapshotJSON, string(b))
		assert.Equal(t, "menus", aws.ToString(client.input.Bucket))
		assert.Equal(t, "latest.json", aws.ToString(client.input.Key))
	})

	t.Run("wraps errors", func(t *testing.T) {
		boom := errors.New("access denied")
		_, err := NewS3SnapshotState(&mockS3{err: boom}, "menus", "latest.json").Load(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})
}

func TestLoader(t *testing.T) {
	t.Run("decodes snapshot", func(t *testing.T) {
		s, err := Loader(NewTestSnapshotState([]byte(snapshotJSON)))(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "lunch", s.Meal)
		assert.Equal(t, []string{"North"}, s.Catalog.Halls())
		assert.Equal(t, 1, s.Catalog.Len())
	})

	t.Run("empty snapshot", func(t *testing.T) {
		_, err := Loader(NewTestSnapshotState([]byte(`{"meal":"dinner","halls":{}}`)))(context.Background())
		assert.ErrorIs(t, err, catalog.ErrEmptySnapshot)
	})

	t.Run("state error", func(t *testing.T) {
		_, err := Loader(NewTestSnapshotStateWithError())(context.Background())
		assert.ErrorContains(t, err, "load snapshot")
	})
}
