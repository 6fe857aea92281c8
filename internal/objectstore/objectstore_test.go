package objectstore

import (
	"context"
	"errors"
	"io"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &s3types.NoSuchKey{}, true},
		{"head not found", &s3types.NotFound{}, true},
		{"generic not found", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"network", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("get", "k", tt.err)
			assert.Equal(t, tt.want, errors.Is(err, ErrNotFound))
			assert.Contains(t, err.Error(), "get k")
		})
	}
}

func TestMemoryRangedRead(t *testing.T) {
	m := NewMemory()
	m.PutBytes("u/1-a.txt", []byte("0123456789"), "text/plain")
	ctx := context.Background()

	info, err := m.Stat(ctx, "u/1-a.txt")
	require.NoError(t, err)
	assert.Equal(t, ObjectInfo{Size: 10, ContentType: "text/plain"}, info)

	rc, err := m.GetPartial(ctx, "u/1-a.txt", 2, 3)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "234", string(b))

	_, err = m.Stat(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFailGet(t *testing.T) {
	m := NewMemory()
	m.PutBytes("k", []byte("x"), "")
	boom := errors.New("boom")
	m.FailGet("k", boom)

	_, err := m.Get(context.Background(), "k")
	assert.ErrorIs(t, err, boom)
}
