package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()

	_, ok := RequestID(ctx)
	assert.False(t, ok)

	ctx = WithRequestID(ctx, "req-abc123")
	id, ok := RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-abc123", id)
}

func TestRequestID_EmptyValue(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	_, ok := RequestID(ctx)
	assert.False(t, ok, "empty values read as absent")
}

func TestSubject(t *testing.T) {
	ctx := WithSubject(context.Background(), "ci-runner")
	subject, ok := Subject(ctx)
	assert.True(t, ok)
	assert.Equal(t, "ci-runner", subject)

	_, ok = Subject(context.Background())
	assert.False(t, ok)
}

func TestKeysDoNotCollide(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSubject(ctx, "alice")

	id, _ := RequestID(ctx)
	subject, _ := Subject(ctx)
	assert.Equal(t, "req-1", id)
	assert.Equal(t, "alice", subject)

	// A foreign string key must not read our values.
	assert.Nil(t, ctx.Value("request_id"))
}
