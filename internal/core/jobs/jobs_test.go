package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAdd_InvalidSpec(t *testing.T) {
	s := New(zap.NewNop(), time.Second)
	assert.Error(t, s.Add("bad", "not a spec", func(context.Context) error { return nil }))
}

func TestRun_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(zap.New(core), time.Second)

	s.run("ratings", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return errors.New("db down")
	})
	require.Equal(t, 1, logs.FilterMessage("job failed").Len())
	assert.Equal(t, "ratings", logs.All()[0].ContextMap()["job"])
}

func TestScheduler_Runs(t *testing.T) {
	s := New(zap.NewNop(), time.Second)
	done := make(chan struct{}, 1)
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}))
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
