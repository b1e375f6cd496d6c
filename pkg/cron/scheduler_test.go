package cron

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSeeder struct {
	calls    atomic.Int32
	inserted int64
	err      error
}

func (f *fakeSeeder) SeedSystemCategories(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job context has no deadline")
	}
	return f.inserted, f.err
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRunNow(t *testing.T) {
	var buf bytes.Buffer
	seeder := &fakeSeeder{inserted: 2}
	s := NewScheduler(seeder, "0 3 * * *", newLogger(&buf))

	s.RunNow()

	assert.Equal(t, int32(1), seeder.calls.Load())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "inserted=2")
}

func TestRunNow_NothingMissing(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(&fakeSeeder{}, "0 3 * * *", newLogger(&buf))

	s.RunNow()

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.NotContains(t, buf.String(), "level=WARN")
}

func TestRunNow_Error(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(&fakeSeeder{err: errors.New("connection refused")}, "0 3 * * *", newLogger(&buf))

	s.RunNow()

	assert.Contains(t, buf.String(), "catalog seed failed")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestStartStop(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(&fakeSeeder{}, "*/5 * * * *", newLogger(&buf))

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)

	<-s.Stop().Done()
}

func TestStart_InvalidSchedule(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(&fakeSeeder{}, "every tuesday", newLogger(&buf))
	assert.Error(t, s.Start())
}
