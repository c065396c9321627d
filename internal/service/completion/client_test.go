package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	delay time.Duration
	panic bool
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, _ Request) (string, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestCompleteStopsAtFirstSuccess(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("down")}
	second := &fakeProvider{name: "second", text: "  hello from second  "}
	third := &fakeProvider{name: "third", text: "never"}

	out := NewClient([]Provider{first, second, third}, time.Second).Complete(context.Background(), Request{Message: "hi"})

	require.True(t, out.Succeeded())
	final, ok := out.Final()
	require.True(t, ok)
	assert.Equal(t, "second", final.Provider)
	assert.Equal(t, "hello from second", final.Text)
	assert.Len(t, out.Attempts, 2)
	assert.False(t, out.Attempts[0].Succeeded)
	assert.Equal(t, "down", out.Attempts[0].Error)
	assert.Equal(t, 0, third.calls)
	assert.NoError(t, out.Err())
}

func TestCompleteAllFailed(t *testing.T) {
	out := NewClient([]Provider{
		&fakeProvider{name: "a", err: errors.New("x")},
		&fakeProvider{name: "b", text: "   "},
	}, time.Second).Complete(context.Background(), Request{Message: "hi"})

	assert.False(t, out.Succeeded())
	assert.Len(t, out.Attempts, 2)
	assert.ErrorIs(t, out.Attempts[1].Err, ErrEmptyCompletion)
	assert.ErrorIs(t, out.Err(), ErrAllProvidersFailed)
}

func TestCompleteWithoutProviders(t *testing.T) {
	out := NewClient(nil, time.Second).Complete(context.Background(), Request{Message: "hi"})

	assert.Empty(t, out.Attempts)
	assert.ErrorIs(t, out.Err(), ErrNoProviders)
}

func TestCompleteRecoversProviderPanic(t *testing.T) {
	out := NewClient([]Provider{
		&fakeProvider{name: "panicky", panic: true},
		&fakeProvider{name: "steady", text: "still here for you"},
	}, time.Second).Complete(context.Background(), Request{Message: "hi"})

	require.Len(t, out.Attempts, 2)
	assert.Contains(t, out.Attempts[0].Error, "panic")
	final, ok := out.Final()
	require.True(t, ok)
	assert.Equal(t, "steady", final.Provider)
}

func TestCompleteAppliesPerAttemptTimeout(t *testing.T) {
	slow := &fakeProvider{name: "slow", text: "too late", delay: time.Second}
	fast := &fakeProvider{name: "fast", text: "right on time"}

	start := time.Now()
	out := NewClient([]Provider{slow, fast}, 50*time.Millisecond).Complete(context.Background(), Request{Message: "hi"})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.Len(t, out.Attempts, 2)
	assert.ErrorIs(t, out.Attempts[0].Err, context.DeadlineExceeded)
	final, _ := out.Final()
	assert.Equal(t, "fast", final.Provider)
}

func TestCompleteStopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	second := &fakeProvider{name: "second", text: "unused"}
	out := NewClient([]Provider{
		&fakeProvider{name: "first", delay: time.Second},
		second,
	}, time.Second).Complete(ctx, Request{Message: "hi"})

	assert.Len(t, out.Attempts, 1)
	assert.Equal(t, 0, second.calls)
	assert.False(t, out.Succeeded())
}

func TestProvidersKeepsOrder(t *testing.T) {
	c := NewClient([]Provider{&fakeProvider{name: "b"}, &fakeProvider{name: "a"}}, time.Second)
	assert.Equal(t, []string{"b", "a"}, c.Providers())
}
