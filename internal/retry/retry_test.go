package retry

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	calls []time.Duration
}

func (r *recordingSleeper) Sleep(d time.Duration) { r.calls = append(r.calls, d) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDo_SucceedsImmediately(t *testing.T) {
	s := &recordingSleeper{}
	p := Policy{Attempts: 5, Interval: time.Second, Sleeper: s, Logger: quietLogger()}

	calls := 0
	err := p.Do("noop", func(int) error { calls++; return nil })

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.calls)
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	s := &recordingSleeper{}
	p := Policy{Attempts: 5, Interval: time.Second, Sleeper: s, Logger: quietLogger()}

	err := p.Do("flaky", func(attempt int) error {
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, s.calls)
}

func TestDo_BoundedAndSurfacesLastError(t *testing.T) {
	s := &recordingSleeper{}
	var observed []int
	p := Policy{
		Attempts: 4,
		Interval: 500 * time.Millisecond,
		Sleeper:  s,
		Logger:   quietLogger(),
		Observe:  func(_ string, attempt int, _ error) { observed = append(observed, attempt) },
	}

	calls := 0
	lastErr := errors.New("tab count 1")
	err := p.Do("tabs", func(int) error { calls++; return lastErr })

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, lastErr)
	assert.Contains(t, err.Error(), "tabs")
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, 4, calls)
	assert.Len(t, s.calls, 3, "no sleep after the final attempt")
	assert.Equal(t, []int{1, 2, 3, 4}, observed)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{Sleeper: &recordingSleeper{}, Logger: quietLogger()}.Do("once", func(int) error {
		calls++
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestUntil(t *testing.T) {
	p := Policy{Attempts: 3, Sleeper: &recordingSleeper{}, Logger: quietLogger()}

	n := 0
	err := p.Until("counter", func() (bool, string) {
		n++
		return n == 2, "n is not 2"
	})
	require.NoError(t, err)

	err = p.Until("never", func() (bool, string) { return false, "found 0 windows" })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 0 windows")
}

func TestDo_ObserverGetsKindNotLabel(t *testing.T) {
	var kinds []string
	observe := func(kind string, _ int, _ error) { kinds = append(kinds, kind) }
	fail := func(int) error { return errors.New("hidden") }

	_ = Policy{Kind: "menubar", Attempts: 2, Sleeper: &recordingSleeper{}, Logger: quietLogger(), Observe: observe}.
		Do("menu bar of [Terminal | frame]", fail)
	_ = Policy{Attempts: 1, Sleeper: &recordingSleeper{}, Logger: quietLogger(), Observe: observe}.
		Do("anything", fail)

	assert.Equal(t, []string{"menubar", "menubar", "other"}, kinds)
}
