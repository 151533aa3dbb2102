package atcmd

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failWriter struct {
	err   error
	short bool
}

func (w *failWriter) Write(p []byte) (int, error) {
	if w.short {
		return len(p) - 1, nil
	}
	return 0, w.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCorrelator_SendWritesFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	c := New(buf, "\r\n")

	require.NoError(t, c.Send(" AT+CSQ "))

	assert.Equal(t, "AT+CSQ\r\n", buf.String())
	got, ok := c.Lookup("AT+CSQ")
	require.True(t, ok)
	assert.Equal(t, Pending, got.State)
	assert.Equal(t, NoResponse, got.Value)
}

func TestCorrelator_ResolvePayload(t *testing.T) {
	tests := []struct {
		name    string
		command string
		lines   []string
		want    string
	}{
		{"signal", "AT+CSQ", []string{"+CSQ: 18,99", "OK"}, "18,99"},
		{"metadata", "AT+GPSMD?", []string{"+GPSMD:2", "OK"}, "2"},
		{"spaces", "AT+GPS?", []string{"+GPS:   1   ", "OK"}, "1"},
		{"ok only", "AT+GPS=1", []string{"OK"}, "OK"},
		{"error only", "AT+GPS=9", []string{"ERROR"}, "ERROR"},
		{"nothing", "AT", []string{"noise"}, NoResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(io.Discard, "\r\n")
			require.NoError(t, c.Send(tt.command))

			got, ok := c.Feed(tt.command, tt.lines)

			require.True(t, ok)
			assert.Equal(t, Resolved, got.State)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestCorrelator_IgnoredNeverTracked(t *testing.T) {
	buf := &bytes.Buffer{}
	c := New(buf, "\r\n", WithIgnore("GPSRD"))

	require.NoError(t, c.Send("AT+GPSRD=1"))
	assert.Equal(t, "AT+GPSRD=1\r\n", buf.String())
	assert.False(t, c.Outstanding("AT+GPSRD=1"))

	_, ok := c.Feed("AT+GPSRD=1", []string{"+GPSRD: 1", "OK"})
	assert.False(t, ok)
	assert.Empty(t, c.Snapshot())

	wf := &failWriter{err: errors.New("broken pipe")}
	c = New(wf, "\r\n", WithIgnore("GPSRD"))
	assert.Error(t, c.Send("AT+GPSRD=0"))
	assert.Empty(t, c.Commands())
}

func TestCorrelator_ResendDiscardsPrevious(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	now := t0
	c := New(io.Discard, "\r\n", WithClock(func() time.Time { return now }))

	require.NoError(t, c.Send("AT+CSQ"))
	_, _ = c.Feed("AT+CSQ", []string{"+CSQ: 10,99", "OK"})
	now = t0.Add(time.Second)
	require.NoError(t, c.Send("AT+CSQ"))

	got, _ := c.Lookup("AT+CSQ")
	assert.Equal(t, Pending, got.State)
	assert.Equal(t, NoResponse, got.Value)
	assert.Equal(t, t0.Add(time.Second), got.SentAt)
	assert.Len(t, c.Commands(), 1)

	_, _ = c.Feed("AT+CSQ", []string{"+CSQ: 20,99", "OK"})
	assert.Equal(t, map[string]string{"AT+CSQ": "20,99"}, c.Snapshot())
}

func TestCorrelator_WriteFailure(t *testing.T) {
	tests := []struct {
		name string
		w    *failWriter
	}{
		{"error", &failWriter{err: errors.New("port closed")}},
		{"short write", &failWriter{short: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.w, "\r\n")

			err := c.Send("AT+CSQ")

			require.Error(t, err)
			got, ok := c.Lookup("AT+CSQ")
			require.True(t, ok)
			assert.Equal(t, Resolved, got.State)
			assert.Equal(t, WriteError, got.Value)
		})
	}
	c := New(&failWriter{short: true}, "\r\n")
	assert.ErrorIs(t, c.Send("AT"), io.ErrShortWrite)
}

func TestCorrelator_FeedUnknown(t *testing.T) {
	c := New(io.Discard, "\r\n")
	_, ok := c.Feed("AT+CSQ", []string{"+CSQ: 1,1"})
	assert.False(t, ok)
	assert.False(t, c.Outstanding("AT+CSQ"))
}

func TestCorrelator_Expire(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := New(io.Discard, "\r\n", WithClock(fixedClock(t0)))
	require.NoError(t, c.Send("AT+CSQ"))
	require.NoError(t, c.Send("AT+GPSMD?"))
	require.NoError(t, c.Send("AT+GPS=1"))
	_, _ = c.Feed("AT+GPS=1", []string{"OK"})

	assert.Empty(t, c.Expire(t0.Add(5*time.Second), 10*time.Second))
	assert.Nil(t, c.Expire(t0.Add(time.Hour), 0))

	expired := c.Expire(t0.Add(10*time.Second), 10*time.Second)

	require.Len(t, expired, 2)
	assert.Equal(t, "AT+CSQ", expired[0].Text)
	assert.Equal(t, "AT+GPSMD?", expired[1].Text)
	assert.Equal(t, map[string]string{
		"AT+CSQ":    Timeout,
		"AT+GPSMD?": Timeout,
		"AT+GPS=1":  "OK",
	}, c.Snapshot())
}

func TestCorrelator_SnapshotIsCopy(t *testing.T) {
	c := New(io.Discard, "\r\n")
	require.NoError(t, c.Send("AT+CSQ"))

	snap := c.Snapshot()
	snap["AT+CSQ"] = "changed"
	list := c.Commands()
	list[0].Value = "changed"

	got, _ := c.Lookup("AT+CSQ")
	assert.Equal(t, NoResponse, got.Value)
}
