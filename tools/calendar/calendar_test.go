package calendar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEventWithoutToken(t *testing.T) {
	t.Setenv(EnvToken, "")
	c := New(Config{})

	_, err := c.CreateEvent(context.Background(), "Ujian", "2099-01-01 09:00")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestCreateEventRejectsBadDeadline(t *testing.T) {
	t.Setenv(EnvToken, "fake-token")
	c := New(Config{})

	_, err := c.CreateEvent(context.Background(), "Ujian", "besok sore")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
	assert.Contains(t, err.Error(), "2006-01-02 15:04")
}

func TestNewDefaultsToPrimary(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, "primary", c.cfg.CalendarId)
}
