package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDoubles(t *testing.T) {
	assert.Equal(t, 15*time.Minute, NextBackoff(0))
	assert.Equal(t, 30*time.Minute, NextBackoff(1))
	assert.Equal(t, 60*time.Minute, NextBackoff(2))
	assert.Equal(t, 120*time.Minute, NextBackoff(3))
	assert.Equal(t, 240*time.Minute, NextBackoff(4))
}

func TestNewEmailJobDefaults(t *testing.T) {
	job := NewEmailJob("dj@example.com", TemplatePaymentConfirmed, "", "email:payment:x:y", nil)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, EmailPending, job.Status)
	assert.Equal(t, "en", job.Language)
	assert.Equal(t, 0, job.RetryCount)
	assert.WithinDuration(t, time.Now(), job.NextAttemptAt, time.Second)
}
