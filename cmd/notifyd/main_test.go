package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/notification-engine/internal/model"
)

func TestSelfAddresses(t *testing.T) {
	got := selfAddresses([]model.MailSourceConfig{
		{ID: "office", Username: "pm@buildright.com"},
		{ID: "legacy", Username: "pm"},
		{ID: "field", Username: "field@buildright.com"},
	})
	assert.Equal(t, []string{"pm@buildright.com", "field@buildright.com"}, got)
}
