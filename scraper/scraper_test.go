package scraper

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"

	"github.com/use-agent/linkstash/engine"
)

func TestIsAdDomain(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"doubleclick.net", true},
		{"stats.g.doubleclick.net", true},
		{"pagead2.googlesyndication.com", true},
		{"connect.facebook.net", true},
		{"CONNECT.FACEBOOK.NET", true},
		{"www.facebook.com", false},
		{"static.xx.fbcdn.net", false},
		{"instagram.com", false},
		{"x.com", false},
		{"net", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, isAdDomain(tt.host))
		})
	}
}

func TestNewResourceTypeSet(t *testing.T) {
	s := newResourceTypeSet([]string{"Image", "Font", "Bogus"})
	assert.Len(t, s, 2)
	assert.True(t, s.has(proto.NetworkResourceTypeImage))
	assert.True(t, s.has(proto.NetworkResourceTypeFont))
	assert.False(t, s.has(proto.NetworkResourceTypeScript))
	assert.Empty(t, newResourceTypeSet(nil))
}

func TestTabRetirement(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("fresh", func(t *testing.T) {
		tb := newTab(1, nil, start)
		tb.recordSuccess()
		assert.False(t, tb.shouldRetire(start.Add(time.Minute)))
	})
	t.Run("errors", func(t *testing.T) {
		tb := newTab(1, nil, start)
		for i := 0; i < 3; i++ {
			tb.recordFailure()
		}
		assert.True(t, tb.shouldRetire(start))
	})
	t.Run("success heals", func(t *testing.T) {
		tb := newTab(1, nil, start)
		tb.recordFailure()
		tb.recordFailure()
		tb.recordSuccess()
		tb.recordFailure()
		assert.False(t, tb.shouldRetire(start))
	})
	t.Run("uses", func(t *testing.T) {
		tb := newTab(1, nil, start)
		for i := 0; i < maxTabUses; i++ {
			tb.recordSuccess()
		}
		assert.True(t, tb.shouldRetire(start))
	})
	t.Run("age", func(t *testing.T) {
		tb := newTab(1, nil, start)
		assert.True(t, tb.shouldRetire(start.Add(maxTabAge)))
	})
}

func TestStatusReason(t *testing.T) {
	r, bad := statusReason(http.StatusForbidden)
	assert.True(t, bad)
	assert.Equal(t, engine.ReasonAccessDenied, r)

	r, bad = statusReason(http.StatusServiceUnavailable)
	assert.True(t, bad)
	assert.Equal(t, engine.ReasonServerError, r)

	for _, code := range []int{0, http.StatusOK, http.StatusNotFound} {
		_, bad = statusReason(code)
		assert.False(t, bad, "status %d", code)
	}
}

func TestRenderErr(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, engine.ReasonCanceled, renderErr(ctx, errors.New("x"), "nav").Reason)

	dctx, dcancel := context.WithTimeout(context.Background(), -time.Second)
	defer dcancel()
	assert.Equal(t, engine.ReasonTimeout, renderErr(dctx, errors.New("x"), "nav").Reason)

	assert.Equal(t, engine.ReasonNetwork, renderErr(context.Background(), errors.New("x"), "nav").Reason)
}
