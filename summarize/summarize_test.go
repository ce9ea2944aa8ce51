package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/linkstash/models"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
	})
	return string(b)
}

func record(text string) *models.ScrapedRecord {
	return &models.ScrapedRecord{Title: "Sourdough basics", Description: "How to bake bread.", TextContent: text}
}

func TestSummarize(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatReply("```json\n" +
			`{"summary":" Bake bread. It is easy. ","tags":["Bread","baking tips","bread","#yeast","flour","oven","kitchen"],"category":"Recipe"}` +
			"\n```")))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/", APIKey: "key", Model: "m"})
	text := strings.Repeat("knead the dough ", 100)
	sum, err := c.Summarize(context.Background(), record(text))
	require.NoError(t, err)

	assert.Equal(t, "Bake bread. It is easy.", sum.Summary)
	assert.Equal(t, []string{"bread", "baking", "yeast", "flour", "oven"}, sum.Tags)
	assert.Equal(t, "recipe", sum.Category)

	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "m", got.Model)
	require.Len(t, got.Messages, 2)
	user := got.Messages[1].Content
	assert.Contains(t, user, "Title: Sourdough basics")
	assert.Equal(t, maxInputRunes, len([]rune(strings.TrimPrefix(user, "Title: Sourdough basics\n\nContent: "))))
}

func TestSummarize_ShortTextSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	sum, err := NewClient(Options{BaseURL: srv.URL, APIKey: "key"}).Summarize(context.Background(), record("too short"))
	require.NoError(t, err)
	assert.Equal(t, "How to bake bread.", sum.Summary)
	assert.Empty(t, sum.Tags)
	assert.False(t, called)
}

func TestSummarize_NotConfigured(t *testing.T) {
	c := NewClient(Options{})
	assert.False(t, c.Enabled())
	_, err := c.Summarize(context.Background(), record(strings.Repeat("word ", 50)))
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeSummarizeFailure, se.Code)
}

func TestSummarize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, models.ErrCodeSummarizeAuthFailure},
		{"forbidden", http.StatusForbidden, `{}`, models.ErrCodeSummarizeAuthFailure},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, models.ErrCodeSummarizeRateLimited},
		{"server", http.StatusInternalServerError, `oops`, models.ErrCodeSummarizeFailure},
		{"no choices", http.StatusOK, `{"choices":[]}`, models.ErrCodeSummarizeFailure},
		{"not json", http.StatusOK, chatReply("Sure! Here is a summary."), models.ErrCodeSummarizeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(Options{BaseURL: srv.URL, APIKey: "key"}).
				Summarize(context.Background(), record(strings.Repeat("word ", 50)))
			var se *models.ScrapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.want, se.Code)
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "video", normalizeCategory(" Video "))
	assert.Equal(t, "other", normalizeCategory("link"))
	assert.Equal(t, "other", normalizeCategory(""))
}
