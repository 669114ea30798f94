package topics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"focusmon/internal/faults"
	"focusmon/internal/retry"
	"focusmon/internal/topics"
)

func TestHTTPExtractorReturnsTopic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"what is recursion?"}, req["texts"])
		_ = json.NewEncoder(w).Encode(map[string]string{"topic": "recursion"})
	}))
	defer srv.Close()

	e := topics.NewHTTPExtractor(srv.URL, false, retry.Policy{Attempts: 1})
	topic, err := e.ExtractTopic(context.Background(), []string{"what is recursion?"})
	require.NoError(t, err)
	require.Equal(t, "recursion", topic)
}

func TestHTTPExtractorEmptyTopicIsDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"topic": ""})
	}))
	defer srv.Close()

	e := topics.NewHTTPExtractor(srv.URL, false, retry.Policy{Attempts: 1})
	_, err := e.ExtractTopic(context.Background(), []string{"question"})
	require.Error(t, err)
	require.True(t, faults.IsDependency(err))
}

func TestHTTPExtractorSkipModeUsesFirstText(t *testing.T) {
	e := topics.NewHTTPExtractor("http://unused.invalid", true, retry.Policy{Attempts: 1})
	topic, err := e.ExtractTopic(context.Background(), []string{"  what is recursion?  "})
	require.NoError(t, err)
	require.Equal(t, "what is recursion?", topic)
}
