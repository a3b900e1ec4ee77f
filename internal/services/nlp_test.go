package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskgenie-api/internal/constants"
	"github.com/yukikurage/taskgenie-api/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestHTTPNLPGateway_Classify(t *testing.T) {
	var gotPath, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotText = body["text"]

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"category":"work","priority":"high","suggestions":["Block an hour"]}`))
	}))
	defer server.Close()

	log, logs := newObservedLogger()
	gateway := NewHTTPNLPGateway(server.URL, time.Second, log)

	result := gateway.Classify(context.Background(), "Finish quarterly report")

	assert.Equal(t, constants.NLPClassifyPath, gotPath)
	assert.Equal(t, "Finish quarterly report", gotText)
	assert.Equal(t, models.CategoryWork, result.Category)
	assert.Equal(t, models.PriorityHigh, result.Priority)
	assert.Equal(t, []string{"Block an hour"}, result.Suggestions)
	assert.Zero(t, logs.Len())
}

func TestHTTPNLPGateway_ClassifyFallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
		{
			name: "slow service",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				_, _ = w.Write([]byte(`{"category":"work"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			log, logs := newObservedLogger()
			gateway := NewHTTPNLPGateway(server.URL, 50*time.Millisecond, log)

			result := gateway.Classify(context.Background(), "anything")

			assert.Equal(t, FallbackClassification(), result)
			assert.Equal(t, 1, logs.FilterMessage("nlp classify failed, using fallback").Len())
		})
	}
}

func TestHTTPNLPGateway_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	log, logs := newObservedLogger()
	gateway := NewHTTPNLPGateway(url, time.Second, log)

	assert.Equal(t, FallbackClassification(), gateway.Classify(context.Background(), "x"))
	assert.Equal(t, FallbackBreakdown(), gateway.Breakdown(context.Background(), "x"))
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestHTTPNLPGateway_Breakdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, constants.NLPBreakdownPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"subtasks":["Pick venue",{"title":"Send invites","completed":false}],"suggestions":["Start early"]}`))
	}))
	defer server.Close()

	log, _ := newObservedLogger()
	gateway := NewHTTPNLPGateway(server.URL, time.Second, log)

	result := gateway.Breakdown(context.Background(), "Plan a party")

	assert.Equal(t, []models.Subtask{
		{Title: "Pick venue"},
		{Title: "Send invites"},
	}, result.Subtasks)
	assert.Equal(t, []string{"Start early"}, result.Suggestions)
}

func TestHTTPNLPGateway_BreakdownMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	gateway := NewHTTPNLPGateway(server.URL, time.Second, zap.NewNop())

	result := gateway.Breakdown(context.Background(), "Plan a party")

	assert.Equal(t, []models.Subtask{}, result.Subtasks)
	assert.Equal(t, []string{}, result.Suggestions)
}

func TestHTTPNLPGateway_BreakdownDropsEmptySubtasks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"subtasks":[null,"  ",{"completed":true}," Pick venue "]}`))
	}))
	defer server.Close()

	gateway := NewHTTPNLPGateway(server.URL, time.Second, zap.NewNop())

	result := gateway.Breakdown(context.Background(), "Plan a party")

	assert.Equal(t, []models.Subtask{{Title: "Pick venue"}}, result.Subtasks)
}

func TestStaticGateway(t *testing.T) {
	gateway := StaticGateway{}
	assert.Equal(t, FallbackClassification(), gateway.Classify(context.Background(), "x"))
	assert.Equal(t, FallbackBreakdown(), gateway.Breakdown(context.Background(), "x"))
}
