package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/internal/providers/llm"
	"github.com/sandevgo/cuuri/internal/service/chat"
	"github.com/sandevgo/cuuri/internal/storage/sqlite"
	"github.com/sandevgo/cuuri/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeline struct {
	orchestrator *chat.Orchestrator
	repo         *sqlite.ExchangesRepo
}

func newPipeline(t *testing.T, handler http.HandlerFunc) pipeline {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewExchangesRepo(db)
	client := llm.NewOpenAICompatible(llm.OpenAICompatibleConfig{
		BaseURL:     srv.URL,
		AuthHeader:  "Authorization",
		AuthPrefix:  "Bearer ",
		KeyRequired: true,
		IdleTimeout: time.Second,
		Retry:       &retry.Config{MaxRetries: 1, BackoffFactor: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	return pipeline{
		orchestrator: chat.NewOrchestrator(repo, client, chat.WithBudget(chat.ContextBudget{MaxExchanges: 20})),
		repo:         repo,
	}
}

func chunked(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			_, _ = io.WriteString(w, c)
			w.(http.Flusher).Flush()
		}
	}
}

func collectSink() (*[]string, core.TokenSink) {
	var got []string
	return &got, core.SinkFunc(func(_ context.Context, fragment string) error {
		got = append(got, fragment)
		return nil
	})
}

func request(text string) core.SubmitRequest {
	return core.SubmitRequest{SessionID: "session-1", Text: text, Model: "gpt-test", Credential: "sk-test"}
}

func TestPipeline_HappyPath(t *testing.T) {
	p := newPipeline(t, chunked(
		"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: {\"choi",
		"ces\":[{\"delta\":{\"content\":\" there\"}}]}\n\n",
		"data: [DONE]\n\n",
	))
	got, sink := collectSink()

	answer, err := p.orchestrator.Submit(context.Background(), request("Hello"), sink)
	require.NoError(t, err)

	assert.Equal(t, "Hi there", answer.Text)
	assert.True(t, answer.Saved)
	assert.Equal(t, []string{"Hi", " there"}, *got)

	history, err := p.repo.History(context.Background(), "session-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Question)
	assert.Equal(t, "Hi there", history[0].Answer)
	assert.True(t, history[0].CreatedAt.Equal(answer.CreatedAt))
}

func TestPipeline_DroppedConnection(t *testing.T) {
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		chunked("data: {\"choices\":[{\"delta\":{\"content\":\"Partial\"}}]}\n")(w, r)
		// drop the connection mid stream
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	})
	got, sink := collectSink()

	_, err := p.orchestrator.Submit(context.Background(), request("Hello"), sink)

	require.ErrorIs(t, err, chat.ErrStreamInterrupted)
	assert.Equal(t, []string{"Partial"}, *got)

	history, err := p.repo.History(context.Background(), "session-1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPipeline_Unauthorized(t *testing.T) {
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Incorrect API key provided"}}`, http.StatusUnauthorized)
	})
	got, sink := collectSink()

	_, err := p.orchestrator.Submit(context.Background(), request("Hello"), sink)

	require.ErrorIs(t, err, chat.ErrRequestFailed)
	assert.ErrorIs(t, err, llm.ErrUnauthorized)
	assert.Empty(t, *got)

	history, err := p.repo.History(context.Background(), "session-1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPipeline_ConversationAccumulates(t *testing.T) {
	var messageCounts []int
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []map[string]any `json:"messages"`
		}
		require.NoError(t, decodeJSON(r, &body))
		messageCounts = append(messageCounts, len(body.Messages))
		chunked("data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n", "data: [DONE]\n")(w, r)
	})

	for _, q := range []string{"one", "two", "three"} {
		_, err := p.orchestrator.Submit(context.Background(), request(q), core.Discard)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{1, 3, 5}, messageCounts)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
