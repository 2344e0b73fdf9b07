package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu         sync.Mutex
	history    []core.Exchange
	historyErr error
	appendErr  error

	historyLimit int
	appended     []core.Exchange
	appendCtxErr error
}

func (s *fakeStore) Append(ctx context.Context, ex core.Exchange) (core.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCtxErr = ctx.Err()
	if s.appendErr != nil {
		return core.Exchange{}, s.appendErr
	}
	ex.ID = int64(len(s.appended) + 1)
	s.appended = append(s.appended, ex)
	return ex, nil
}

func (s *fakeStore) History(_ context.Context, _ string, limit int) ([]core.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyLimit = limit
	return s.history, s.historyErr
}

type fakeStream struct {
	frames []sse.Frame
	err    error
	next   int
	closed bool
	// onNext runs before frame i is returned
	onNext func(i int)
}

func (s *fakeStream) Next() (sse.Frame, error) {
	if s.onNext != nil {
		s.onNext(s.next)
	}
	if s.next < len(s.frames) {
		f := s.frames[s.next]
		s.next++
		return f, nil
	}
	if s.err != nil {
		return sse.Frame{}, s.err
	}
	return sse.Frame{}, io.EOF
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeClient struct {
	stream *fakeStream
	err    error
	calls  int
	req    core.CompletionRequest
}

func (c *fakeClient) Stream(_ context.Context, req core.CompletionRequest) (core.FrameStream, error) {
	c.calls++
	c.req = req
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

type recordingSink struct {
	fragments []string
	err       error
}

func (s *recordingSink) Receive(_ context.Context, fragment string) error {
	s.fragments = append(s.fragments, fragment)
	return s.err
}

func delta(s string) sse.Frame { return sse.Frame{Kind: sse.Delta, Content: s} }

var doneFrame = sse.Frame{Kind: sse.Done}

func newRequest(text string) core.SubmitRequest {
	return core.SubmitRequest{SessionID: "s1", Text: text, Model: "gpt-test", Credential: "sk"}
}

var fixedNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestOrchestrator(store *fakeStore, client *fakeClient, opts ...Option) *Orchestrator {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewOrchestrator(store, client, opts...)
}

func TestSubmit_StreamsAndPersists(t *testing.T) {
	store := &fakeStore{}
	stream := &fakeStream{frames: []sse.Frame{delta("Hi"), delta(" there"), doneFrame}}
	client := &fakeClient{stream: stream}
	sink := &recordingSink{}

	answer, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), sink)
	require.NoError(t, err)

	assert.Equal(t, "Hi there", answer.Text)
	assert.True(t, answer.Saved)
	assert.Equal(t, 2, answer.Fragments)
	assert.Equal(t, fixedNow, answer.CreatedAt)
	assert.Equal(t, []string{"Hi", " there"}, sink.fragments)
	assert.True(t, stream.closed)

	require.Len(t, store.appended, 1)
	assert.Equal(t, core.Exchange{ID: 1, SessionID: "s1", Question: "Hello", Answer: "Hi there", CreatedAt: fixedNow}, store.appended[0])

	assert.Equal(t, "gpt-test", client.req.Model)
	assert.Equal(t, "sk", client.req.Credential)
	require.Len(t, client.req.Messages, 1)
	assert.Equal(t, "Hello", client.req.Messages[0].Text())
}

func TestSubmit_StreamInterrupted(t *testing.T) {
	store := &fakeStore{}
	reset := errors.New("connection reset by peer")
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{delta("Partial")}, err: reset}}
	sink := &recordingSink{}

	answer, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), sink)

	require.ErrorIs(t, err, ErrStreamInterrupted)
	assert.ErrorIs(t, err, reset)
	assert.Equal(t, []string{"Partial"}, sink.fragments)
	assert.Empty(t, store.appended)
	assert.False(t, answer.Saved)

	var chatErr *Error
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, KindStreamInterrupted, chatErr.Kind)
	assert.Equal(t, "Partial", chatErr.Answer.Text)
	assert.False(t, chatErr.Produced())
}

func TestSubmit_TruncatedStream(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{delta("cut")}}}

	_, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), nil)

	assert.ErrorIs(t, err, ErrStreamInterrupted)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Empty(t, store.appended)
}

func TestSubmit_RequestFailed(t *testing.T) {
	store := &fakeStore{}
	unauthorized := errors.New("http 401: invalid api key")
	client := &fakeClient{err: unauthorized}
	sink := &recordingSink{}

	answer, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), sink)

	require.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, unauthorized)
	assert.NotErrorIs(t, err, ErrStreamInterrupted)
	assert.Empty(t, sink.fragments)
	assert.Empty(t, store.appended)
	assert.Equal(t, core.Answer{}, answer)
}

func TestSubmit_HistoryFetchFailed(t *testing.T) {
	store := &fakeStore{historyErr: errors.New("database is locked")}
	client := &fakeClient{stream: &fakeStream{}}

	_, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), nil)

	assert.ErrorIs(t, err, ErrHistoryFetchFailed)
	assert.Zero(t, client.calls)
}

func TestSubmit_HistoryBecomesContext(t *testing.T) {
	store := &fakeStore{history: []core.Exchange{
		{SessionID: "s1", Question: "q1", Answer: "a1"},
		{SessionID: "s1", Question: "q2", Answer: "a2"},
	}}
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{delta("a3"), doneFrame}}}

	_, err := newTestOrchestrator(store, client, WithBudget(ContextBudget{MaxExchanges: 20})).
		Submit(context.Background(), newRequest("q3"), nil)
	require.NoError(t, err)

	assert.Equal(t, 20, store.historyLimit)

	messages := client.req.Messages
	require.Len(t, messages, 5)
	wantRoles := []core.Role{core.RoleUser, core.RoleAssistant, core.RoleUser, core.RoleAssistant, core.RoleUser}
	wantTexts := []string{"q1", "a1", "q2", "a2", "q3"}
	for i, m := range messages {
		assert.Equal(t, wantRoles[i], m.Role, "message %d", i)
		assert.Equal(t, wantTexts[i], m.Text(), "message %d", i)
	}
}

func TestSubmit_TokenBudgetTrimsHistory(t *testing.T) {
	store := &fakeStore{history: makeHistory(4)}
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{delta("ok"), doneFrame}}}

	// input "new" costs 7, each exchange 12
	o := newTestOrchestrator(store, client,
		WithTokenCounter(lenCounter{}),
		WithBudget(ContextBudget{MaxTokens: 7 + 12}),
	)
	_, err := o.Submit(context.Background(), newRequest("new"), nil)
	require.NoError(t, err)

	require.Len(t, client.req.Messages, 3)
	assert.Equal(t, "q3", client.req.Messages[0].Text())
}

func TestSubmit_UnparseableFramesAreSkipped(t *testing.T) {
	store := &fakeStore{}
	unparseable := sse.Frame{Kind: sse.Unparseable}
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{
		unparseable, delta("a"), unparseable, unparseable, delta("b"), doneFrame,
	}}}
	sink := &recordingSink{}

	answer, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), sink)
	require.NoError(t, err)

	assert.Equal(t, "ab", answer.Text)
	assert.Equal(t, []string{"a", "b"}, sink.fragments)
}

func TestSubmit_SinkFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{delta("one"), delta(" two"), doneFrame}}}
	sink := &recordingSink{err: errors.New("subscriber gone")}

	answer, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), sink)
	require.NoError(t, err)

	assert.Equal(t, "one two", answer.Text)
	assert.True(t, answer.Saved)
	assert.Equal(t, []string{"one", " two"}, sink.fragments, "every delta is still offered once")
	require.Len(t, store.appended, 1)
}

func TestSubmit_PersistenceFailed(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("disk full")}
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{delta("full answer"), doneFrame}}}
	sink := &recordingSink{}

	answer, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), sink)

	require.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Equal(t, "full answer", answer.Text)
	assert.False(t, answer.Saved)

	var chatErr *Error
	require.ErrorAs(t, err, &chatErr)
	assert.True(t, chatErr.Produced())
	assert.Equal(t, "full answer", chatErr.Answer.Text)
	assert.Equal(t, []string{"full answer"}, sink.fragments)
}

func TestSubmit_EmptyAnswerIsNotPersisted(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{doneFrame}}}

	answer, err := newTestOrchestrator(store, client).Submit(context.Background(), newRequest("Hello"), nil)
	require.NoError(t, err)

	assert.Empty(t, answer.Text)
	assert.False(t, answer.Saved)
	assert.Equal(t, fixedNow, answer.CreatedAt)
	assert.Empty(t, store.appended)
}

func TestSubmit_CancelledMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeStore{}
	client := &fakeClient{stream: &fakeStream{frames: []sse.Frame{delta("a"), delta("b"), doneFrame}}}
	sink := core.SinkFunc(func(context.Context, string) error {
		cancel()
		return nil
	})

	answer, err := newTestOrchestrator(store, client).Submit(ctx, newRequest("Hello"), sink)

	require.ErrorIs(t, err, ErrStreamInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "a", answer.Text)
	assert.Empty(t, store.appended)
}

func TestSubmit_PersistenceSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeStore{}
	stream := &fakeStream{frames: []sse.Frame{delta("done before cancel"), doneFrame}}
	stream.onNext = func(i int) {
		if i == 1 {
			cancel()
		}
	}
	client := &fakeClient{stream: stream}

	answer, err := newTestOrchestrator(store, client).Submit(ctx, newRequest("Hello"), nil)
	require.NoError(t, err)

	assert.True(t, answer.Saved)
	require.Len(t, store.appended, 1)
	assert.NoError(t, store.appendCtxErr)
}

func TestSubmit_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  core.SubmitRequest
	}{
		{"empty session", core.SubmitRequest{Text: "hi", Model: "m"}},
		{"empty text", core.SubmitRequest{SessionID: "s", Text: "  ", Model: "m"}},
		{"empty model", core.SubmitRequest{SessionID: "s", Text: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			client := &fakeClient{}

			_, err := newTestOrchestrator(store, client).Submit(context.Background(), tt.req, nil)

			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorIs(t, err, ErrRequestFailed)
			assert.Zero(t, client.calls)
		})
	}
}

func TestError_Kinds(t *testing.T) {
	cause := errors.New("boom")
	for _, kind := range []Kind{KindHistoryFetchFailed, KindRequestFailed, KindStreamInterrupted, KindPersistenceFailed} {
		err := error(newError(kind, cause, core.Answer{}))

		assert.ErrorIs(t, err, kind.sentinel())
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), kind.String())
		for _, other := range []Kind{KindHistoryFetchFailed, KindRequestFailed, KindStreamInterrupted, KindPersistenceFailed} {
			if other != kind {
				assert.NotErrorIs(t, err, other.sentinel())
			}
		}
	}
}
