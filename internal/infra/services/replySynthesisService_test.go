package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"voice-connector/internal/domain/apperrors"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"
	"voice-connector/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReplies(t *testing.T, backend *fakeBackend, timeout time.Duration) (*ReplySynthesisService, *recordingDiscarder, *metrics.Metrics) {
	t.Helper()
	discarder := &recordingDiscarder{}
	m := metrics.NewMetrics()
	svc := NewReplySynthesisService(logger.Discard(), backend, backend, discarder, ReplySynthesisConfig{
		Dir:          t.TempDir(),
		PollInterval: time.Millisecond,
		RunTimeout:   timeout,
	}, m)
	return svc, discarder, m
}

func TestSubmitAndAwaitPollsUntilCompleted(t *testing.T) {
	backend := &fakeBackend{
		pollStatuses: []dto.RunStatus{dto.RunStatusInProgress, dto.RunStatusInProgress, dto.RunStatusCompleted},
		replies:      []dto.TranscriptMessage{{ID: "m1", Text: "Hello"}, {ID: "m2", Text: "How can I help?"}},
	}
	svc, _, m := newReplies(t, backend, time.Second)

	messages, err := svc.SubmitAndAwait(context.Background(), "T1", "hi there")

	require.NoError(t, err)
	assert.Equal(t, backend.replies, messages)
	assert.Equal(t, []string{"T1:hi there"}, backend.submitted)
	assert.Equal(t, 3, backend.pollCalls)
	assert.Equal(t, []string{"msg_user_1"}, backend.listAfter)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RunPolls))
	assert.Empty(t, backend.cancelledRuns())
}

func TestSubmitAndAwaitSkipsPollingWhenRunAlreadyDone(t *testing.T) {
	backend := &fakeBackend{initialStatus: dto.RunStatusCompleted}
	svc, _, _ := newReplies(t, backend, time.Second)

	messages, err := svc.SubmitAndAwait(context.Background(), "T1", "hi")

	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Zero(t, backend.pollCalls)
}

func TestSubmitAndAwaitFollowsPagination(t *testing.T) {
	backend := &fakeBackend{
		pages: []dto.MessagePage{
			{Messages: []dto.TranscriptMessage{{ID: "m1", Text: "one"}}, HasMore: true, LastID: "m1"},
			{Messages: []dto.TranscriptMessage{{ID: "m2", Text: "two"}}, HasMore: false, LastID: "m2"},
		},
	}
	svc, _, _ := newReplies(t, backend, time.Second)

	messages, err := svc.SubmitAndAwait(context.Background(), "T1", "hi")

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m2", messages[1].ID)
	assert.Equal(t, []string{"msg_user_1", "m1"}, backend.listAfter)
}

func TestSubmitAndAwaitFailedRun(t *testing.T) {
	backend := &fakeBackend{
		pollStatuses: []dto.RunStatus{dto.RunStatusFailed},
		runLastError: "rate limit exceeded",
	}
	svc, _, _ := newReplies(t, backend, time.Second)

	_, err := svc.SubmitAndAwait(context.Background(), "T1", "hi")

	var remoteErr *apperrors.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "run", remoteErr.Op)
	assert.Contains(t, err.Error(), "rate limit exceeded")
	assert.Empty(t, backend.listAfter)
}

func TestSubmitAndAwaitTimesOut(t *testing.T) {
	backend := &fakeBackend{pollStatuses: []dto.RunStatus{dto.RunStatusInProgress}}
	svc, _, _ := newReplies(t, backend, 20*time.Millisecond)

	_, err := svc.SubmitAndAwait(context.Background(), "T1", "hi")

	var remoteErr *apperrors.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "run poll", remoteErr.Op)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, []string{"T1/run_1"}, backend.cancelledRuns())
}

func TestSubmitAndAwaitTimeoutReportsPollErrorWhenCancelFails(t *testing.T) {
	backend := &fakeBackend{
		pollStatuses: []dto.RunStatus{dto.RunStatusInProgress},
		cancelErr:    apperrors.Remote("run cancel", errors.New("503")),
	}
	svc, _, m := newReplies(t, backend, 20*time.Millisecond)

	_, err := svc.SubmitAndAwait(context.Background(), "T1", "hi")

	var remoteErr *apperrors.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "run poll", remoteErr.Op)
	assert.Equal(t, []string{"T1/run_1"}, backend.cancelledRuns())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteCallErrors.WithLabelValues("run cancel")))
}

func TestSubmitAndAwaitHonoursCancellation(t *testing.T) {
	backend := &fakeBackend{pollStatuses: []dto.RunStatus{dto.RunStatusQueued}}
	svc, _, _ := newReplies(t, backend, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := svc.SubmitAndAwait(ctx, "T1", "hi")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"T1/run_1"}, backend.cancelledRuns())
}

func TestSubmitAndAwaitMessageAppendFailure(t *testing.T) {
	backend := &fakeBackend{submitErr: apperrors.Remote("message append", errors.New("404"))}
	svc, _, _ := newReplies(t, backend, time.Second)

	_, err := svc.SubmitAndAwait(context.Background(), "T1", "hi")

	var remoteErr *apperrors.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "message append", remoteErr.Op)
}

func TestSynthesizePreservesOrder(t *testing.T) {
	backend := &fakeBackend{}
	svc, _, m := newReplies(t, backend, time.Second)
	messages := []dto.TranscriptMessage{
		{ID: "m1", Text: "first"},
		{ID: "m2", Text: "second"},
		{ID: "m3", Text: "third"},
	}

	paths, err := svc.Synthesize(context.Background(), messages, "T1")

	require.NoError(t, err)
	require.Len(t, paths, 3)
	for i, msg := range messages {
		assert.Equal(t, filepath.Join(svc.Dir, "T1_"+msg.ID+".mp3"), paths[i])
		data, err := os.ReadFile(paths[i])
		require.NoError(t, err)
		assert.Equal(t, "mp3:"+msg.Text, string(data))
	}
	assert.Equal(t, []string{"first", "second", "third"}, backend.spoken)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AudioFilesSynthesized))
}

func TestSynthesizeEmpty(t *testing.T) {
	svc, _, _ := newReplies(t, &fakeBackend{}, time.Second)

	paths, err := svc.Synthesize(context.Background(), nil, "T1")

	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestSynthesizeFailureDiscardsWrittenFiles(t *testing.T) {
	backend := &fakeBackend{speechFailOn: "second"}
	svc, discarder, _ := newReplies(t, backend, time.Second)
	messages := []dto.TranscriptMessage{{ID: "m1", Text: "first"}, {ID: "m2", Text: "second"}}

	paths, err := svc.Synthesize(context.Background(), messages, "T1")

	require.Error(t, err)
	assert.Nil(t, paths)
	assert.ElementsMatch(t, []string{svc.OutputPath("T1", "m1"), svc.OutputPath("T1", "m2")}, discarder.discarded)
	_, statErr := os.Stat(svc.OutputPath("T1", "m1"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSubmitAndAwaitCancelsStuckRunOnOpenAI(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "POST /threads/T1/messages":
			io.WriteString(w, `{"id":"msg_u1"}`)
		case "POST /threads/T1/runs", "GET /threads/T1/runs/run_1":
			io.WriteString(w, `{"id":"run_1","thread_id":"T1","status":"in_progress"}`)
		case "POST /threads/T1/runs/run_1/cancel":
			io.WriteString(w, `{"id":"run_1","thread_id":"T1","status":"cancelling"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	log := logger.Discard()
	ai := provider.NewOpenAIProvider(log, provider.NewOpenAIClient("sk-test", server.URL), provider.OpenAIConfig{AssistantID: "asst_1"})
	svc := NewReplySynthesisService(log, ai, ai, &recordingDiscarder{}, ReplySynthesisConfig{
		Dir:          t.TempDir(),
		PollInterval: 5 * time.Millisecond,
		RunTimeout:   30 * time.Millisecond,
	}, metrics.NewMetrics())

	_, err := svc.SubmitAndAwait(context.Background(), "T1", "hi")

	var remoteErr *apperrors.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "run poll", remoteErr.Op)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, calls)
	assert.Equal(t, "POST /threads/T1/runs/run_1/cancel", calls[len(calls)-1])
}
