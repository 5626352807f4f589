package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloud-ru/sky-financial-go/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	return newTestClientWithTimeout(t, 5*time.Second, handler)
}

func newTestClientWithTimeout(t *testing.T, timeout time.Duration, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ChatConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
		BaseURL: srv.URL,
		Timeout: timeout,
	}, zap.NewNop())
}

func sseChunk(text string) string {
	return fmt.Sprintf("data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%q}]}}]}\n\n", text)
}

func collect(t *testing.T, s *Session, text string) []string {
	t.Helper()
	var chunks []string
	for chunk, err := range s.Send(context.Background(), text) {
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestSessionStreamsReply(t *testing.T) {
	var requests []generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("A **SIP** is "))
		fmt.Fprint(w, sseChunk("a monthly investment."))
	})

	session := client.NewSession()
	chunks := collect(t, session, "What is a SIP?")
	assert.Equal(t, []string{"A **SIP** is ", "a monthly investment."}, chunks)

	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "What is a SIP?", history[0].Text)
	assert.Equal(t, RoleModel, history[1].Role)
	assert.Equal(t, "A **SIP** is a monthly investment.", history[1].Text)
	assert.NotEmpty(t, history[0].ID)
	assert.NotEqual(t, history[0].ID, history[1].ID)

	collect(t, session, "And PPF?")
	require.Len(t, requests, 2)
	assert.Len(t, requests[1].Contents, 3)
	assert.Equal(t, "model", requests[1].Contents[1].Role)
	assert.Contains(t, requests[1].SystemInstruction.Parts[0].Text, "You are Ruby")
}

func TestSessionFallsBackOnAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
	})

	session := client.NewSession()
	chunks := collect(t, session, "hello")
	assert.Equal(t, []string{FallbackReply}, chunks)
	assert.Empty(t, session.History())
}

func TestSessionWithoutAPIKey(t *testing.T) {
	client := NewClient(config.ChatConfig{Model: "gemini-2.5-flash"}, zap.NewNop())
	chunks := collect(t, client.NewSession(), "hello")
	assert.Equal(t, []string{FallbackReply}, chunks)
}

func TestSessionStopsWhenConsumerBreaks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 5; i++ {
			fmt.Fprint(w, sseChunk(fmt.Sprintf("part %d ", i)))
		}
	})

	session := client.NewSession()
	var got []string
	for chunk, err := range session.Send(context.Background(), "tell me everything") {
		require.NoError(t, err)
		got = append(got, chunk)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"part 0 ", "part 1 "}, got)
	assert.Empty(t, session.History())
}

func TestSessionReportsCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var errs []error
	for _, err := range client.NewSession().Send(ctx, "hello") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestHistoryIsReadableWhileReplyStreams(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Hello "))
		w.(http.Flusher).Flush()
		<-release
		fmt.Fprint(w, sseChunk("world"))
	})

	session := client.NewSession()
	var got []string
	for chunk, err := range session.Send(context.Background(), "hi") {
		require.NoError(t, err)
		got = append(got, chunk)
		if len(got) > 1 {
			continue
		}

		done := make(chan []Message, 1)
		go func() { done <- session.History() }()
		close(release)
		select {
		case history := <-done:
			assert.Empty(t, history)
		case <-time.After(2 * time.Second):
			t.Fatal("History blocked while the reply was streaming")
		}
	}

	assert.Equal(t, []string{"Hello ", "world"}, got)
	assert.Len(t, session.History(), 2)
}

func TestTimeoutDoesNotCutLongStreams(t *testing.T) {
	client := newTestClientWithTimeout(t, 200*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("slow "))
		w.(http.Flusher).Flush()
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, sseChunk("reply"))
	})

	chunks := collect(t, client.NewSession(), "hello")
	assert.Equal(t, []string{"slow ", "reply"}, chunks)
}

func TestTimeoutWaitingForHeaders(t *testing.T) {
	client := newTestClientWithTimeout(t, 100*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	chunks := collect(t, client.NewSession(), "hello")
	assert.Equal(t, []string{FallbackReply}, chunks)
}

func TestWelcome(t *testing.T) {
	w := Welcome()
	assert.Equal(t, RoleModel, w.Role)
	assert.True(t, strings.HasPrefix(w.Text, "Namaste!"))
}
