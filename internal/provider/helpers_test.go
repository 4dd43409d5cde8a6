package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// trackingTransport counts response bodies handed out and closed.
type trackingTransport struct {
	base   http.RoundTripper
	opened atomic.Int32
	closed atomic.Int32
}

func (t *trackingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	t.opened.Add(1)
	resp.Body = &trackedBody{ReadCloser: resp.Body, onClose: func() { t.closed.Add(1) }}
	return resp, nil
}

type trackedBody struct {
	io.ReadCloser
	once    sync.Once
	onClose func()
}

func (b *trackedBody) Close() error {
	b.once.Do(b.onClose)
	return b.ReadCloser.Close()
}

func newTrackingClient() (*http.Client, *trackingTransport) {
	tr := &trackingTransport{base: http.DefaultTransport}
	return &http.Client{Transport: tr}, tr
}

// sseServer streams events and, when hold is set, keeps the response open
// after the events until the client goes away. requests and auth receive
// each decoded request body and Authorization header; gone is closed once a
// held request is cancelled.
type sseServer struct {
	*httptest.Server
	requests chan map[string]any
	auth     chan string
	gone     chan struct{}
}

func newSSEServer(t *testing.T, events []string, hold bool) *sseServer {
	t.Helper()
	s := &sseServer{
		requests: make(chan map[string]any, 8),
		auth:     make(chan string, 8),
		gone:     make(chan struct{}),
	}
	var goneOnce sync.Once

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		select {
		case s.requests <- body:
		default:
		}
		select {
		case s.auth <- r.Header.Get("Authorization"):
		default:
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, ev := range events {
			fmt.Fprint(w, ev)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if !hold {
			return
		}
		select {
		case <-r.Context().Done():
			goneOnce.Do(func() { close(s.gone) })
		case <-time.After(10 * time.Second):
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func newErrorServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// openAIEvents renders chunks as chat.completion.chunk SSE events. An empty
// chunk produces a role-only delta, which carries no text.
func openAIEvents(chunks ...string) []string {
	events := make([]string, 0, len(chunks)+1)
	for _, c := range chunks {
		delta := map[string]any{"content": c}
		if c == "" {
			delta = map[string]any{"role": "assistant"}
		}
		payload, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion.chunk",
			"created": 1700000000,
			"model":   "gpt-4o",
			"choices": []any{map[string]any{"index": 0, "delta": delta}},
		})
		events = append(events, "data: "+string(payload)+"\n\n")
	}
	return append(events, "data: [DONE]\n\n")
}

// anthropicEvents renders a full Messages stream, including the non-text
// control events around the text deltas.
func anthropicEvents(chunks ...string) []string {
	events := []string{
		"event: message_start\ndata: " + `{"type":"message_start","message":{"id":"msg_test","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":5,"output_tokens":1}}}` + "\n\n",
		"event: content_block_start\ndata: " + `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}` + "\n\n",
		"event: ping\ndata: " + `{"type":"ping"}` + "\n\n",
	}
	for _, c := range chunks {
		payload, _ := json.Marshal(map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": c},
		})
		events = append(events, "event: content_block_delta\ndata: "+string(payload)+"\n\n")
	}
	return append(events,
		"event: content_block_stop\ndata: "+`{"type":"content_block_stop","index":0}`+"\n\n",
		"event: message_delta\ndata: "+`{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":7}}`+"\n\n",
		"event: message_stop\ndata: "+`{"type":"message_stop"}`+"\n\n",
	)
}

func collect(t *testing.T, p Provider, req Request) ([]string, error) {
	t.Helper()
	var fragments []string
	for fragment, err := range p.StreamCompletion(t.Context(), req) {
		if err != nil {
			return fragments, err
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}
