package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/acoustic/remote"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

// wsURL converts an httptest server HTTP URL to a WebSocket URL.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startServer launches a test WebSocket posterior server. The handler
// receives the accepted conn and is responsible for the whole exchange.
func startServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClip() audio.Clip {
	return audio.Clip{Samples: make([]int16, 1600), SampleRate: 16000}
}

// readExchange consumes the header and audio messages a client sends.
func readExchange(t *testing.T, conn *websocket.Conn) (hdr map[string]any, audioBytes []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("header message type = %v, want text", typ)
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		t.Fatalf("decode header: %v", err)
	}

	typ, audioBytes, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if typ != websocket.MessageBinary {
		t.Fatalf("audio message type = %v, want binary", typ)
	}
	return hdr, audioBytes
}

func writeResult(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, _ := json.Marshal(v)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Logf("write result: %v (may be expected on close)", err)
	}
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()
	if _, err := remote.New(""); err == nil {
		t.Error("empty URL accepted")
	}
}

func TestTranscribe_FullExchange(t *testing.T) {
	t.Parallel()

	srv := startServer(t, func(conn *websocket.Conn) {
		hdr, pcm := readExchange(t, conn)
		if hdr["sample_rate"].(float64) != 16000 {
			t.Errorf("header sample_rate = %v", hdr["sample_rate"])
		}
		if hdr["language"].(string) != "vi" {
			t.Errorf("header language = %v", hdr["language"])
		}
		// 1600 int16 samples as float32.
		if len(pcm) != 1600*4 {
			t.Errorf("audio payload = %d bytes, want %d", len(pcm), 1600*4)
		}
		writeResult(t, conn, map[string]any{
			"transcript": "think",
			"words": []map[string]any{
				{"text": "think", "start": 0.0, "end": 0.4, "confidence": 0.9},
			},
			"phones": []map[string]any{
				{"symbol": "θ", "start": 0.0, "end": 0.1},
				{"symbol": "ɪ", "start": 0.1, "end": 0.2},
				{"symbol": "ŋ", "start": 0.2, "end": 0.3},
				{"symbol": "k", "start": 0.3, "end": 0.4},
			},
			"frames": []map[string]any{
				{"time": 0.0, "probs": map[string]float64{"θ": 0.7, "t": 0.2, "zzz": 0.1}},
				{"time": 0.01, "probs": map[string]float64{"θ": 0.8, "t": 0.2}},
			},
		})
	})

	p, err := remote.New(wsURL(srv), remote.WithLanguage("vi"))
	if err != nil {
		t.Fatal(err)
	}
	obs, err := p.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatal(err)
	}

	if obs.Transcript != "think" {
		t.Errorf("transcript = %q", obs.Transcript)
	}
	if obs.Degraded {
		t.Error("posterior server output must not be marked degraded")
	}
	if len(obs.Phones) != 4 || obs.Phones[0].Symbol != "θ" {
		t.Fatalf("phones = %v", obs.Phones)
	}
	if obs.Phones[1].Start != 100*time.Millisecond {
		t.Errorf("second phone start = %s", obs.Phones[1].Start)
	}
	if len(obs.Frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(obs.Frames))
	}
	idx, ok := acoustic.VocabIndex("θ")
	if !ok {
		t.Fatal("θ missing from vocabulary")
	}
	// The bogus "zzz" symbol is dropped and its 0.1 mass redistributed, so
	// the θ posterior grows from 0.7 to 0.7/0.9.
	if got := obs.Frames[0].Probs[idx]; math.Abs(got-0.7/0.9) > 1e-9 {
		t.Errorf("frame 0 θ prob = %f, want %f", got, 0.7/0.9)
	}
	if len(obs.Frames[0].Probs) != len(acoustic.Vocabulary()) {
		t.Errorf("frame probs sized %d, want vocabulary size %d", len(obs.Frames[0].Probs), len(acoustic.Vocabulary()))
	}
	var sum float64
	for _, p := range obs.Frames[0].Probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("frame 0 posteriors sum to %f after renormalization, want 1", sum)
	}
}

func TestTranscribe_RejectsContractViolations(t *testing.T) {
	t.Parallel()

	goodPhones := []map[string]any{
		{"symbol": "θ", "start": 0.0, "end": 0.1},
		{"symbol": "ɪ", "start": 0.1, "end": 0.2},
	}
	cases := []struct {
		name   string
		result map[string]any
	}{
		{
			name: "phone starts before previous ends",
			result: map[string]any{
				"transcript": "think",
				"phones": []map[string]any{
					{"symbol": "θ", "start": 0.0, "end": 0.2},
					{"symbol": "ɪ", "start": 0.1, "end": 0.3},
				},
			},
		},
		{
			name: "phone ends before it starts",
			result: map[string]any{
				"transcript": "think",
				"phones": []map[string]any{
					{"symbol": "θ", "start": 0.2, "end": 0.1},
				},
			},
		},
		{
			name: "word order reversed",
			result: map[string]any{
				"transcript": "how are",
				"words": []map[string]any{
					{"text": "are", "start": 0.5, "end": 0.8},
					{"text": "how", "start": 0.0, "end": 0.4},
				},
			},
		},
		{
			name: "posterior row not normalized",
			result: map[string]any{
				"transcript": "think",
				"phones":     goodPhones,
				"frames": []map[string]any{
					{"time": 0.0, "probs": map[string]float64{"t": 5.0}},
				},
			},
		},
		{
			name: "negative posterior",
			result: map[string]any{
				"transcript": "think",
				"phones":     goodPhones,
				"frames": []map[string]any{
					{"time": 0.0, "probs": map[string]float64{"θ": 1.2, "t": -0.2}},
				},
			},
		},
		{
			name: "frame time regresses",
			result: map[string]any{
				"transcript": "think",
				"phones":     goodPhones,
				"frames": []map[string]any{
					{"time": 0.05, "probs": map[string]float64{"θ": 1.0}},
					{"time": 0.01, "probs": map[string]float64{"θ": 1.0}},
				},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := startServer(t, func(conn *websocket.Conn) {
				readExchange(t, conn)
				writeResult(t, conn, tc.result)
			})
			p, err := remote.New(wsURL(srv))
			if err != nil {
				t.Fatal(err)
			}
			obs, err := p.Transcribe(context.Background(), testClip())
			if !errors.Is(err, remote.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
			if obs != nil {
				t.Error("violating response still produced an observation")
			}
		})
	}
}

func TestTranscribe_ServerErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		code string
		want error
	}{
		{"audio invalid", "audio_invalid", acoustic.ErrAudioInvalid},
		{"timeout", "timeout", acoustic.ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := startServer(t, func(conn *websocket.Conn) {
				readExchange(t, conn)
				writeResult(t, conn, map[string]any{
					"error": map[string]string{"code": tc.code, "message": "nope"},
				})
			})
			p, err := remote.New(wsURL(srv))
			if err != nil {
				t.Fatal(err)
			}
			_, err = p.Transcribe(context.Background(), testClip())
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTranscribe_UnknownServerError(t *testing.T) {
	t.Parallel()

	srv := startServer(t, func(conn *websocket.Conn) {
		readExchange(t, conn)
		writeResult(t, conn, map[string]any{
			"error": map[string]string{"code": "overloaded", "message": "busy"},
		})
	})
	p, err := remote.New(wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Transcribe(context.Background(), testClip())
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("err = %v, want server error mentioning code", err)
	}
}

func TestTranscribe_ContextTimeout(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := startServer(t, func(conn *websocket.Conn) {
		readExchange(t, conn)
		close(started)
		// Never answer.
		time.Sleep(600 * time.Millisecond)
	})
	p, err := remote.New(wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = p.Transcribe(ctx, testClip())
	if !errors.Is(err, acoustic.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
	<-started
}
