package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"polyscribe/internal/config"
	"polyscribe/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTranscriptionCompleted, notifications.Payload{"fileName": "a.wav"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("nil config should produce noop: %v", err)
	}
}

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, <-chan captured) {
	t.Helper()
	ch := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name    string
		event   notifications.Event
		payload notifications.Payload
		want    captured
	}{
		{
			name:    "watch started",
			event:   notifications.EventWatchStarted,
			payload: notifications.Payload{"dir": "/srv/inbox"},
			want: captured{
				title: "Polyscribe - Watching",
				body:  "Watching /srv/inbox for new recordings",
				tags:  "polyscribe,watch,started",
			},
		},
		{
			name:  "transcription completed",
			event: notifications.EventTranscriptionCompleted,
			payload: notifications.Payload{
				"fileName": "standup.m4a",
				"language": "Chinese",
				"strategy": "default_preferred",
				"fault":    "none",
				"preview":  "我们开始吧",
			},
			want: captured{
				title: "Polyscribe - Transcribed",
				body:  "Transcribed standup.m4a (Chinese) via default_preferred\n我们开始吧",
				tags:  "polyscribe,transcribe,completed",
			},
		},
		{
			name:  "degraded transcription",
			event: notifications.EventTranscriptionCompleted,
			payload: notifications.Payload{
				"fileName": "call.wav",
				"fault":    "engine_unavailable",
			},
			want: captured{
				title: "Polyscribe - Transcribed (degraded)",
				body:  "Transcribed call.wav (unknown)\nFault: engine_unavailable",
				tags:  "polyscribe,transcribe,degraded",
			},
		},
		{
			name:    "failure",
			event:   notifications.EventTranscriptionFailed,
			payload: notifications.Payload{"fileName": "broken.wav", "error": "permission denied"},
			want: captured{
				title:    "Polyscribe - Error",
				body:     "Failed to transcribe broken.wav: permission denied",
				tags:     "polyscribe,error,alert",
				priority: "high",
			},
		},
		{
			name:  "test",
			event: notifications.EventTest,
			want: captured{
				title:    "Polyscribe - Test",
				body:     "Notification system test",
				tags:     "polyscribe,test",
				priority: "low",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, ch := newCaptureServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tt.event, tt.payload); err != nil {
				t.Fatalf("publish: %v", err)
			}
			got := <-ch
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNtfyServiceReportsErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusTooManyRequests)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if err := svc.Publish(context.Background(), notifications.Event("bogus"), nil); err == nil {
		t.Fatal("expected error for unknown event")
	}
}
