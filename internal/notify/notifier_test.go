package notify

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jihopark/mathshorts/internal/approval"
	"github.com/jihopark/mathshorts/internal/content"
)

type stubChannel struct {
	sent int
	err  error
}

func (s *stubChannel) NotifySubmission(ctx context.Context, ticket approval.Ticket) error {
	s.sent++
	return s.err
}

func testTicket() approval.Ticket {
	createdAt := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	return approval.Ticket{
		ID:          "7",
		Status:      approval.StatusPending,
		SubmittedAt: createdAt,
		Deadline:    createdAt.Add(2 * time.Hour),
		Bundle: content.Bundle{
			ID:       "bundle-1",
			TimeSlot: "morning",
			Request:  content.ProblemRequest{Grade: 1, Topic: "일차방정식", TimeSlot: "morning", Region: "asia"},
			Problem: content.Problem{
				StatementText: "지민이가 피자를 3개 주문했습니다. 배송비 5원을 포함해서 총 20원을 지불했다면, 피자 한 개의 가격은?",
				SolutionSteps: []string{"3x = 15"},
				FinalAnswer:   "x = 5",
			},
			Narrations: []content.NarrationResult{
				{LanguageTag: "ko", Succeeded: true},
				{LanguageTag: "en", Succeeded: false},
			},
			CreatedAt: createdAt,
		},
	}
}

func TestRenderSubmission(t *testing.T) {
	message := RenderSubmission(testTicket())

	for _, want := range []string{"티켓: 7", "시간대: morning", "일차방정식", "1/2 성공", "approval approve 7", "approval reject 7"} {
		if !strings.Contains(message, want) {
			t.Fatalf("message missing %q:\n%s", want, message)
		}
	}
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	broken := &stubChannel{err: fmt.Errorf("send failed")}
	working := &stubChannel{}

	multi := NewMulti(broken, working)
	err := multi.NotifySubmission(context.Background(), testTicket())

	if err == nil {
		t.Fatal("expected joined error from failing channel")
	}
	if broken.sent != 1 || working.sent != 1 {
		t.Fatalf("every channel must be attempted: broken=%d working=%d", broken.sent, working.sent)
	}
}

func TestConsole_NeverFails(t *testing.T) {
	if err := (Console{}).NotifySubmission(context.Background(), testTicket()); err != nil {
		t.Fatalf("console notifier error: %v", err)
	}
}
