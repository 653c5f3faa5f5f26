package publish

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jihopark/mathshorts/internal/content"
)

func testBundle() content.Bundle {
	return content.Bundle{
		ID:       "bundle-1",
		TimeSlot: "morning",
		Request:  content.ProblemRequest{Grade: 1, Topic: "일차방정식", TimeSlot: "morning", Region: "asia"},
		Problem: content.Problem{
			StatementText: "지민이가 피자를 3개 주문했습니다.",
			EquationText:  "3x + 5 = 20",
			SolutionSteps: []string{"3x = 15", "x = 5"},
			FinalAnswer:   "x = 5",
		},
		Narrations: []content.NarrationResult{
			{LanguageTag: "ko", ScriptText: "안녕하세요!", AudioRef: "/tmp/voice_ko.mp3", Succeeded: true},
		},
		CreatedAt: time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC),
	}
}

func TestBuildTitle(t *testing.T) {
	title := BuildTitle(testBundle(), "ko")

	for _, want := range []string{"한국어", "일차방정식", "2026-03-02", "morning"} {
		if !strings.Contains(title, want) {
			t.Fatalf("title missing %q: %s", want, title)
		}
	}
}

func TestBuildTitle_UnknownLanguageUsesTag(t *testing.T) {
	title := BuildTitle(testBundle(), "fr")
	if !strings.Contains(title, "[fr]") {
		t.Fatalf("expected raw tag in title: %s", title)
	}
}

func TestBuildDescription(t *testing.T) {
	desc := BuildDescription(testBundle(), "ko")

	if !strings.Contains(desc, "3x + 5 = 20") {
		t.Fatalf("description missing equation: %s", desc)
	}
	if !strings.Contains(desc, "안녕하세요!") {
		t.Fatalf("description missing narration script: %s", desc)
	}
}

func TestBuildTags(t *testing.T) {
	tags := BuildTags(testBundle(), "ko")

	want := map[string]bool{"math": true, "일차방정식": true, "grade1": true, "ko": true}
	for _, tag := range tags {
		delete(want, tag)
	}
	if len(want) != 0 {
		t.Fatalf("missing tags: %v (got %v)", want, tags)
	}
}

func TestDiscard_FailsSoft(t *testing.T) {
	result := Discard{}.Publish(context.Background(), testBundle(), "ko")

	if result.Succeeded {
		t.Fatal("discard sink must report failure")
	}
	if result.LanguageTag != "ko" {
		t.Fatalf("unexpected language tag: %s", result.LanguageTag)
	}
	if result.ErrorDetail == "" {
		t.Fatal("expected error detail")
	}
}
