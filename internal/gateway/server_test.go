package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jihopark/mathshorts/internal/approval"
	"github.com/jihopark/mathshorts/internal/content"
	"github.com/jihopark/mathshorts/internal/version"
)

type mockApprovals struct {
	pending     []approval.Ticket
	resolved    map[string]approval.Ticket
	lastID      string
	lastDecide  approval.Decision
	lastBy      string
	lastComment string
}

func (m *mockApprovals) ListPending() ([]approval.Ticket, error) {
	return m.pending, nil
}

func (m *mockApprovals) Get(id string) (approval.Ticket, error) {
	for _, t := range m.pending {
		if t.ID == id {
			return t, nil
		}
	}
	if t, ok := m.resolved[id]; ok {
		return t, nil
	}
	return approval.Ticket{}, approval.ErrUnknownTicket
}

func (m *mockApprovals) Resolve(id string, decision approval.Decision, resolvedBy, feedback string) (approval.Ticket, error) {
	m.lastID = id
	m.lastDecide = decision
	m.lastBy = resolvedBy
	m.lastComment = feedback

	if _, ok := m.resolved[id]; ok {
		return approval.Ticket{}, approval.ErrAlreadyResolved
	}
	for _, t := range m.pending {
		if t.ID == id {
			t.Status = approval.StatusApproved
			if decision == approval.DecisionReject {
				t.Status = approval.StatusRejected
			}
			t.ResolvedAt = time.Now()
			t.ResolvedBy = resolvedBy
			t.ResolutionFeedback = feedback
			return t, nil
		}
	}
	return approval.Ticket{}, approval.ErrUnknownTicket
}

type mockRuns struct {
	runs []content.RunResult
}

func (m *mockRuns) List() ([]content.RunResult, error) {
	return m.runs, nil
}

func pendingTicket(id string) approval.Ticket {
	return approval.Ticket{
		ID: id,
		Bundle: content.Bundle{
			ID:       "bundle-" + id,
			TimeSlot: "morning",
			Request:  content.ProblemRequest{Grade: 1, Topic: "일차방정식"},
			Problem:  content.Problem{StatementText: "지민이가 피자를 주문했습니다."},
		},
		Status:      approval.StatusPending,
		SubmittedAt: time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC),
		Deadline:    time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func decodeJSON(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler("", &mockApprovals{}, &mockRuns{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}
	if body["request_id"] == "" {
		t.Fatal("expected non-empty request_id")
	}
}

func TestVersionEndpoint(t *testing.T) {
	h := NewHandler("", &mockApprovals{}, &mockRuns{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["version"] != version.Version {
		t.Fatalf("expected version=%s, got %v", version.Version, body["version"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := NewHandler("", &mockApprovals{}, &mockRuns{}, func() map[string]any {
		return map[string]any{"scheduler_running": true}
	})
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["scheduler_running"] != true {
		t.Fatalf("expected scheduler_running=true, got %v", body["scheduler_running"])
	}
}

func TestListApprovals(t *testing.T) {
	approvals := &mockApprovals{pending: []approval.Ticket{pendingTicket("t1"), pendingTicket("t2")}}
	h := NewHandler("", approvals, &mockRuns{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/approvals", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	pending, ok := body["pending"].([]any)
	if !ok || len(pending) != 2 {
		t.Fatalf("expected 2 pending tickets, got %v", body["pending"])
	}
	first := pending[0].(map[string]any)
	if first["preview"] == "" {
		t.Fatal("expected a preview in the ticket view")
	}
	if _, hasBundle := first["bundle"]; hasBundle {
		t.Fatal("full bundle must not cross the API")
	}
}

func TestApprovalsUnauthorized(t *testing.T) {
	h := NewHandler("secret-token", &mockApprovals{}, &mockRuns{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/approvals", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["code"] != "unauthorized" {
		t.Fatalf("expected code=unauthorized, got %v", body["code"])
	}
}

func TestApproveTicket(t *testing.T) {
	approvals := &mockApprovals{pending: []approval.Ticket{pendingTicket("t1")}}
	h := NewHandler("secret-token", approvals, &mockRuns{}, nil)

	payload := bytes.NewBufferString(`{"resolved_by":"reviewer","feedback":"좋습니다"}`)
	req := httptest.NewRequest(http.MethodPost, "/approvals/t1/approve", payload)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if approvals.lastID != "t1" || approvals.lastDecide != approval.DecisionApprove {
		t.Fatalf("unexpected resolve call: %s %s", approvals.lastID, approvals.lastDecide)
	}
	if approvals.lastBy != "reviewer" || approvals.lastComment != "좋습니다" {
		t.Fatalf("resolver fields not forwarded: %s %q", approvals.lastBy, approvals.lastComment)
	}

	body := decodeJSON(t, rr.Body)
	ticket := body["ticket"].(map[string]any)
	if ticket["status"] != "approved" {
		t.Fatalf("expected approved, got %v", ticket["status"])
	}
}

func TestRejectTicket_EmptyBodyDefaults(t *testing.T) {
	approvals := &mockApprovals{pending: []approval.Ticket{pendingTicket("t1")}}
	h := NewHandler("", approvals, &mockRuns{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/approvals/t1/reject", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if approvals.lastDecide != approval.DecisionReject {
		t.Fatalf("expected reject, got %s", approvals.lastDecide)
	}
	if approvals.lastBy != "api" {
		t.Fatalf("expected default resolver, got %s", approvals.lastBy)
	}
}

func TestResolveUnknownTicket(t *testing.T) {
	h := NewHandler("", &mockApprovals{}, &mockRuns{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/approvals/nope/approve", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["code"] != "not_found" {
		t.Fatalf("expected code=not_found, got %v", body["code"])
	}
}

func TestResolveTwiceConflicts(t *testing.T) {
	approvals := &mockApprovals{
		resolved: map[string]approval.Ticket{"t1": pendingTicket("t1")},
	}
	h := NewHandler("", approvals, &mockRuns{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/approvals/t1/approve", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["code"] != "conflict" {
		t.Fatalf("expected code=conflict, got %v", body["code"])
	}
}

func TestGetTicket(t *testing.T) {
	approvals := &mockApprovals{pending: []approval.Ticket{pendingTicket("t1")}}
	h := NewHandler("", approvals, &mockRuns{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/approvals/t1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	ticket := body["ticket"].(map[string]any)
	if ticket["id"] != "t1" {
		t.Fatalf("unexpected ticket: %v", ticket)
	}
}

func TestListRuns(t *testing.T) {
	runs := &mockRuns{runs: []content.RunResult{
		{TimeSlot: "morning", BundleID: "b1", OverallStatus: content.RunCompleted},
	}}
	h := NewHandler("", &mockApprovals{}, runs, nil)
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	list, ok := body["runs"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("expected 1 run, got %v", body["runs"])
	}
}
