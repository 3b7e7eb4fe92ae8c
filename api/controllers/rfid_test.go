package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	"github.com/smartkart-ai/smartkart-backend/internal/recentscans"
	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
)

type testScanEngine struct {
	result  *engine.ScanResult
	callErr error
	calls   []engine.TagScanEvent
}

func (s *testScanEngine) OnTagScan(_ context.Context, evt engine.TagScanEvent) (*engine.ScanResult, error) {
	s.calls = append(s.calls, evt)
	if s.callErr != nil {
		return nil, s.callErr
	}
	if s.result != nil {
		return s.result, nil
	}
	return &engine.ScanResult{Outcome: engine.OutcomeAdded, Cart: &models.Cart{CartID: evt.CartID}}, nil
}

type testWeightEngine struct {
	state   *engine.WeightState
	callErr error
}

func (s *testWeightEngine) OnWeightUpdate(_ context.Context, evt engine.WeightUpdateEvent) (*engine.WeightState, error) {
	if s.callErr != nil {
		return nil, s.callErr
	}
	if s.state != nil {
		return s.state, nil
	}
	return &engine.WeightState{CartID: evt.CartID, Measured: evt.MeasuredWeight}, nil
}

type testFeed struct {
	entries   []recentscans.Entry
	total     int64
	recordErr error
	recentErr error
}

func (f *testFeed) Record(_ context.Context, entry recentscans.Entry) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.entries = append([]recentscans.Entry{entry}, f.entries...)
	return nil
}

func (f *testFeed) Recent(context.Context) ([]recentscans.Entry, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.entries, nil
}

func (f *testFeed) TotalScans(context.Context) (int64, error) {
	if f.recentErr != nil {
		return 0, f.recentErr
	}
	return f.total, nil
}

func TestRFIDTestTagAdded(t *testing.T) {
	eng := &testScanEngine{}
	feed := &testFeed{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfid/test-tag", strings.NewReader(`{"cartId":"1234","tagId":"tag-milk"}`))
	resp := httptest.NewRecorder()
	RFIDTestTag(eng, feed, discardLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			Outcome string       `json:"outcome"`
			Cart    *models.Cart `json:"cart"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Outcome != "added" || envelope.Data.Cart == nil {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
	if len(feed.entries) != 1 || feed.entries[0].EPC != "tag-milk" {
		t.Fatalf("scan not recorded in feed: %+v", feed.entries)
	}
}

func TestRFIDTestTagWeightMismatchIs409(t *testing.T) {
	eng := &testScanEngine{result: &engine.ScanResult{
		Outcome:    engine.OutcomeWeightMismatch,
		Measured:   0.4,
		Expected:   1.5,
		Difference: 1.1,
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfid/test-tag", strings.NewReader(`{"cartId":"1234","tagId":"tag-milk"}`))
	resp := httptest.NewRecorder()
	RFIDTestTag(eng, &testFeed{}, discardLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeWeightMismatch) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Details["expectedWeight"] != 1.5 {
		t.Fatalf("expected weight details, got %+v", envelope.Error.Details)
	}
}

func TestRFIDTestTagUnknownTagIs404(t *testing.T) {
	eng := &testScanEngine{result: &engine.ScanResult{Outcome: engine.OutcomeUnknownTag}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfid/test-tag", strings.NewReader(`{"cartId":"1234","tagId":"mystery"}`))
	resp := httptest.NewRecorder()
	RFIDTestTag(eng, &testFeed{}, discardLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestRFIDTestTagSuppressedIsPlainOutcome(t *testing.T) {
	eng := &testScanEngine{result: &engine.ScanResult{Outcome: engine.OutcomeSuppressed}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfid/test-tag", strings.NewReader(`{"cartId":"1234","tagId":"tag-milk"}`))
	resp := httptest.NewRecorder()
	RFIDTestTag(eng, &testFeed{}, discardLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["outcome"] != "suppressed" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
	if _, ok := envelope.Data["cart"]; ok {
		t.Fatal("suppressed scan must not include cart state")
	}
}

func TestRFIDTestTagFeedFailureDoesNotBlockScan(t *testing.T) {
	eng := &testScanEngine{}
	feed := &testFeed{recordErr: errors.New("redis down")}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfid/test-tag", strings.NewReader(`{"cartId":"1234","tagId":"tag-milk"}`))
	resp := httptest.NewRecorder()
	RFIDTestTag(eng, feed, discardLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("feed failure must not fail the scan, got %d", resp.Code)
	}
	if len(eng.calls) != 1 {
		t.Fatal("engine must still run")
	}
}

func TestRFIDWeightSuccess(t *testing.T) {
	eng := &testWeightEngine{state: &engine.WeightState{CartID: "1234", Measured: 2.0, Expected: 1.0, Discrepancy: true}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfid/weight", strings.NewReader(`{"cartId":"1234","measuredWeight":2.0}`))
	resp := httptest.NewRecorder()
	RFIDWeight(eng, discardLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data engine.WeightState `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data.Discrepancy {
		t.Fatalf("expected discrepancy flag, got %+v", envelope.Data)
	}
}

func TestRFIDWeightRejectsNegative(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfid/weight", strings.NewReader(`{"cartId":"1234","measuredWeight":-1}`))
	resp := httptest.NewRecorder()
	RFIDWeight(&testWeightEngine{}, discardLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRFIDWeightUnknownCartIs404(t *testing.T) {
	eng := &testWeightEngine{callErr: pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfid/weight", strings.NewReader(`{"cartId":"ghost","measuredWeight":1}`))
	resp := httptest.NewRecorder()
	RFIDWeight(eng, discardLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestRFIDRecentTagsReturnsFeed(t *testing.T) {
	feed := &testFeed{entries: []recentscans.Entry{{EPC: "tag-a", CartID: "1234"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rfid/recent-tags", nil)
	resp := httptest.NewRecorder()
	RFIDRecentTags(feed, discardLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data []recentscans.Entry `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].EPC != "tag-a" {
		t.Fatalf("unexpected feed %+v", envelope.Data)
	}
}

func TestRFIDStatusReportsScanTotals(t *testing.T) {
	feed := &testFeed{entries: []recentscans.Entry{{EPC: "tag-a", CartID: "1234"}}, total: 42}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rfid/status", nil)
	resp := httptest.NewRecorder()
	RFIDStatus(feed, discardLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Status      string `json:"status"`
			RecentReads int    `json:"recentReads"`
			TotalScans  int64  `json:"totalScans"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != "listening" || envelope.Data.RecentReads != 1 || envelope.Data.TotalScans != 42 {
		t.Fatalf("unexpected status payload %+v", envelope.Data)
	}
}

func TestRFIDStatusReportsFeedOutage(t *testing.T) {
	feed := &testFeed{recentErr: errors.New("redis down")}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rfid/status", nil)
	resp := httptest.NewRecorder()
	RFIDStatus(feed, discardLogger())(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
