package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-order-verify/core"
)

type stubStore struct {
	mu      sync.Mutex
	records map[string]core.VerificationRecord

	findErr   error
	createErr error

	findCalls   int
	createCalls int
}

func newStubStore() *stubStore {
	return &stubStore{records: map[string]core.VerificationRecord{}}
}

func (s *stubStore) FindBySourceOrderID(_ context.Context, sourceOrderID string) (core.VerificationRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return core.VerificationRecord{}, false, s.findErr
	}
	record, found := s.records[sourceOrderID]
	return record, found, nil
}

func (s *stubStore) CreateIfAbsent(_ context.Context, in core.CreateVerificationInput) (core.VerificationRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return core.VerificationRecord{}, false, s.createErr
	}
	if existing, found := s.records[in.SourceOrderID]; found {
		return existing, false, nil
	}
	record := core.VerificationRecord{
		ID:            fmt.Sprintf("rec_%d", len(s.records)+1),
		SourceOrderID: in.SourceOrderID,
		OrderNumber:   in.OrderNumber,
		CustomerName:  in.CustomerName,
		Phone:         in.Phone,
		TotalAmount:   in.TotalAmount,
		Status:        core.VerificationStatusPending,
	}
	s.records[in.SourceOrderID] = record
	return record, true, nil
}

func (s *stubStore) UpdateStatus(_ context.Context, sourceOrderID string, status core.VerificationStatus) (core.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, found := s.records[sourceOrderID]
	if !found {
		return core.VerificationRecord{}, core.ErrVerificationNotFound
	}
	record.Status = status
	s.records[sourceOrderID] = record
	return record, nil
}

func (s *stubStore) PruneTerminal(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, record := range s.records {
		if record.Status.Terminal() && record.UpdatedAt.Before(before) {
			delete(s.records, id)
			pruned++
		}
	}
	return pruned, nil
}

type stubSender struct {
	mu       sync.Mutex
	sendErr  error
	payloads []core.NotificationPayload
}

func (s *stubSender) Send(_ context.Context, payload core.NotificationPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

type stubVerifier struct {
	err error
}

func (v stubVerifier) Verify(context.Context, core.InboundRequest) error {
	return v.err
}

func newTestPipeline(store core.VerificationStore, sender core.NotificationSender) *Pipeline {
	return NewPipeline(stubVerifier{}, store, sender, "91")
}

func optedInOrderBody(id int) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %d,
		"order_number": %d,
		"total_price": "100.00",
		"customer": {"first_name": "Jon", "last_name": "Snow", "phone": "9876543210"},
		"note_attributes": [{"name": "whatsapp_opt_in", "value": "true"}]
	}`, id, id))
}

func processBody(t *testing.T, pipeline *Pipeline, body []byte) core.InboundResult {
	t.Helper()
	result, err := pipeline.Process(context.Background(), core.InboundRequest{Body: body})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return result
}

func assertOutcome(t *testing.T, result core.InboundResult, outcome string) {
	t.Helper()
	if !result.Accepted || result.StatusCode != http.StatusOK {
		t.Fatalf("expected accepted 200 result, got %+v", result)
	}
	if got := result.Metadata["outcome"]; got != outcome {
		t.Fatalf("expected outcome %q, got %v", outcome, got)
	}
}

func TestPipelineRejectsInvalidSignature(t *testing.T) {
	store := newStubStore()
	sender := &stubSender{}
	pipeline := NewPipeline(stubVerifier{err: errors.New("signature mismatch")}, store, sender, "91")

	result, err := pipeline.Process(context.Background(), core.InboundRequest{Body: optedInOrderBody(1)})
	if err == nil {
		t.Fatalf("expected verification error")
	}
	if result.Accepted || result.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected rejected 401 result, got %+v", result)
	}
	if store.createCalls != 0 {
		t.Fatalf("rejected request must not touch the store")
	}
	if len(sender.payloads) != 0 {
		t.Fatalf("rejected request must not dispatch")
	}
}

func TestPipelineRejectsMalformedPayload(t *testing.T) {
	pipeline := newTestPipeline(newStubStore(), &stubSender{})

	result, err := pipeline.Process(context.Background(), core.InboundRequest{Body: []byte("{broken")})
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if result.Accepted || result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected faulted 500 result, got %+v", result)
	}
}

func TestPipelineIgnoresNonOrderEvents(t *testing.T) {
	store := newStubStore()
	pipeline := newTestPipeline(store, &stubSender{})

	result := processBody(t, pipeline, []byte(`{"topic": "products/create"}`))
	assertOutcome(t, result, OutcomeIgnored)
	if store.findCalls != 0 || store.createCalls != 0 {
		t.Fatalf("ignored event must not touch the store")
	}
}

func TestPipelineAcknowledgesOrdersWithoutPhone(t *testing.T) {
	store := newStubStore()
	pipeline := newTestPipeline(store, &stubSender{})

	result := processBody(t, pipeline, []byte(`{"id": 5, "order_number": 5}`))
	assertOutcome(t, result, OutcomeNoPhone)
	if store.createCalls != 0 {
		t.Fatalf("no-phone order must not create a record")
	}
}

func TestPipelineCreatesRecordAndNotifies(t *testing.T) {
	store := newStubStore()
	sender := &stubSender{}
	pipeline := newTestPipeline(store, sender)

	result := processBody(t, pipeline, optedInOrderBody(10))
	assertOutcome(t, result, OutcomeNotified)

	record, found := store.records["10"]
	if !found {
		t.Fatalf("expected record for order 10")
	}
	if record.Status != core.VerificationStatusPending {
		t.Fatalf("expected PENDING record, got %s", record.Status)
	}
	if record.Phone != "+919876543210" {
		t.Fatalf("expected normalized phone, got %q", record.Phone)
	}

	if len(sender.payloads) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(sender.payloads))
	}
	payload := sender.payloads[0]
	if payload.Phone != "+919876543210" || payload.CustomerFirstName != "Jon" || payload.OrderID != "10" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestPipelineDedupesRedelivery(t *testing.T) {
	store := newStubStore()
	sender := &stubSender{}
	pipeline := newTestPipeline(store, sender)

	first := processBody(t, pipeline, optedInOrderBody(11))
	assertOutcome(t, first, OutcomeNotified)

	second := processBody(t, pipeline, optedInOrderBody(11))
	assertOutcome(t, second, OutcomeDeduped)

	if store.createCalls != 1 {
		t.Fatalf("redelivery must not attempt a second insert, got %d", store.createCalls)
	}
	if len(sender.payloads) != 1 {
		t.Fatalf("redelivery must not re-notify, got %d dispatches", len(sender.payloads))
	}
}

func TestPipelineTreatsLostInsertRaceAsDedup(t *testing.T) {
	store := newStubStore()
	sender := &stubSender{}
	pipeline := newTestPipeline(store, sender)

	// Simulate a racing redelivery: the record lands between the dedup
	// lookup and the insert, so the lookup misses but the insert collides.
	store.records["12"] = core.VerificationRecord{SourceOrderID: "12", Status: core.VerificationStatusPending}
	pipeline.Store = &racingStore{stubStore: store}

	result := processBody(t, pipeline, optedInOrderBody(12))
	assertOutcome(t, result, OutcomeDeduped)
	if len(sender.payloads) != 0 {
		t.Fatalf("race loser must not notify")
	}
}

// racingStore reports a miss on lookup so the pipeline reaches the insert,
// which then collides with the pre-seeded record.
type racingStore struct {
	*stubStore
}

func (s *racingStore) FindBySourceOrderID(context.Context, string) (core.VerificationRecord, bool, error) {
	return core.VerificationRecord{}, false, nil
}

func TestPipelineSkipsDispatchWithoutOptIn(t *testing.T) {
	store := newStubStore()
	sender := &stubSender{}
	pipeline := newTestPipeline(store, sender)

	result := processBody(t, pipeline, []byte(`{
		"id": 13,
		"order_number": 13,
		"customer": {"phone": "9876543210"}
	}`))
	assertOutcome(t, result, OutcomeOptedOut)

	if _, found := store.records["13"]; !found {
		t.Fatalf("opted-out order must still be recorded")
	}
	if len(sender.payloads) != 0 {
		t.Fatalf("opted-out order must not dispatch")
	}
}

func TestPipelineIsolatesDispatchFailure(t *testing.T) {
	store := newStubStore()
	sender := &stubSender{sendErr: errors.New("bridge timeout")}
	pipeline := newTestPipeline(store, sender)

	result := processBody(t, pipeline, optedInOrderBody(14))
	assertOutcome(t, result, OutcomeNotifyFailed)

	if _, found := store.records["14"]; !found {
		t.Fatalf("dispatch failure must not roll back the record")
	}
}

func TestPipelineSurfacesPersistenceFailures(t *testing.T) {
	store := newStubStore()
	store.findErr = errors.New("connection refused")
	pipeline := newTestPipeline(store, &stubSender{})

	result, err := pipeline.Process(context.Background(), core.InboundRequest{Body: optedInOrderBody(15)})
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	if result.Accepted || result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected faulted 500 result, got %+v", result)
	}

	store.findErr = nil
	store.createErr = errors.New("disk full")
	result, err = pipeline.Process(context.Background(), core.InboundRequest{Body: optedInOrderBody(16)})
	if err == nil {
		t.Fatalf("expected create error")
	}
	if result.Accepted || result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected faulted 500 result, got %+v", result)
	}
}

func TestPipelineRunsWithoutVerifierWhenDisabled(t *testing.T) {
	store := newStubStore()
	pipeline := NewPipeline(nil, store, &stubSender{}, "91")

	result := processBody(t, pipeline, optedInOrderBody(17))
	assertOutcome(t, result, OutcomeNotified)
}
