package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingService captures processed turns for orchestrator tests.
type recordingService struct {
	mu      sync.Mutex
	turns   []string
	userIDs []string
	reply   string
	err     error
}

func (s *recordingService) ProcessTurn(_ context.Context, conversationID, userID, message string) (*Response, error) {
	s.mu.Lock()
	s.turns = append(s.turns, conversationID+":"+message)
	s.userIDs = append(s.userIDs, userID)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &Response{ConversationID: conversationID, Reply: s.reply}, nil
}

func newTestOrchestrator(t *testing.T, service Service) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(
		service,
		NewMemoryQueue(8),
		nil,
		WithWorkerCount(1),
		WithReceiveBatchSize(1),
		WithReceiveWaitSeconds(0),
	)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })
	return o
}

func TestOrchestratorProcessTurnRoundTrip(t *testing.T) {
	service := &recordingService{reply: "aquí tienes 3 opciones"}
	o := newTestOrchestrator(t, service)

	resp, err := o.ProcessTurn(context.Background(), "conv-1", "user-9", "busco un depa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ConversationID != "conv-1" || resp.Reply != "aquí tienes 3 opciones" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if len(service.turns) != 1 || service.turns[0] != "conv-1:busco un depa" {
		t.Fatalf("unexpected processed turns: %v", service.turns)
	}
	// The user ID rides the queue payload to the downstream engine.
	if service.userIDs[0] != "user-9" {
		t.Fatalf("expected user ID forwarded through the queue, got %q", service.userIDs[0])
	}
}

func TestOrchestratorPropagatesProcessorError(t *testing.T) {
	wantErr := errors.New("engine down")
	o := newTestOrchestrator(t, &recordingService{err: wantErr})

	_, err := o.ProcessTurn(context.Background(), "conv-1", "", "hola")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected processor error, got %v", err)
	}
}

func TestOrchestratorContextCancellation(t *testing.T) {
	block := make(chan struct{})
	o := newTestOrchestrator(t, &blockingService{block: block})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := o.ProcessTurn(ctx, "conv-1", "", "hola"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestOrchestratorSerializesTurnsPerConversation(t *testing.T) {
	service := &recordingService{reply: "ok"}
	o := NewOrchestrator(
		service,
		NewMemoryQueue(8),
		nil,
		WithWorkerCount(4),
		WithReceiveBatchSize(1),
		WithReceiveWaitSeconds(0),
	)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.ProcessTurn(context.Background(), "conv-1", "", "mensaje"); err != nil {
				t.Errorf("process turn: %v", err)
			}
		}()
	}
	wg.Wait()

	service.mu.Lock()
	defer service.mu.Unlock()
	if len(service.turns) != 8 {
		t.Fatalf("expected 8 processed turns, got %d", len(service.turns))
	}
}

type blockingService struct {
	block chan struct{}
}

func (b *blockingService) ProcessTurn(ctx context.Context, conversationID, _, _ string) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.block:
		return &Response{ConversationID: conversationID, Reply: "done"}, nil
	}
}
