package bus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// applicationEvent mirrors the payload the API publishes when an application
// is accepted for async processing.
type applicationEvent struct {
	ApplicationID string                     `json:"applicationId"`
	TenantID      string                     `json:"tenantId"`
	ApplicantID   string                     `json:"applicantId"`
	Features      domain.ApplicationFeatures `json:"features"`
}

func TestChannelBusApplicationFlow(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()
	lenderID := "lender-acme"

	t.Run("DeliverApplicationReceived", func(t *testing.T) {
		var received atomic.Bool
		var receivedMsg *domain.Message

		var wg sync.WaitGroup
		wg.Add(1)

		_, err := bus.Subscribe(ctx, lenderID, domain.TopicApplicationReceived, func(ctx context.Context, msg *domain.Message) error {
			receivedMsg = msg
			received.Store(true)
			wg.Done()
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		// Allow subscription to be active
		time.Sleep(10 * time.Millisecond)

		payload, _ := json.Marshal(applicationEvent{
			ApplicationID: "app-0042",
			TenantID:      lenderID,
			ApplicantID:   "applicant-7",
			Features: domain.ApplicationFeatures{
				domain.FeatureMonthlyIncome: 4200.0,
				domain.FeatureCreditScore:   685.0,
				domain.FeatureLoanAmount:    9000.0,
			},
		})

		err = bus.Publish(ctx, lenderID, domain.TopicApplicationReceived, payload)
		if err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		// Wait for message
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for application event")
		}

		if !received.Load() {
			t.Error("application event not received")
		}

		var event applicationEvent
		if err := json.Unmarshal(receivedMsg.Payload, &event); err != nil {
			t.Fatalf("failed to parse application event: %v", err)
		}
		if event.ApplicationID != "app-0042" {
			t.Errorf("expected applicationId 'app-0042', got '%s'", event.ApplicationID)
		}
		if got := event.Features.Float(domain.FeatureCreditScore, 0); got != 685.0 {
			t.Errorf("expected credit score 685, got %v", got)
		}
		if receivedMsg.TenantID != lenderID {
			t.Errorf("expected tenantID '%s', got '%s'", lenderID, receivedMsg.TenantID)
		}
		if receivedMsg.Topic != domain.TopicApplicationReceived {
			t.Errorf("expected topic '%s', got '%s'", domain.TopicApplicationReceived, receivedMsg.Topic)
		}
	})

	t.Run("DecisionsAreTenantIsolated", func(t *testing.T) {
		lender1 := "lender-acme"
		lender2 := "lender-globex"

		var received1 atomic.Int32
		var received2 atomic.Int32

		bus.Subscribe(ctx, lender1, domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
			received1.Add(1)
			return nil
		})

		bus.Subscribe(ctx, lender2, domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
			received2.Add(1)
			return nil
		})

		time.Sleep(10 * time.Millisecond)

		// Only lender1's subscribers may see lender1's decisions
		decision, _ := json.Marshal(domain.AnalysisResult{
			ApplicationID: "app-0042",
			TenantID:      lender1,
			Decision:      domain.DecisionApproved,
		})
		bus.Publish(ctx, lender1, domain.TopicDecision, decision)
		time.Sleep(50 * time.Millisecond)

		if received1.Load() != 1 {
			t.Errorf("lender1 should receive 1 decision, got %d", received1.Load())
		}
		if received2.Load() != 0 {
			t.Errorf("lender2 should receive 0 decisions, got %d", received2.Load())
		}
	})

	t.Run("FraudBlockFanout", func(t *testing.T) {
		var count1, count2 atomic.Int32
		var blocked atomic.Value

		bus.Subscribe(ctx, lenderID, domain.TopicFraudBlocked, func(ctx context.Context, msg *domain.Message) error {
			var result domain.AnalysisResult
			if err := json.Unmarshal(msg.Payload, &result); err == nil {
				blocked.Store(result)
			}
			count1.Add(1)
			return nil
		})

		bus.Subscribe(ctx, lenderID, domain.TopicFraudBlocked, func(ctx context.Context, msg *domain.Message) error {
			count2.Add(1)
			return nil
		})

		time.Sleep(10 * time.Millisecond)

		payload, _ := json.Marshal(domain.AnalysisResult{
			ApplicationID: "app-0099",
			TenantID:      lenderID,
			Decision:      domain.DecisionBlockedFraud,
			Fraud: domain.FraudAssessment{
				Decision:   domain.FraudBlock,
				FraudScore: 0.6,
				Flags:      []domain.FraudFlag{{Name: "explicit_fraud_label", Severity: domain.SeverityHard}},
			},
		})
		bus.Publish(ctx, lenderID, domain.TopicFraudBlocked, payload)
		time.Sleep(50 * time.Millisecond)

		if count1.Load() != 1 || count2.Load() != 1 {
			t.Errorf("expected both subscribers to receive the block, got %d and %d", count1.Load(), count2.Load())
		}

		result, ok := blocked.Load().(domain.AnalysisResult)
		if !ok {
			t.Fatal("fraud block payload was not delivered")
		}
		if result.Decision != domain.DecisionBlockedFraud {
			t.Errorf("expected decision %s, got %s", domain.DecisionBlockedFraud, result.Decision)
		}
		if result.Fraud.FraudScore != 0.6 {
			t.Errorf("expected fraud score 0.6, got %v", result.Fraud.FraudScore)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		err := bus.Publish(ctx, "", domain.TopicDecision, []byte("{}"))
		if err == nil {
			t.Error("expected error for empty tenantID")
		}

		_, err = bus.Subscribe(ctx, "", domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
			return nil
		})
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32

		sub, _ := bus.Subscribe(ctx, lenderID, domain.TopicManualReview, func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			return nil
		})

		time.Sleep(10 * time.Millisecond)

		bus.Publish(ctx, lenderID, domain.TopicManualReview, []byte(`{"applicationId":"app-0100"}`))
		time.Sleep(50 * time.Millisecond)

		if count.Load() != 1 {
			t.Errorf("expected 1 review event before unsubscribe, got %d", count.Load())
		}

		sub.Unsubscribe()
		time.Sleep(10 * time.Millisecond)

		bus.Publish(ctx, lenderID, domain.TopicManualReview, []byte(`{"applicationId":"app-0101"}`))
		time.Sleep(50 * time.Millisecond)

		// Should still be 1 after unsubscribe
		if count.Load() != 1 {
			t.Errorf("expected 1 review event after unsubscribe, got %d", count.Load())
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := bus.Ping(ctx); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, _ := bus.Subscribe(ctx, lenderID, domain.TopicManualReview, func(ctx context.Context, msg *domain.Message) error {
			return nil
		})

		if sub.Topic() != domain.TopicManualReview {
			t.Errorf("expected topic '%s', got '%s'", domain.TopicManualReview, sub.Topic())
		}
	})
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)

	ctx := context.Background()
	lenderID := "lender-acme"

	bus.Subscribe(ctx, lenderID, domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	// Operations should fail after close
	if err := bus.Publish(ctx, lenderID, domain.TopicDecision, []byte("{}")); err == nil {
		t.Error("expected error after close")
	}

	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}
}

func TestNewBus(t *testing.T) {
	t.Run("ChannelType", func(t *testing.T) {
		cfg := domain.EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 50,
		}

		bus, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer bus.Close()

		_, ok := bus.(*ChannelBus)
		if !ok {
			t.Error("expected ChannelBus for channel type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.EventBusConfig{
			Type: "kafka",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestChannelBusDecisionBurst(t *testing.T) {
	bus := NewChannelBus(1000)
	defer bus.Close()

	ctx := context.Background()
	lenderID := "lender-volume"

	var received atomic.Int32
	const applicationCount = 100

	var wg sync.WaitGroup
	wg.Add(applicationCount)

	bus.Subscribe(ctx, lenderID, domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		wg.Done()
		return nil
	})

	time.Sleep(10 * time.Millisecond)

	// A batch upload produces a burst of decisions
	for i := 0; i < applicationCount; i++ {
		payload, _ := json.Marshal(domain.AnalysisResult{
			TenantID: lenderID,
			Decision: domain.DecisionApproved,
		})
		bus.Publish(ctx, lenderID, domain.TopicDecision, payload)
	}

	// Wait for all decisions
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Load() != applicationCount {
			t.Errorf("expected %d decisions, got %d", applicationCount, received.Load())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout: received %d/%d decisions", received.Load(), applicationCount)
	}
}
