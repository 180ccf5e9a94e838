package progress

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestStepLabels(t *testing.T) {
	cases := map[int]string{
		1: "Gathering Context",
		2: "Planning",
		3: "Finding Resources",
		4: "Building Curriculum",
		9: "Step 9",
	}
	for step, want := range cases {
		if got := StepLabel(step); got != want {
			t.Fatalf("label for step %d: got %q want %q", step, got, want)
		}
	}
}

func TestChannelIsScopedPerRequest(t *testing.T) {
	if Channel("r1") == Channel("r2") {
		t.Fatalf("channels must be distinct per request id")
	}
}

func TestPublishWithoutRedisIsANoOp(t *testing.T) {
	b := NewBus("", zap.NewNop().Sugar())
	// Must not panic or block; progress publishing is best-effort.
	b.Publish(context.Background(), "r1", Event{Step: 1, TotalSteps: TotalSteps})
}

func TestSubscribeWithoutRedisFails(t *testing.T) {
	b := NewBus("", zap.NewNop().Sugar())
	if _, _, err := b.Subscribe(context.Background(), "r1"); err == nil {
		t.Fatalf("expected error subscribing without a configured bus")
	}
}
