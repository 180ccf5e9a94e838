package progress

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const TotalSteps = 4

const (
	StepGatherContext  = 1
	StepPlan           = 2
	StepResourceSearch = 3
	StepBuild          = 4
)

// Event is the fixed-shape payload broadcast to progress subscribers. It is
// transient: late subscribers never see earlier steps.
type Event struct {
	Step       int `json:"step"`
	TotalSteps int `json:"total_steps"`
}

var stepLabels = map[int]string{
	1: "Gathering Context",
	2: "Planning",
	3: "Finding Resources",
	4: "Building Curriculum",
}

func StepLabel(step int) string {
	if l, ok := stepLabels[step]; ok {
		return l
	}
	return fmt.Sprintf("Step %d", step)
}

func Channel(requestID string) string {
	return "curriculum:progress:" + requestID
}

// Bus broadcasts per-request progress events over redis pub/sub. Publishing
// is best-effort: a failure is logged and swallowed so progress reporting can
// never fail a pipeline run.
type Bus struct {
	rdb *goredis.Client
	log *zap.SugaredLogger
}

func NewBus(addr string, log *zap.SugaredLogger) *Bus {
	if addr == "" {
		return &Bus{rdb: nil, log: log}
	}
	return &Bus{
		rdb: goredis.NewClient(&goredis.Options{Addr: addr}),
		log: log,
	}
}

func (b *Bus) Publish(ctx context.Context, requestID string, ev Event) {
	if b == nil || b.rdb == nil {
		return
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		b.log.Warnw("encode progress event", "request_id", requestID, "error", err)
		return
	}
	if err := b.rdb.Publish(ctx, Channel(requestID), raw).Err(); err != nil {
		b.log.Warnw("publish progress event", "request_id", requestID, "step", ev.Step, "error", err)
	}
}

// Subscribe returns a channel of events for one request plus a close func.
// Delivery is per-connection ordered; there is no replay for late joiners.
func (b *Bus) Subscribe(ctx context.Context, requestID string) (<-chan Event, func(), error) {
	if b == nil || b.rdb == nil {
		return nil, nil, fmt.Errorf("progress bus not configured")
	}
	sub := b.rdb.Subscribe(ctx, Channel(requestID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe progress channel: %w", err)
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warnw("bad progress payload", "request_id", requestID, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	closeFn := func() { _ = sub.Close() }
	return out, closeFn, nil
}

func (b *Bus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
