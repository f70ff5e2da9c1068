package events_test

import (
	"errors"
	"sync"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dropsentry/internal/events"
)

func TestRecorder_KeepsEmissionOrder(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	rec := &events.Recorder{}
	rec.Emit(events.TraversalStarted{Root: "docs"})
	rec.Emit(events.TraversalComplete{Root: "docs", Records: 1, Outcome: "complete"})

	g.Expect(rec.Events()).To(Equal([]events.Event{
		events.TraversalStarted{Root: "docs"},
		events.TraversalComplete{Root: "docs", Records: 1, Outcome: "complete"},
	}))
}

func TestRecorder_ConcurrentEmit(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	rec := &events.Recorder{}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Emit(events.ReportQueued{Kind: "FILE_UPLOAD", Records: 1})
		}()
	}
	wg.Wait()

	g.Expect(rec.Events()).To(HaveLen(10))
}

func TestMulti_ForwardsToEveryEmitterAndSkipsNil(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	first := &events.Recorder{}
	second := &events.Recorder{}
	emitter := events.Multi(first, nil, second)

	failure := events.DeliveryFailed{Kind: "FILE_UPLOAD", Err: errors.New("closed pipe")}
	emitter.Emit(failure)

	g.Expect(first.Events()).To(ConsistOf(failure))
	g.Expect(second.Events()).To(ConsistOf(failure))
}

func TestDiscard_DropsEvents(t *testing.T) {
	t.Parallel()

	events.Discard.Emit(events.ReportStored{ID: "x"})
}
