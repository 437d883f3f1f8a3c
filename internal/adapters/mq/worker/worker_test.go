package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/engage/internal/adapters/mq/queue"
	"github.com/okian/engage/internal/adapters/mq/worker"
	"github.com/okian/engage/internal/domain/model"
	logging "github.com/okian/engage/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockAwarder struct {
	mu       sync.Mutex
	granted  map[string][]string
	failures map[string]int
	calls    int
}

func newMockAwarder() *mockAwarder {
	return &mockAwarder{granted: map[string][]string{}, failures: map[string]int{}}
}

func (m *mockAwarder) ApplyAward(_ context.Context, job queue.Job) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures[job.MemberID] > 0 {
		m.failures[job.MemberID]--
		return false, errors.New("store unavailable")
	}
	for _, b := range m.granted[job.MemberID] {
		if b == job.BadgeID {
			return false, nil
		}
	}
	m.granted[job.MemberID] = append(m.granted[job.MemberID], job.BadgeID)
	return true, nil
}

func (m *mockAwarder) badges(member string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.granted[member]...)
}

func (m *mockAwarder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func awardJob(member, badge string) model.AwardJob {
	return model.AwardJob{MemberID: member, BadgeID: badge, WeekEnding: time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running award worker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		a := newMockAwarder()
		w := worker.NewInMemoryWorker(q, a, worker.WithName("test-worker"), worker.WithRetries(2, time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job arrives", func() {
			q.jobs <- awardJob("m1", "league_first")

			convey.Convey("Then the badge is granted once", func() {
				convey.So(waitFor(func() bool { return w.Processed() == 1 }), convey.ShouldBeTrue)
				convey.So(a.badges("m1"), convey.ShouldResemble, []string{"league_first"})
				convey.So(w.Granted(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the same job is delivered twice", func() {
			q.jobs <- awardJob("m2", "league_second")
			q.jobs <- awardJob("m2", "league_second")

			convey.Convey("Then the second delivery is a no-op", func() {
				convey.So(waitFor(func() bool { return w.Processed() == 2 }), convey.ShouldBeTrue)
				convey.So(a.badges("m2"), convey.ShouldResemble, []string{"league_second"})
				convey.So(w.Granted(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the awarder fails transiently", func() {
			a.failures["m3"] = 2
			q.jobs <- awardJob("m3", "league_third")

			convey.Convey("Then the job succeeds on retry", func() {
				convey.So(waitFor(func() bool { return w.Processed() == 1 }), convey.ShouldBeTrue)
				convey.So(a.badges("m3"), convey.ShouldResemble, []string{"league_third"})
				convey.So(a.callCount(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the awarder keeps failing", func() {
			a.failures["m4"] = 10
			q.jobs <- awardJob("m4", "league_first")

			convey.Convey("Then the job is dropped after its retries", func() {
				convey.So(waitFor(func() bool { return w.Processed() == 1 }), convey.ShouldBeTrue)
				convey.So(a.badges("m4"), convey.ShouldBeEmpty)
				convey.So(a.callCount(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When shutting down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops and a second shutdown is safe", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool on a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		a := newMockAwarder()
		p := worker.NewPool(3, q, a)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		convey.So(p.Size(), convey.ShouldEqual, 3)

		for _, m := range []string{"a", "b", "c", "d", "e"} {
			convey.So(q.Enqueue(ctx, awardJob(m, "league_first")), convey.ShouldBeTrue)
		}

		convey.Convey("Then every job is applied", func() {
			convey.So(waitFor(func() bool { return p.Processed() == 5 }), convey.ShouldBeTrue)
			convey.So(p.Granted(), convey.ShouldEqual, 5)

			convey.Convey("And shutdown closes the queue", func() {
				convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNewPool_DefaultsWorkerCount(t *testing.T) {
	_ = logging.Init()
	p := worker.NewPool(0, newMockQueue(), newMockAwarder())
	if p.Size() < 1 {
		t.Fatalf("expected at least one worker, got %d", p.Size())
	}
}
