package worker

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/dsp"
)

func waitForState(t *testing.T, s *Store, id string, want State) Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := s.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if st.State == want {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
	return Status{}
}

func TestPool_JobLifecycle(t *testing.T) {
	store := NewStore(0)
	pool := NewPool(store, 4, nil)
	pool.Start(2)
	defer pool.Stop()

	okID, err := pool.Submit(Job{Task: func(ctx context.Context) (Result, error) {
		return Result{Data: []byte("RIFF"), ContentType: "audio/wav", Samples: 10, SampleRate: 8000}, nil
	}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	failID, err := pool.Submit(Job{ID: "fixed-id", Task: func(ctx context.Context) (Result, error) {
		return Result{}, errors.New("boom")
	}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if failID != "fixed-id" {
		t.Errorf("expected caller ID to be kept, got %q", failID)
	}

	st := waitForState(t, store, okID, StateDone)
	if st.Samples != 10 || st.Rate != 8000 {
		t.Errorf("unexpected status %+v", st)
	}
	res, _, err := store.Result(okID)
	if err != nil || string(res.Data) != "RIFF" {
		t.Errorf("Result = %q, %v", res.Data, err)
	}

	st = waitForState(t, store, failID, StateFailed)
	if st.Error != "boom" {
		t.Errorf("expected error message boom, got %q", st.Error)
	}
}

func TestPool_QueueFull(t *testing.T) {
	store := NewStore(0)
	pool := NewPool(store, 1, nil)

	block := func(ctx context.Context) (Result, error) { return Result{}, nil }
	if _, err := pool.Submit(Job{Task: block}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	id, err := pool.Submit(Job{ID: "overflow", Task: block})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got id=%q err=%v", id, err)
	}
	if _, err := store.Get("overflow"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("rejected job should not be stored, got %v", err)
	}

	pool.Start(1)
	pool.Stop()
}

func TestPool_StopDrainsQueue(t *testing.T) {
	store := NewStore(0)
	pool := NewPool(store, 8, nil)

	var mu sync.Mutex
	ran := 0
	var ids []string
	for i := 0; i < 5; i++ {
		id, err := pool.Submit(Job{Task: func(ctx context.Context) (Result, error) {
			mu.Lock()
			ran++
			mu.Unlock()
			return Result{}, nil
		}})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)
	}

	pool.Start(2)
	pool.Stop()

	if ran != 5 {
		t.Errorf("expected 5 jobs to run before Stop returned, got %d", ran)
	}
	for _, id := range ids {
		st, _ := store.Get(id)
		if st.State != StateDone {
			t.Errorf("job %s in state %s", id, st.State)
		}
	}
	if _, err := pool.Submit(Job{Task: func(ctx context.Context) (Result, error) { return Result{}, nil }}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped after Stop, got %v", err)
	}
	pool.Stop()
}

func TestPool_PanicMarksFailed(t *testing.T) {
	store := NewStore(0)
	pool := NewPool(store, 1, nil)
	pool.Start(1)

	id, err := pool.Submit(Job{Task: func(ctx context.Context) (Result, error) { panic("bad") }})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	pool.Stop()

	st, _ := store.Get(id)
	if st.State != StateFailed {
		t.Errorf("expected failed, got %s", st.State)
	}
}

func TestStore_EvictsOldestFinished(t *testing.T) {
	store := NewStore(2)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, id := range []string{"a", "b", "c"} {
		store.add(id)
		store.finish(id, Result{}, nil)
	}
	store.add("pending")

	if _, err := store.Get("a"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected oldest finished job evicted, got %v", err)
	}
	for _, id := range []string{"b", "c", "pending"} {
		if _, err := store.Get(id); err != nil {
			t.Errorf("Get(%s): %v", id, err)
		}
	}
}

type fakeSynth struct{}

func (fakeSynth) SynthesizeWaveform(ctx context.Context, w domain.Waveform, opts dsp.SynthOptions) (domain.Waveform, error) {
	out := make([]float64, len(w.Samples))
	for i := range out {
		out[i] = math.Sin(float64(i) / 10)
	}
	return domain.Waveform{Samples: out, SampleRate: w.SampleRate}, nil
}

func TestSynthesisTask_EncodesWAV(t *testing.T) {
	task := SynthesisTask(fakeSynth{}, domain.Waveform{Samples: make([]float64, 400), SampleRate: 8000}, dsp.DefaultSynthOptions())
	res, err := task(context.Background())
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if res.ContentType != "audio/wav" || res.Samples != 400 || res.SampleRate != 8000 {
		t.Errorf("unexpected result meta %+v", res)
	}
	if len(res.Data) < 44 || string(res.Data[:4]) != "RIFF" {
		t.Errorf("expected a RIFF header, got %d bytes", len(res.Data))
	}
}
