package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScheduler_ExecutesOnAlignedBoundary(t *testing.T) {
	ticks := make(chan time.Time, 8)
	task := TaskFunc(func(ctx context.Context) error {
		ticks <- time.Now()
		return nil
	})

	s := NewScheduler("테스트", 50*time.Millisecond, task)
	go s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("%d번째 실행이 일어나지 않았습니다", i+1)
		}
	}
}

func TestScheduler_KeepsRunningAfterTaskError(t *testing.T) {
	ticks := make(chan struct{}, 8)
	task := TaskFunc(func(ctx context.Context) error {
		ticks <- struct{}{}
		return errors.New("일시적 실패")
	})

	s := NewScheduler("테스트", 50*time.Millisecond, task)
	go s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("작업 에러 후 실행이 멈췄습니다")
		}
	}
}

func TestScheduler_StopHaltsLoop(t *testing.T) {
	task := TaskFunc(func(ctx context.Context) error { return nil })

	s := NewScheduler("테스트", time.Hour, task)
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	s.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop 이후 에러를 반환했습니다: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop이 루프를 멈추지 못했습니다")
	}
}

func TestScheduler_ContextCancelReturns(t *testing.T) {
	task := TaskFunc(func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler("테스트", time.Hour, task)

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("컨텍스트 취소 에러가 아닙니다: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("컨텍스트 취소가 루프를 멈추지 못했습니다")
	}
}
