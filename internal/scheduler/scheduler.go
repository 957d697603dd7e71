package scheduler

import (
	"context"
	"log"
	"time"
)

// Task는 스케줄러가 실행할 작업을 정의하는 인터페이스입니다
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc는 함수를 Task로 쓸 수 있게 합니다
type TaskFunc func(ctx context.Context) error

// Execute는 함수 자신을 실행합니다
func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }

// Scheduler는 타임프레임 경계에 맞춰 작업을 실행합니다.
// 실행 시각은 interval의 배수로 정렬되며, 거래소가 완결 캔들을 내려줄
// 시간을 주기 위해 경계에서 delay만큼 늦춰 실행할 수 있습니다.
type Scheduler struct {
	name     string
	interval time.Duration
	delay    time.Duration
	task     Task
	stopCh   chan struct{}
}

// Option은 스케줄러의 옵션을 정의합니다
type Option func(*Scheduler)

// WithDelay는 경계 이후 실행까지의 지연을 설정합니다
func WithDelay(delay time.Duration) Option {
	return func(s *Scheduler) {
		if delay >= 0 {
			s.delay = delay
		}
	}
}

// NewScheduler는 새로운 스케줄러를 생성합니다
func NewScheduler(name string, interval time.Duration, task Task, opts ...Option) *Scheduler {
	s := &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start는 스케줄러를 시작합니다. 컨텍스트가 취소되거나 Stop이 호출될
// 때까지 반환하지 않습니다.
func (s *Scheduler) Start(ctx context.Context) error {
	timer := time.NewTimer(s.untilNextRun())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-timer.C:
			if err := s.task.Execute(ctx); err != nil {
				log.Printf("[%s] 작업 실행 실패: %v", s.name, err)
				// 에러가 발생해도 계속 실행
			}
			timer.Reset(s.untilNextRun())
		}
	}
}

// untilNextRun은 다음 정렬된 실행 시각까지의 대기 시간을 계산합니다
func (s *Scheduler) untilNextRun() time.Duration {
	now := time.Now()
	nextRun := now.Add(-s.delay).Truncate(s.interval).Add(s.interval).Add(s.delay)
	waitDuration := nextRun.Sub(now)

	log.Printf("[%s] 다음 실행까지 %v 대기 (다음 실행: %s)",
		s.name,
		waitDuration.Round(time.Second),
		nextRun.Format("15:04:05"))

	return waitDuration
}

// Stop은 스케줄러를 중지합니다
func (s *Scheduler) Stop() {
	close(s.stopCh)
}
