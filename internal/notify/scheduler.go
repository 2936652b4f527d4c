/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package notify

import (
	"context"
	"sync"
	"time"

	"perkle/internal/models"

	"go.uber.org/zap"
)

// DigestRunner sends the digest to every user.
type DigestRunner interface {
	SendAll(ctx context.Context) (*models.DigestRunResult, error)
}

// Scheduler runs the digest on a fixed interval until stopped.
type Scheduler struct {
	runner   DigestRunner
	interval time.Duration

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewScheduler(runner DigestRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the loop. The first run happens one interval after Start.
// Starting twice, or after Stop, does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	go s.loop(ctx)
	zap.L().Info("Digest scheduler started", zap.Duration("interval", s.interval))
}

// Stop ends the loop and waits for an in-flight run to finish. It returns
// immediately when the loop was never started and is safe to call twice.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}

	zap.L().Info("Stopping digest scheduler")
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Digest scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.runner.SendAll(ctx); err != nil {
		zap.L().Error("Digest run failed", zap.Error(err))
	}
}
