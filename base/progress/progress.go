// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

const eventBufferSize = 256

type Status string

const (
	StatusPending  Status = "Pending"
	StatusRunning  Status = "Running"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed"
)

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}

// Tracer collects root spans and forwards span updates to an optional subscriber.
type Tracer struct {
	name   string
	spans  sync.Map
	mu     sync.RWMutex
	events chan Progress
	closed bool
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

// Subscribe delivers every span update to fn on a separate goroutine. Updates are
// dropped while the buffer is full, so spans never wait for the subscriber.
func (t *Tracer) Subscribe(fn func(Progress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.events != nil || t.closed {
		return
	}
	t.events = make(chan Progress, eventBufferSize)
	go func(events <-chan Progress) {
		for p := range events {
			fn(p)
		}
	}(t.events)
}

// Close stops delivering updates. It is safe to call more than once.
func (t *Tracer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.events != nil {
		close(t.events)
	}
}

func (t *Tracer) publish(p Progress) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed || t.events == nil {
		return
	}
	select {
	case t.events <- p:
	default:
	}
}

// Start creates a root span.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := newSpan(t, name, total)
	t.spans.Store(name, span)
	span.notify()
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns the progress of root spans ordered by start time.
func (t *Tracer) List() []Progress {
	var progress []Progress
	t.spans.Range(func(_, value any) bool {
		progress = append(progress, value.(*Span).Progress())
		return true
	})
	sort.Slice(progress, func(i, j int) bool {
		if progress[i].StartTime.Equal(progress[j].StartTime) {
			return progress[i].Name < progress[j].Name
		}
		return progress[i].StartTime.Before(progress[j].StartTime)
	})
	return progress
}

type Span struct {
	mu       sync.Mutex
	tracer   *Tracer
	name     string
	status   Status
	total    int
	count    int
	err      error
	start    time.Time
	finish   time.Time
	children sync.Map
}

func newSpan(tracer *Tracer, name string, total int) *Span {
	return &Span{
		tracer: tracer,
		name:   name,
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
}

func (s *Span) Add(n int) {
	s.mu.Lock()
	s.count += n
	s.mu.Unlock()
	s.notify()
}

func (s *Span) End() {
	s.mu.Lock()
	if s.status == StatusRunning {
		s.status = StatusComplete
		s.count = s.total
		s.finish = time.Now()
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Span) Fail(err error) {
	s.mu.Lock()
	s.status = StatusFailed
	s.err = err
	if s.finish.IsZero() {
		s.finish = time.Now()
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Span) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Children returns the progress of direct child spans ordered by name.
func (s *Span) Children() []Progress {
	var progress []Progress
	s.children.Range(func(_, value any) bool {
		progress = append(progress, value.(*Span).Progress())
		return true
	})
	sort.Slice(progress, func(i, j int) bool {
		return progress[i].Name < progress[j].Name
	})
	return progress
}

func (s *Span) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Progress{
		Name:       s.name,
		Status:     s.status,
		Count:      s.count,
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
	if s.tracer != nil {
		p.Tracer = s.tracer.name
	}
	if s.err != nil {
		p.Error = s.err.Error()
	}
	return p
}

func (s *Span) notify() {
	if s.tracer != nil {
		s.tracer.publish(s.Progress())
	}
}

// Start creates a child of the span carried by ctx. Without a parent span the returned
// span is detached: it still counts but reports to nobody.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	if ctx == nil {
		return nil, newSpan(nil, name, total)
	}
	parent, ok := ctx.Value(spanKeyName).(*Span)
	if !ok {
		return ctx, newSpan(nil, name, total)
	}
	child := newSpan(parent.tracer, name, total)
	parent.children.Store(name, child)
	child.notify()
	return context.WithValue(ctx, spanKeyName, child), child
}
