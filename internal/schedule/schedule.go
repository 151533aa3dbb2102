// Package schedule runs named periodic tasks that can be cancelled
// individually or all at once.
package schedule

import (
	"sort"
	"sync"
	"time"

	"github.com/dumacp/go-logs/pkg/logs"
)

// Task fires Run every Interval. Run is called from the task's own
// goroutine; callers that own state should hand the tick over to their
// execution context instead of doing the work in Run.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func()
}

// Set holds the running tasks by name.
type Set struct {
	mux   sync.Mutex
	tasks map[string]chan int
	wg    sync.WaitGroup
}

func New() *Set {
	return &Set{tasks: make(map[string]chan int)}
}

// Start launches t, replacing a running task with the same name. Tasks with
// a non-positive interval or no Run are ignored.
func (s *Set) Start(t Task) bool {
	if t.Interval <= 0 || t.Run == nil {
		logs.LogWarn.Printf("task %q not scheduled, interval %s", t.Name, t.Interval)
		return false
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if quit, ok := s.tasks[t.Name]; ok {
		close(quit)
	}
	quit := make(chan int)
	s.tasks[t.Name] = quit
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		tick(t, quit)
	}()
	logs.LogBuild.Printf("task %q scheduled every %s", t.Name, t.Interval)
	return true
}

// Cancel stops the named task.
func (s *Set) Cancel(name string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	quit, ok := s.tasks[name]
	if !ok {
		return false
	}
	close(quit)
	delete(s.tasks, name)
	return true
}

// Stop cancels every task and waits for their goroutines to return. No Run
// call is in progress once Stop returns.
func (s *Set) Stop() {
	s.mux.Lock()
	for name, quit := range s.tasks {
		close(quit)
		delete(s.tasks, name)
	}
	s.mux.Unlock()
	s.wg.Wait()
}

// Running returns the names of the scheduled tasks, sorted.
func (s *Set) Running() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func tick(t Task, quit <-chan int) {
	t1 := time.NewTicker(t.Interval)
	defer t1.Stop()
	for {
		select {
		case <-t1.C:
			select {
			case <-quit:
				return
			default:
			}
			t.Run()
		case <-quit:
			return
		}
	}
}
