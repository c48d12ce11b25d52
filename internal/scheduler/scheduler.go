// Package scheduler runs periodic actions at independent rates from a single
// loop. Each task keeps its own last-run time; Tick runs every task whose
// period has elapsed.
package scheduler

import "time"

// Task is a periodic action.
type Task struct {
	Name   string
	Period time.Duration
	Run    func(now time.Time)

	last    time.Time
	started bool
	runs    uint64
}

// Scheduler holds tasks in evaluation order.
type Scheduler struct {
	tasks []*Task
}

// New creates a scheduler. Tasks run in the order given when due on the
// same tick.
func New(tasks ...*Task) *Scheduler {
	return &Scheduler{tasks: tasks}
}

// Add appends a task.
func (s *Scheduler) Add(t *Task) {
	s.tasks = append(s.tasks, t)
}

// Tick runs every due task and returns how many ran. A task is due on its
// first tick and then whenever at least Period has passed since its last
// scheduled slot. Slots advance by Period, so a loop ticking at the task's
// own period with jitter keeps the task at its rate. A task more than one
// period behind restarts its schedule at now; missed periods are not
// replayed.
func (s *Scheduler) Tick(now time.Time) int {
	ran := 0
	for _, t := range s.tasks {
		if t.started && now.Sub(t.last) < t.Period {
			continue
		}
		if t.started {
			t.last = t.last.Add(t.Period)
		}
		if !t.started || now.Sub(t.last) > t.Period {
			t.last = now
		}
		t.started = true
		t.runs++
		t.Run(now)
		ran++
	}
	return ran
}

// Runs returns how many times the named task has run.
func (s *Scheduler) Runs(name string) uint64 {
	for _, t := range s.tasks {
		if t.Name == name {
			return t.runs
		}
	}
	return 0
}

// MinPeriod returns the shortest task period, which is the loop interval
// needed to serve every task on time. It returns 0 with no tasks.
func (s *Scheduler) MinPeriod() time.Duration {
	var min time.Duration
	for i, t := range s.tasks {
		if i == 0 || t.Period < min {
			min = t.Period
		}
	}
	return min
}

// Every returns the period for a rate in hertz. Non-positive rates yield 0,
// which runs the task on every tick.
func Every(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}
