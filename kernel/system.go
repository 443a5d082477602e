package kernel

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const maxTasks = 8

// ErrTooManyTasks is returned by AddTask once the task table is full.
var ErrTooManyTasks = errors.New("kernel: task table full")

// TaskID identifies a registered task.
type TaskID uint8

// Task is a long-running unit of execution. Run returns when ctx is done or on a
// failure the task cannot recover from.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error { return f(ctx) }

type taskState struct {
	name string
	task Task
}

// System is a fixed table of tasks run concurrently for the life of the firmware.
type System struct {
	tasks [maxTasks]taskState
	count TaskID
}

// NewSystem creates an empty task table.
func NewSystem() *System {
	return &System{}
}

// AddTask registers a task and returns its ID.
func (s *System) AddTask(name string, t Task) (TaskID, error) {
	if int(s.count) >= maxTasks {
		return 0, ErrTooManyTasks
	}
	if t == nil {
		return 0, fmt.Errorf("kernel: task %q is nil", name)
	}
	id := s.count
	s.count++
	s.tasks[id] = taskState{name: name, task: t}
	return id, nil
}

// TaskName returns the name a task was registered with.
func (s *System) TaskName(id TaskID) string {
	if id >= s.count {
		return ""
	}
	return s.tasks[id].name
}

// Run starts every task and blocks until all of them return.
//
// The first task to fail (or panic) cancels the others; its error is returned.
// A panic is also reported once through the handler set by SetPanicHandler.
func (s *System) Run(ctx context.Context) error {
	if s.count == 0 {
		return errors.New("kernel: no tasks")
	}
	g, ctx := errgroup.WithContext(ctx)
	for id := TaskID(0); id < s.count; id++ {
		id, st := id, s.tasks[id]
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					triggerPanic(PanicInfo{TaskID: id, TaskName: st.name, Value: v})
					err = fmt.Errorf("kernel: task %s panicked: %v", st.name, v)
				}
			}()
			if err := st.task.Run(ctx); err != nil {
				return fmt.Errorf("%s: %w", st.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
