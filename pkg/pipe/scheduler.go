package pipe

// Scheduler runs tasks on the host main thread.
type Scheduler interface {
	Post(task func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(task func())

// Post implements Scheduler.
func (f SchedulerFunc) Post(task func()) { f(task) }

// Inline runs every task on the posting goroutine.
type Inline struct{}

// Post implements Scheduler.
func (Inline) Post(task func()) { task() }
