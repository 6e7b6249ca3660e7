package service

import "time"

type poster interface {
	Post(task func())
}

// TimerScheduler defers tasks with a timer and runs them on the dispatcher
// loop.
type TimerScheduler struct {
	loop poster
}

func NewTimerScheduler(loop poster) *TimerScheduler {
	return &TimerScheduler{loop: loop}
}

// Schedule runs task after delay unless the returned cancel is called first.
// Cancel must be called from the loop.
func (that *TimerScheduler) Schedule(delay time.Duration, task func()) func() {
	canceled := false

	timer := time.AfterFunc(delay, func() {
		that.loop.Post(func() {
			if canceled {
				return
			}
			task()
		})
	})

	return func() {
		canceled = true
		timer.Stop()
	}
}
