// Package scheduler provides the timer loop that drives the schedule engine.
// It runs a single goroutine over a min-heap of ScheduleEvents sorted by
// wall-clock trigger time, with a 60-second max-sleep-cap to handle NTP
// steps, DST transitions and system sleep (macOS monotonic clock pause), so
// an hourly tick is never late by more than a minute after a resume.
//
// Callbacks run one at a time on the loop goroutine. They may schedule or
// cancel further events; that is how the engine re-arms itself.
package scheduler
