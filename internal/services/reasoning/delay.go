package reasoning

import (
	"sync"
	"time"
)

const (
	// delayWindowSize is how many completed calls feed the adjustment rules.
	delayWindowSize = 10

	initialDispatchDelay = 1000 * time.Millisecond

	// Failure pressure backs the pause off hard; slow calls back it off
	// gently; sustained fast clean calls let it creep back down.
	failureBackoffFactor = 1.5
	failureDelayCap      = 5000 * time.Millisecond
	slowBackoffFactor    = 1.2
	slowDelayCap         = 3000 * time.Millisecond
	speedupFactor        = 0.9
	delayFloor           = 500 * time.Millisecond

	failureThreshold  = 2
	slowCallThreshold = 8000 * time.Millisecond
	fastCallThreshold = 3000 * time.Millisecond
)

// callRecord captures the outcome of one completed reasoning call.
type callRecord struct {
	duration time.Duration
	success  bool
}

// delayController adapts the pause between dispatch waves from a sliding
// window of recent call outcomes. Failures and slow responses widen the
// pause; a clean fast window narrows it.
type delayController struct {
	mu     sync.Mutex
	window []callRecord
	delay  time.Duration
}

func newDelayController() *delayController {
	return &delayController{
		window: make([]callRecord, 0, delayWindowSize),
		delay:  initialDispatchDelay,
	}
}

// Record appends a completed call to the sliding window, evicting the
// oldest entry once the window is full.
func (c *delayController) Record(duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.window) == delayWindowSize {
		c.window = append(c.window[1:], callRecord{duration: duration, success: success})
		return
	}
	c.window = append(c.window, callRecord{duration: duration, success: success})
}

// Adjust applies the adaptation rules once and returns the new pause.
// Rules are checked in order: more than two failures in the window
// multiplies the pause by 1.5 capped at 5s; otherwise an average call
// time above 8s multiplies it by 1.2 capped at 3s; otherwise a fully
// successful window averaging under 3s multiplies it by 0.9 floored at
// 500ms. Any other window leaves the pause unchanged.
func (c *delayController) Adjust() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.window) == 0 {
		return c.delay
	}

	failures := 0
	var total time.Duration
	for _, r := range c.window {
		if !r.success {
			failures++
		}
		total += r.duration
	}
	avg := total / time.Duration(len(c.window))

	switch {
	case failures > failureThreshold:
		c.delay = time.Duration(float64(c.delay) * failureBackoffFactor)
		if c.delay > failureDelayCap {
			c.delay = failureDelayCap
		}
	case avg > slowCallThreshold:
		c.delay = time.Duration(float64(c.delay) * slowBackoffFactor)
		if c.delay > slowDelayCap {
			c.delay = slowDelayCap
		}
	case failures == 0 && avg < fastCallThreshold:
		c.delay = time.Duration(float64(c.delay) * speedupFactor)
		if c.delay < delayFloor {
			c.delay = delayFloor
		}
	}
	return c.delay
}

// Current returns the pause without adjusting it.
func (c *delayController) Current() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay
}
