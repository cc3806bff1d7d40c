package server

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

type action struct {
	onFinish []func()
}

func (a *action) addOnFinish(f func()) {
	if a.onFinish == nil {
		a.onFinish = make([]func(), 0)
	}
	a.onFinish = append(a.onFinish, f)
}

// Clock runs delayed callbacks as tweens. It is not safe for concurrent use;
// the owning session loop calls Update from its ticker.
type Clock struct {
	Tweens map[*gween.Tween]*action
}

func NewClock() *Clock {
	return &Clock{Tweens: make(map[*gween.Tween]*action)}
}

func (c *Clock) After(d time.Duration, f func()) {
	t := gween.New(0, 1, float32(d.Seconds()), ease.Linear)
	a := &action{}
	a.addOnFinish(f)
	c.Tweens[t] = a
}

func (c *Clock) Update(dt time.Duration) {
	finished := make([]*action, 0)
	for t, a := range c.Tweens {
		_, done := t.Update(float32(dt.Seconds()))
		if done {
			finished = append(finished, a)
			delete(c.Tweens, t)
		}
	}
	// callbacks may schedule again
	for _, a := range finished {
		for _, onFinish := range a.onFinish {
			onFinish()
		}
	}
}

func (c *Clock) Pending() int {
	return len(c.Tweens)
}
