package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	c := Fake(epoch)
	var fired []string

	c.AfterFunc(60*time.Second, func() { fired = append(fired, "code") })
	c.AfterFunc(10*time.Second, func() { fired = append(fired, "early") })
	c.AfterFunc(120*time.Second, func() { fired = append(fired, "phone") })

	c.Advance(59 * time.Second)
	assert.Equal(t, []string{"early"}, fired)
	assert.Equal(t, 2, c.Pending())

	c.Advance(time.Second)
	assert.Equal(t, []string{"early", "code"}, fired)

	c.Advance(time.Hour)
	assert.Equal(t, []string{"early", "code", "phone"}, fired)
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, epoch.Add(time.Hour+time.Minute), c.Now())
}

func TestFake_StopPreventsFiring(t *testing.T) {
	c := Fake(epoch)
	fired := false

	timer := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports already stopped")

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFake_StopAfterFire(t *testing.T) {
	c := Fake(epoch)
	timer := c.AfterFunc(time.Second, func() {})
	c.Advance(time.Second)
	assert.False(t, timer.Stop())
}

func TestFake_CallbackMayArmNewTimer(t *testing.T) {
	c := Fake(epoch)
	count := 0
	c.AfterFunc(time.Second, func() {
		count++
		c.AfterFunc(time.Second, func() { count++ })
	})

	c.Advance(time.Second)
	assert.Equal(t, 1, count)
	c.Advance(time.Second)
	assert.Equal(t, 2, count)
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
