package runtime

import (
	"reflect"
	"sync"
	"time"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

// Channel is a FIFO of words. A zero capacity channel is a rendezvous:
// the sender blocks until a receiver takes the value. Closing wakes every
// blocked party; sends then fail and receives drain the buffer before
// returning the zero sentinel.
type Channel struct {
	elem   rtabi.Tag
	cap    int
	data   chan uint64
	closed chan struct{}
	once   sync.Once
}

func newChannel(elem rtabi.Tag, capacity int) *Channel {
	if capacity < 0 {
		capacity = 0
	}
	return &Channel{
		elem:   elem,
		cap:    capacity,
		data:   make(chan uint64, capacity),
		closed: make(chan struct{}),
	}
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Channel) close() {
	c.once.Do(func() { close(c.closed) })
}

// send delivers v and reports whether it was accepted.
func (c *Channel) send(v uint64) bool {
	if c.isClosed() {
		return false
	}
	select {
	case c.data <- v:
		return true
	case <-c.closed:
		return false
	}
}

// tryRecv takes a value without blocking.
func (c *Channel) tryRecv() (uint64, bool) {
	select {
	case v := <-c.data:
		return v, true
	default:
		return 0, false
	}
}

// recv blocks for a value. ok is false once the channel is closed and
// drained.
func (c *Channel) recv() (v uint64, ok bool) {
	if v, ok := c.tryRecv(); ok {
		return v, true
	}
	select {
	case v := <-c.data:
		return v, true
	case <-c.closed:
		return c.tryRecv()
	}
}

func (rt *Runtime) channelCreate(elem int64, capacity int64) uint64 {
	ch := newChannel(rtabi.Tag(elem), int(capacity))
	return rt.heap.alloc(rtabi.TagChannel, ch, nil).Addr()
}

func (rt *Runtime) channel(h uint64) *Channel {
	return rt.heap.get(h, rtabi.TagChannel).obj.(*Channel)
}

// channelSend transfers ownership of v to the channel. A rejected value
// is released.
func (rt *Runtime) channelSend(h, v uint64) int64 {
	if h == 0 {
		return 0
	}
	ch := rt.channel(h)
	if !ch.send(v) {
		rt.releaseTagged(ch.elem, v)
		return 0
	}
	return 1
}

func (rt *Runtime) channelRecv(h uint64) uint64 {
	if h == 0 {
		return 0
	}
	v, _ := rt.channel(h).recv()
	return v
}

// channelTryRecv receives without blocking and stores 1 or 0 at okAddr.
func (rt *Runtime) channelTryRecv(h, okAddr uint64) uint64 {
	var v uint64
	var ok bool
	if h != 0 {
		v, ok = rt.channel(h).tryRecv()
	}
	if okAddr != 0 {
		rt.heap.Store(okAddr, boolWord(ok))
	}
	return v
}

// drainChannel releases the values still buffered in a destroyed channel.
func (rt *Runtime) drainChannel(ch *Channel) {
	ch.close()
	for {
		v, ok := ch.tryRecv()
		if !ok {
			return
		}
		rt.releaseTagged(ch.elem, v)
	}
}

// channelSelect waits on the count channels stored at arr. It returns the
// index of the channel that delivered, storing the value at out,
// rtabi.SelectTimeout when the timeout expires or every channel is closed
// and drained, and rtabi.SelectDefault when nothing is ready and the
// timeout argument requests the default branch. Channels ready at the
// same time are taken in input order.
func (rt *Runtime) channelSelect(arr uint64, count, timeoutMS int64, out uint64) int64 {
	if count <= 0 {
		return rtabi.SelectTimeout
	}
	hs := rt.heap.Words(arr, int(count))
	chans := make([]*Channel, len(hs))
	for i, h := range hs {
		if h != 0 {
			chans[i] = rt.channel(h)
		}
	}
	deliver := func(i int, v uint64) int64 {
		if out != 0 {
			rt.heap.Store(out, v)
		}
		return int64(i)
	}

	var timer <-chan time.Time
	if timeoutMS >= 0 {
		t := time.NewTimer(time.Duration(timeoutMS) * time.Millisecond)
		defer t.Stop()
		timer = t.C
	}

	for {
		for i, ch := range chans {
			if ch == nil {
				continue
			}
			if v, ok := ch.tryRecv(); ok {
				return deliver(i, v)
			}
		}
		if timeoutMS == rtabi.SelectNoWait {
			return rtabi.SelectDefault
		}

		// Wait for data on an open channel, a close, or the timer.
		var cases []reflect.SelectCase
		var index []int // channel index per case; -1 for a close, -2 for the timer
		for i, ch := range chans {
			if ch == nil || ch.isClosed() {
				continue
			}
			cases = append(cases,
				reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch.data)},
				reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch.closed)})
			index = append(index, i, -1)
		}
		if len(cases) == 0 {
			return rtabi.SelectTimeout
		}
		if timer != nil {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timer)})
			index = append(index, -2)
		}
		chosen, v, ok := reflect.Select(cases)
		switch i := index[chosen]; {
		case i >= 0 && ok:
			return deliver(i, v.Interface().(uint64))
		case i == -2:
			return rtabi.SelectTimeout
		}
		// A channel closed; rescan so buffered values are still delivered.
	}
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
