package runtime

import (
	"testing"
	"time"

	"github.com/bolide-lang/bolide/internal/rtabi"
)

func TestChannelBufferedFIFO(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	ch := call(t, rt, "channel_create_buffered", uint64(rtabi.TagInt), 4)
	for i := uint64(1); i <= 3; i++ {
		if call(t, rt, "channel_send", ch, i) != 1 {
			t.Fatalf("send %d rejected", i)
		}
	}
	for want := uint64(1); want <= 3; want++ {
		if got := call(t, rt, "channel_recv", ch); got != want {
			t.Errorf("recv = %d, want %d", got, want)
		}
	}
	call(t, rt, "channel_free", ch)
	expectEmptyHeap(t, rt)
}

func TestChannelRendezvous(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	ch := call(t, rt, "channel_create", uint64(rtabi.TagInt))
	sent := make(chan uint64)
	go func() {
		ok := call(t, rt, "channel_send", ch, 7)
		sent <- ok
	}()
	select {
	case <-sent:
		t.Fatal("send on an unbuffered channel completed without a receiver")
	case <-time.After(20 * time.Millisecond):
	}
	if got := call(t, rt, "channel_recv", ch); got != 7 {
		t.Errorf("recv = %d, want 7", got)
	}
	if ok := <-sent; ok != 1 {
		t.Errorf("send = %d, want 1", ok)
	}
	call(t, rt, "channel_free", ch)
	expectEmptyHeap(t, rt)
}

func TestChannelClose(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	ch := call(t, rt, "channel_create_buffered", uint64(rtabi.TagString), 2)
	call(t, rt, "channel_send", ch, rt.NewString("kept"))
	call(t, rt, "channel_close", ch)

	if call(t, rt, "channel_is_closed", ch) != 1 {
		t.Error("channel not closed")
	}
	if call(t, rt, "channel_send", ch, rt.NewString("rejected")) != 0 {
		t.Error("send after close accepted")
	}
	s := call(t, rt, "channel_recv", ch)
	if got := rt.String(s); got != "kept" {
		t.Errorf("buffered value after close = %q", got)
	}
	rt.Release(s)
	if got := call(t, rt, "channel_recv", ch); got != 0 {
		t.Errorf("recv on drained channel = %#x, want 0", got)
	}
	call(t, rt, "channel_free", ch)
	expectEmptyHeap(t, rt)
}

func TestChannelFreeReleasesBufferedValues(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	ch := call(t, rt, "channel_create_buffered", uint64(rtabi.TagString), 2)
	call(t, rt, "channel_send", ch, rt.NewString("a"))
	call(t, rt, "channel_send", ch, rt.NewString("b"))
	call(t, rt, "channel_free", ch)
	expectEmptyHeap(t, rt)
}

func TestShutdownFreesOpenChannels(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	call(t, rt, rtabi.FnRuntimeInit)
	freed := call(t, rt, "channel_create", uint64(rtabi.TagInt))
	call(t, rt, "channel_free", freed)
	ch := call(t, rt, "channel_create_buffered", uint64(rtabi.TagString), 2)
	call(t, rt, "channel_send", ch, rt.NewString("left over"))
	call(t, rt, rtabi.FnRuntimeFini)
	expectEmptyHeap(t, rt)
	if n := rt.OverReleases(); n != 0 {
		t.Errorf("shutdown released a freed channel again (%d over-releases)", n)
	}
}

func TestChannelTryRecv(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	ch := call(t, rt, "channel_create_buffered", uint64(rtabi.TagInt), 1)
	ok := rt.alloc(8)

	if v := call(t, rt, "channel_try_recv", ch, ok); v != 0 || rt.heap.Load(ok) != 0 {
		t.Errorf("try_recv on empty channel = %d, ok %d", v, rt.heap.Load(ok))
	}
	call(t, rt, "channel_send", ch, 5)
	if v := call(t, rt, "channel_try_recv", ch, ok); v != 5 || rt.heap.Load(ok) != 1 {
		t.Errorf("try_recv = %d, ok %d", v, rt.heap.Load(ok))
	}
	rt.Free(ok)
	call(t, rt, "channel_free", ch)
	expectEmptyHeap(t, rt)
}

func TestChannelSelect(t *testing.T) {
	tests := []struct {
		name    string
		ready   []bool // buffered value per channel
		closed  []bool
		timeout int64
		want    int64
		value   uint64
	}{
		{name: "first ready in input order", ready: []bool{true, true}, closed: []bool{false, false}, timeout: rtabi.SelectForever, want: 0, value: 10},
		{name: "only second ready", ready: []bool{false, true}, closed: []bool{false, false}, timeout: rtabi.SelectForever, want: 1, value: 11},
		{name: "default branch", ready: []bool{false, false}, closed: []bool{false, false}, timeout: rtabi.SelectNoWait, want: rtabi.SelectDefault},
		{name: "timeout", ready: []bool{false, false}, closed: []bool{false, false}, timeout: 10, want: rtabi.SelectTimeout},
		{name: "all closed", ready: []bool{false, false}, closed: []bool{true, true}, timeout: rtabi.SelectForever, want: rtabi.SelectTimeout},
		{name: "closed with buffered value", ready: []bool{false, true}, closed: []bool{true, true}, timeout: rtabi.SelectForever, want: 1, value: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, _, _ := newTestRuntime(t)
			var hs []uint64
			for i := range tt.ready {
				ch := call(t, rt, "channel_create_buffered", uint64(rtabi.TagInt), 1)
				if tt.ready[i] {
					call(t, rt, "channel_send", ch, uint64(10+i))
				}
				if tt.closed[i] {
					call(t, rt, "channel_close", ch)
				}
				hs = append(hs, ch)
			}
			arr := wordArray(rt, hs...)
			out := rt.alloc(8)

			got := int64(call(t, rt, rtabi.FnChannelSelect, arr, uint64(len(hs)), uint64(tt.timeout), out))
			if got != tt.want {
				t.Errorf("select = %d, want %d", got, tt.want)
			}
			if got >= 0 && rt.heap.Load(out) != tt.value {
				t.Errorf("received %d, want %d", rt.heap.Load(out), tt.value)
			}
			for _, h := range hs {
				call(t, rt, "channel_free", h)
			}
			rt.Free(arr)
			rt.Free(out)
			expectEmptyHeap(t, rt)
		})
	}
}

func TestChannelSelectWakesOnSend(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	a := call(t, rt, "channel_create", uint64(rtabi.TagInt))
	b := call(t, rt, "channel_create", uint64(rtabi.TagInt))
	go func() {
		time.Sleep(10 * time.Millisecond)
		call(t, rt, "channel_send", b, 3)
	}()
	arr := wordArray(rt, a, b)
	out := rt.alloc(8)
	forever := rtabi.SelectForever
	if got := int64(call(t, rt, rtabi.FnChannelSelect, arr, 2, uint64(forever), out)); got != 1 {
		t.Errorf("select = %d, want 1", got)
	}
	if v := rt.heap.Load(out); v != 3 {
		t.Errorf("received %d, want 3", v)
	}
	rt.Free(arr)
	rt.Free(out)
	call(t, rt, "channel_free", a)
	call(t, rt, "channel_free", b)
	expectEmptyHeap(t, rt)
}
