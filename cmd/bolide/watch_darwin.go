package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// waitForChange blocks until path is written, extended, renamed or
// deleted.
func waitForChange(ctx context.Context, path string) error {
	fd, err := unix.Open(path, unix.O_EVTONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer unix.Close(fd)

	kq, err := unix.Kqueue()
	if err != nil {
		return errors.Wrap(err, "kqueue")
	}
	defer unix.Close(kq)

	var change unix.Kevent_t
	unix.SetKevent(&change, fd, unix.EVFILT_VNODE, unix.EV_ADD|unix.EV_CLEAR)
	change.Fflags = unix.NOTE_WRITE | unix.NOTE_EXTEND | unix.NOTE_RENAME | unix.NOTE_DELETE
	changes := []unix.Kevent_t{change}

	events := make([]unix.Kevent_t, 1)
	timeout := unix.NsecToTimespec(int64(250 * time.Millisecond))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Kevent(kq, changes, events, &timeout)
		changes = nil
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "kevent")
		}
		if n > 0 {
			// Give editors that write in several steps time to finish.
			time.Sleep(50 * time.Millisecond)
			return nil
		}
	}
}
