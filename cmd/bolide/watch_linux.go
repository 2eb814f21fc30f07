package main

import (
	"context"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// waitForChange blocks until path is written, created or renamed into
// place. The directory is watched because editors often replace files.
func waitForChange(ctx context.Context, path string) error {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return errors.Wrap(err, "inotify")
	}
	defer unix.Close(fd)

	const mask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_CREATE
	if _, err := unix.InotifyAddWatch(fd, filepath.Dir(path), mask); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(path))
	}

	base := filepath.Base(path)
	buf := make([]byte, 64*(unix.SizeofInotifyEvent+256))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 250)
		if err == unix.EINTR || n == 0 {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "poll")
		}
		m, err := unix.Read(fd, buf)
		if err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "read inotify")
		}
		for off := 0; off+unix.SizeofInotifyEvent <= m; {
			ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
			start := off + unix.SizeofInotifyEvent
			end := start + int(ev.Len)
			if end > m {
				break
			}
			if strings.TrimRight(string(buf[start:end]), "\x00") == base {
				return nil
			}
			off = end
		}
	}
}
