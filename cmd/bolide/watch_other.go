//go:build !linux && !darwin

package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
)

// waitForChange polls the modification time of path.
func waitForChange(ctx context.Context, path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	last := st.ModTime()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if st, err := os.Stat(path); err == nil && !st.ModTime().Equal(last) {
				return nil
			}
		}
	}
}
