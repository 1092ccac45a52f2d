package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// lockStaleAge is how old a lock file may be before a new builder takes it
// over. Crashed runs never promote to the cache, so their locks only need
// to age out.
const lockStaleAge = 2 * time.Hour

// Lock is a held per-fingerprint build lock.
type Lock struct {
	path string
}

// AcquireLock serializes builds of the same fingerprint. It polls until the
// lock file can be created exclusively or maxWait elapses; stale locks are
// taken over. Builds of different fingerprints never contend. The lock file
// lives beside the fingerprint directory, not inside it, so Persist's
// remove-then-copy never clobbers a held lock.
func (s *Store) AcquireLock(fp string, maxWait time.Duration) (*Lock, error) {
	if err := os.MkdirAll(s.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating cache root: %w", err)
	}
	path := filepath.Join(s.Root, fp+".lock")
	deadline := time.Now().Add(maxWait)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquiring build lock for %s: %w", fp, err)
		}
		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > lockStaleAge {
			os.Remove(path)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("build lock for %s held past %s", fp, maxWait)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Release drops the lock. Safe to call on nil receiver.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	os.Remove(l.path)
}
