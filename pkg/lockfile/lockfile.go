// Package lockfile provides scoped file locking plus atomic JSON
// read-modify-write primitives, the durability layer every stateful
// package in this module is built on.
package lockfile

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/agentpipe/orchestrator/pkg/orchestrator"
)

const (
	lockTimeout  = 10 * time.Second
	pollInterval = 100 * time.Millisecond
)

// Lock acquires an exclusive lock on path+".lock", blocking with a 100ms
// poll interval up to a 10s timeout. The returned release func must be
// called exactly once, typically via defer.
func Lock(path string) (release func(), err error) {
	fl := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	ok, err := fl.TryLockContext(ctx, pollInterval)
	if err != nil || !ok {
		return nil, orchestrator.LockTimeoutf("acquire lock on %s", path)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Modifier mutates data and optionally returns a value to hand back to
// the caller of ReadModifyWrite, for the modifiers that need to report
// something about the mutation (e.g. "was this a no-op"). Returning the
// zero value of R means "nothing to return".
type Modifier[T any, R any] func(data *T) R

// ReadModifyWrite acquires the lock for path, decodes the JSON file into
// a T (or uses defaultData if the file is missing or corrupt), invokes
// modifier on it, writes the result back, and releases the lock. It
// returns whatever the modifier handed back.
func ReadModifyWrite[T any, R any](path string, defaultData T, modifier Modifier[T, R]) (R, error) {
	var zero R

	release, err := Lock(path)
	if err != nil {
		return zero, err
	}
	defer release()

	data := defaultData
	if raw, err := os.ReadFile(path); err == nil && len(raw) > 0 {
		var decoded T
		if err := json.Unmarshal(raw, &decoded); err == nil {
			data = decoded
		}
		// malformed JSON: fall back to defaultData, matching the
		// original's "corrupt file keeps default" behavior.
	}

	ret := modifier(&data)

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return zero, orchestrator.Fatalf(err, "marshal %s", path)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return zero, orchestrator.Fatalf(err, "write %s", path)
	}
	return ret, nil
}

// Read acquires the lock for path and decodes it into out. If the file is
// missing, out is left untouched and ok is false.
func Read(path string, out any) (ok bool, err error) {
	release, err := Lock(path)
	if err != nil {
		return false, err
	}
	defer release()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, orchestrator.Fatalf(err, "read %s", path)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, nil
	}
	return true, nil
}

// Write acquires the lock for path and overwrites it with data, serialized
// as indented JSON.
func Write(path string, data any) error {
	release, err := Lock(path)
	if err != nil {
		return err
	}
	defer release()

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return orchestrator.Fatalf(err, "marshal %s", path)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return orchestrator.Fatalf(err, "write %s", path)
	}
	return nil
}
