package fakesessionrepo

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/jrsteele09/go-portal-client/sessions"
)

var _ sessions.Store = (*FakeStore)(nil)

// Write is one recorded call to Save or Clear.
type Write struct {
	Op     string // "save" or "clear"
	Record sessions.Record
	Caller string // Fully qualified function that called the store
}

// FakeStore is an in-memory sessions.Store that records every write and the
// function that issued it.
type FakeStore struct {
	record  sessions.Record
	writes  []Write
	loadErr error
	saveErr error
	lock    sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// NewFakeStoreWith returns a store pre-populated with record. The seed is not
// counted as a write.
func NewFakeStoreWith(record sessions.Record) *FakeStore {
	return &FakeStore{record: record}
}

func (fs *FakeStore) Load(_ context.Context) (sessions.Record, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.loadErr != nil {
		return sessions.Record{}, fs.loadErr
	}
	return fs.record, nil
}

func (fs *FakeStore) Save(_ context.Context, record sessions.Record) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.saveErr != nil {
		return fs.saveErr
	}
	fs.record = record
	fs.writes = append(fs.writes, Write{Op: "save", Record: record, Caller: caller()})
	return nil
}

func (fs *FakeStore) Clear(_ context.Context) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.record = sessions.Record{}
	fs.writes = append(fs.writes, Write{Op: "clear", Caller: caller()})
	return nil
}

// FailLoads makes every subsequent Load return err (nil restores normal loads).
func (fs *FakeStore) FailLoads(err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.loadErr = err
}

// FailSaves makes every subsequent Save return err without storing anything.
func (fs *FakeStore) FailSaves(err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.saveErr = err
}

// Record returns the current contents without going through Load.
func (fs *FakeStore) Record() sessions.Record {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.record
}

func (fs *FakeStore) Writes() []Write {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return append([]Write(nil), fs.writes...)
}

// caller walks past this package's frames and returns the first outside function.
func caller() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, "/sessions/repofakes.") {
			return frame.Function
		}
		if !more {
			return ""
		}
	}
}
