// Package store holds the task list state: the ordered collection, the
// active filter and the id counter. Every mutation writes the whole
// collection to one key of a kv.Storage before returning.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tasks/internal/kv"
	"github.com/idilsaglam/tasks/internal/logging"
	"github.com/idilsaglam/tasks/internal/model"
)

// DefaultKey is the storage key holding the serialized collection.
const DefaultKey = "tasks"

// ErrMalformed marks persisted data that could not be turned into a valid
// collection. Load leaves the store untouched when it returns this.
var ErrMalformed = errors.New("malformed task data")

// Snapshot is a copy of the store state handed to subscribers.
type Snapshot struct {
	Tasks    []model.Task
	Filter   model.Filter
	Filtered []model.Task
	NextID   int
}

// Stats are the header counters shown by the UIs.
type Stats struct {
	Total, Done, Pending int
}

type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

type Store struct {
	mu      sync.Mutex
	storage kv.Storage
	key     string
	log     *log.Logger

	tasks  []model.Task
	filter model.Filter
	nextID int

	subs   []subscriber
	subSeq int
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// New returns an empty store backed by storage. Call Load to restore
// previously persisted tasks.
func New(storage kv.Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		log:     logging.Discard(),
		tasks:   []model.Task{},
		filter:  model.FilterAll,
		nextID:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------- reads ----------------

func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.tasks)
}

func (s *Store) Filter() model.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// FilteredTasks is the collection as seen through the current filter.
func (s *Store) FilteredTasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterTasks(s.tasks, s.filter)
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

// Get looks a task up by id.
func (s *Store) Get(id int) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Completed {
			st.Done++
		} else {
			st.Pending++
		}
	}
	return st
}

// Categories returns the distinct non-empty categories in first-seen order.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, t := range s.tasks {
		if t.Category == "" || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	return out
}

// FilterTasks returns the tasks matching f, in order. tasks is not modified.
func FilterTasks(tasks []model.Task, f model.Filter) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// ---------------- subscriptions ----------------

// Subscribe registers fn to receive a Snapshot after every state change.
// fn runs on the goroutine that made the change, after the store is
// unlocked, so it may call back into the store. Subscribers are called in
// the order they subscribed. The returned func unregisters fn.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subSeq++
	id := s.subSeq
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// ---------------- mutations ----------------

// SetFilter replaces the current filter. Nothing is persisted.
func (s *Store) SetFilter(f model.Filter) {
	s.update(func() bool {
		if s.filter == f {
			return false
		}
		s.filter = f
		return true
	}, false)
}

// AddTask appends a new open task and persists the collection.
// The task is kept in memory even if the write fails.
func (s *Store) AddTask(title, category string) (model.Task, error) {
	var t model.Task
	err := s.update(func() bool {
		t = model.Task{ID: s.nextID, Title: title, Category: category}
		s.tasks = append(s.tasks, t)
		s.nextID++
		return true
	}, true)
	return t, err
}

// ToggleTask flips the completion flag of task id. Unknown ids are ignored.
func (s *Store) ToggleTask(id int) error {
	return s.update(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.tasks[i].Completed = !s.tasks[i].Completed
		return true
	}, true)
}

// DeleteTask removes task id, keeping the order of the rest. Unknown ids are
// ignored.
func (s *Store) DeleteTask(id int) error {
	return s.update(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		return true
	}, true)
}

// EditTask replaces the title of task id. Unknown ids are ignored.
func (s *Store) EditTask(id int, title string) error {
	return s.update(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.tasks[i].Title = title
		return true
	}, true)
}

// ClearCompleted drops every completed task and persists the survivors.
func (s *Store) ClearCompleted() error {
	return s.update(func() bool {
		s.tasks = FilterTasks(s.tasks, model.FilterActive)
		return true
	}, true)
}

// Load replaces the collection with the persisted one and recomputes the id
// counter. An absent key leaves the store as it is. Malformed data also
// leaves the store as it is and returns an error wrapping ErrMalformed.
func (s *Store) Load() error {
	raw, ok, err := s.storage.Get(s.key)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		s.log.Debug("no persisted tasks", "key", s.key)
		return nil
	}
	tasks, err := decode(raw)
	if err != nil {
		s.log.Warn("ignoring persisted tasks", "key", s.key, "err", err)
		return fmt.Errorf("load tasks: %w", err)
	}
	// nothing is written here, so update cannot fail
	_ = s.update(func() bool {
		s.tasks = tasks
		s.nextID = nextIDFor(tasks)
		return true
	}, false)
	s.log.Debug("loaded tasks", "key", s.key, "count", len(tasks))
	return nil
}

// update runs fn under the lock. When fn reports a change it optionally
// persists and then notifies subscribers outside the lock.
func (s *Store) update(fn func() bool, persist bool) error {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return nil
	}
	var err error
	if persist {
		err = s.saveLocked()
	}
	snap := s.snapshotLocked()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
	return err
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Tasks:    clone(s.tasks),
		Filter:   s.filter,
		Filtered: FilterTasks(s.tasks, s.filter),
		NextID:   s.nextID,
	}
}

func (s *Store) saveLocked() error {
	b, err := json.Marshal(s.tasks)
	if err != nil {
		return fmt.Errorf("save tasks: json marshal: %w", err)
	}
	if err := s.storage.Set(s.key, string(b)); err != nil {
		s.log.Error("save failed", "key", s.key, "err", err)
		return fmt.Errorf("save tasks: %w", err)
	}
	s.log.Debug("saved tasks", "key", s.key, "count", len(s.tasks))
	return nil
}

func (s *Store) indexOf(id int) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// decode parses the persisted array. Every element must be an object with a
// positive id that no other element uses.
func decode(raw string) ([]model.Task, error) {
	var records []*model.Task
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: not an array", ErrMalformed)
	}
	tasks := make([]model.Task, 0, len(records))
	seen := make(map[int]bool, len(records))
	for i, t := range records {
		switch {
		case t == nil:
			return nil, fmt.Errorf("%w: null entry at index %d", ErrMalformed, i)
		case t.ID < 1:
			return nil, fmt.Errorf("%w: missing or invalid id at index %d", ErrMalformed, i)
		case seen[t.ID]:
			return nil, fmt.Errorf("%w: duplicate id %d", ErrMalformed, t.ID)
		}
		seen[t.ID] = true
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

// nextIDFor is max(0, ids...) + 1.
func nextIDFor(tasks []model.Task) int {
	hi := 0
	for _, t := range tasks {
		if t.ID > hi {
			hi = t.ID
		}
	}
	return hi + 1
}

func clone(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}
