package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/assoc/core/certification"
	"github.com/trezcool/assoc/core/exam"
)

type (
	// DB keeps every table behind a single lock, so writes are serialized like a
	// SERIALIZABLE transaction would be.
	DB struct {
		mu    sync.RWMutex
		state *state
	}

	state struct {
		certifications map[string]certification.Certification
		schedules      map[string]exam.Schedule
		applications   map[string]exam.Application
		examNumberSeq  int // shared by every schedule, like the exam_numbers_seq sequence
	}
)

func Open() *DB {
	return &DB{state: newState()}
}

func newState() *state {
	return &state{
		certifications: make(map[string]certification.Certification),
		schedules:      make(map[string]exam.Schedule),
		applications:   make(map[string]exam.Application),
	}
}

// clone copies the tables; records hold only values and read-only pointers.
func (st *state) clone() *state {
	c := &state{
		certifications: make(map[string]certification.Certification, len(st.certifications)),
		schedules:      make(map[string]exam.Schedule, len(st.schedules)),
		applications:   make(map[string]exam.Application, len(st.applications)),
		examNumberSeq:  st.examNumberSeq,
	}
	for k, v := range st.certifications {
		c.certifications[k] = v
	}
	for k, v := range st.schedules {
		c.schedules[k] = v
	}
	for k, v := range st.applications {
		c.applications[k] = v
	}
	return c
}

// Truncate empties every table.
func (db *DB) Truncate() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state = newState()
}

// PingContext always succeeds.
func (db *DB) PingContext(context.Context) error { return nil }
