// Package statistics provides synchronized thread-safe statistics
// counters for parser profiles.
package statistics

import (
	"sync/atomic"
	"time"

	"github.com/graph-guard/intscan/pkg/intscan"
)

type ProfileSync struct {
	parsed                int64
	ok                    int64
	invalidArgument       int64
	outOfRange            int64
	scannedBytes          int64
	consumedBytes         int64
	highestProcessingTime int64
	averageProcessingTime int64
}

func NewProfileSync() *ProfileSync {
	return &ProfileSync{}
}

// Update records a single parse of scannedBytes bytes
// that consumed r.End bytes.
func (s *ProfileSync) Update(
	scannedBytes int,
	r intscan.Result,
	processingTime time.Duration,
) {
	parsed := atomic.AddInt64(&s.parsed, 1)
	atomic.AddInt64(&s.scannedBytes, int64(scannedBytes))
	atomic.AddInt64(&s.consumedBytes, int64(r.End))

	switch r.Status {
	case intscan.OK:
		atomic.AddInt64(&s.ok, 1)
	case intscan.InvalidArgument:
		atomic.AddInt64(&s.invalidArgument, 1)
	case intscan.OutOfRange:
		atomic.AddInt64(&s.outOfRange, 1)
	}

	// Highest processing time
	for {
		h := atomic.LoadInt64(&s.highestProcessingTime)
		if int64(processingTime) <= h || atomic.CompareAndSwapInt64(
			&s.highestProcessingTime, h, int64(processingTime),
		) {
			break
		}
	}

	// Average processing time
	curAvgProcessingTime := atomic.LoadInt64(&s.averageProcessingTime)
	atomic.AddInt64(
		&s.averageProcessingTime,
		(int64(processingTime)-curAvgProcessingTime)/parsed,
	)
}

func (s *ProfileSync) GetParsed() int64 {
	return atomic.LoadInt64(&s.parsed)
}

func (s *ProfileSync) GetOK() int64 {
	return atomic.LoadInt64(&s.ok)
}

func (s *ProfileSync) GetInvalidArgument() int64 {
	return atomic.LoadInt64(&s.invalidArgument)
}

func (s *ProfileSync) GetOutOfRange() int64 {
	return atomic.LoadInt64(&s.outOfRange)
}

func (s *ProfileSync) GetScannedBytes() int64 {
	return atomic.LoadInt64(&s.scannedBytes)
}

func (s *ProfileSync) GetConsumedBytes() int64 {
	return atomic.LoadInt64(&s.consumedBytes)
}

func (s *ProfileSync) GetHighestProcessingTime() int64 {
	return atomic.LoadInt64(&s.highestProcessingTime)
}

func (s *ProfileSync) GetAverageProcessingTime() int64 {
	return atomic.LoadInt64(&s.averageProcessingTime)
}

// Snapshot is a copy of all counters of a ProfileSync.
// Counters are loaded one by one and may be slightly inconsistent
// under concurrent updates.
type Snapshot struct {
	Parsed                int64         `json:"parsed"`
	OK                    int64         `json:"ok"`
	InvalidArgument       int64         `json:"invalidArgument"`
	OutOfRange            int64         `json:"outOfRange"`
	ScannedBytes          int64         `json:"scannedBytes"`
	ConsumedBytes         int64         `json:"consumedBytes"`
	HighestProcessingTime time.Duration `json:"highestProcessingTime"`
	AverageProcessingTime time.Duration `json:"averageProcessingTime"`
}

func (s *ProfileSync) Snapshot() Snapshot {
	return Snapshot{
		Parsed:                s.GetParsed(),
		OK:                    s.GetOK(),
		InvalidArgument:       s.GetInvalidArgument(),
		OutOfRange:            s.GetOutOfRange(),
		ScannedBytes:          s.GetScannedBytes(),
		ConsumedBytes:         s.GetConsumedBytes(),
		HighestProcessingTime: time.Duration(s.GetHighestProcessingTime()),
		AverageProcessingTime: time.Duration(s.GetAverageProcessingTime()),
	}
}

// Set is a fixed set of per-profile counters.
// The set of ids can't change after NewSet,
// which makes Set safe for concurrent use without locking.
type Set struct {
	byID map[string]*ProfileSync
}

func NewSet(ids ...string) *Set {
	s := &Set{byID: make(map[string]*ProfileSync, len(ids))}
	for _, id := range ids {
		s.byID[id] = NewProfileSync()
	}
	return s
}

// Get returns nil if there's no counters for id.
func (s *Set) Get(id string) *ProfileSync { return s.byID[id] }

// Snapshots returns snapshots of all counters by id.
func (s *Set) Snapshots() map[string]Snapshot {
	m := make(map[string]Snapshot, len(s.byID))
	for id, p := range s.byID {
		m[id] = p.Snapshot()
	}
	return m
}
