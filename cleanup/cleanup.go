// Package cleanup reduces an application record to fit a size budget by
// evicting non-essential entries in a fixed priority order. Reduce is a
// pure function of (record, budget); it never mutates its input and never
// removes essential data (accounts and recent progress).
package cleanup

import (
	"slices"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/mathcosmos/recordstore/record"
)

// EncodeFunc measures a candidate record by producing its encoded payload.
// The policy is deliberately codec-agnostic: it only needs sizes.
type EncodeFunc func(*record.Record) (string, error)

type Policy struct {
	// Retention is the age threshold above which progress entries stop
	// being essential and become eviction candidates.
	Retention time.Duration

	l logrus.FieldLogger
}

func NewPolicy(retention time.Duration, logger logrus.FieldLogger) Policy {
	return Policy{
		Retention: retention,
		l:         logger.WithField("component", "cleanup"),
	}
}

// Result describes the outcome of a Reduce call.
type Result struct {
	Record    *record.Record
	Evicted   int  // progress entries removed
	Coarsened int  // skill breakdowns folded into a single mastery level
	Emergency bool // all non-essential categories were exhausted
	Size      int  // encoded size of Record
}

// Reduce returns a copy of rec whose encoded size fits targetSize, if
// possible, by evicting in priority order: stale progress oldest-first,
// then superseded per-module duplicates, then skill breakdown coarsening.
// If those do not suffice, it falls back to the essential-only emergency
// record with a cleared-counters marker and reports Emergency, which the
// orchestrator surfaces as a partial success rather than a silent no-op.
func (p Policy) Reduce(rec *record.Record, targetSize int, now time.Time, encode EncodeFunc) (Result, error) {
	work := rec.Clone()
	res := Result{Record: work}

	size, err := encodedSize(work, encode)
	if err != nil {
		return Result{}, err
	}
	res.Size = size
	if size <= targetSize {
		return res, nil
	}

	fits := func() (bool, error) {
		size, err := encodedSize(work, encode)
		if err != nil {
			return false, err
		}
		res.Size = size
		return size <= targetSize, nil
	}

	// Priority 1: progress entries past retention, oldest first
	cutoff := now.Add(-p.Retention)
	stale := lo.Filter(work.Progress, func(e record.ProgressEntry, _ int) bool {
		return e.UpdatedAt.Before(cutoff)
	})
	sortOldestFirst(stale)
	for _, victim := range stale {
		work.Progress = removeProgress(work.Progress, victim.ID)
		res.Evicted++
		if ok, err := fits(); err != nil {
			return Result{}, err
		} else if ok {
			p.logReduced(targetSize, res)
			return res, nil
		}
	}

	// Priority 2: superseded entries for the same account and module,
	// keeping only the latest of each group
	groups := lo.GroupBy(work.Progress, func(e record.ProgressEntry) string {
		return e.AccountID + "\x00" + e.ModuleID
	})
	var superseded []record.ProgressEntry
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sortOldestFirst(group)
		superseded = append(superseded, group[:len(group)-1]...)
	}
	sortOldestFirst(superseded)
	for _, victim := range superseded {
		work.Progress = removeProgress(work.Progress, victim.ID)
		res.Evicted++
		if ok, err := fits(); err != nil {
			return Result{}, err
		} else if ok {
			p.logReduced(targetSize, res)
			return res, nil
		}
	}

	// Priority 3: coarsen detailed skill breakdowns on what remains.
	// The entry itself is kept, only its detail is reduced.
	for i := range work.Progress {
		if work.Progress[i].Skills == nil {
			continue
		}
		coarsen(&work.Progress[i])
		res.Coarsened++
		if ok, err := fits(); err != nil {
			return Result{}, err
		} else if ok {
			p.logReduced(targetSize, res)
			return res, nil
		}
	}

	// Exhausted: fall back to the smallest essential-only record
	em := p.Emergency(rec, now)
	size, err = encodedSize(em, encode)
	if err != nil {
		return Result{}, err
	}
	res.Record = em
	res.Emergency = true
	res.Size = size
	p.l.WithFields(logrus.Fields{
		"target": datasize.ByteSize(targetSize),
		"size":   datasize.ByteSize(size),
	}).Warn("Cleanup exhausted, reduced to essential data only")
	return res, nil
}

// Emergency derives the minimal record that must never be lost: accounts
// and recent progress with coarsened detail, marked as counter-cleared.
func (p Policy) Emergency(rec *record.Record, now time.Time) *record.Record {
	em := rec.Essential(p.Retention, now)
	for i := range em.Progress {
		if em.Progress[i].Skills != nil {
			coarsen(&em.Progress[i])
		}
	}
	em.CountersCleared = true
	em.ClearedAt = now
	return em
}

func (p Policy) logReduced(targetSize int, res Result) {
	p.l.WithFields(logrus.Fields{
		"target":    datasize.ByteSize(targetSize),
		"size":      datasize.ByteSize(res.Size),
		"evicted":   res.Evicted,
		"coarsened": res.Coarsened,
	}).Info("Reduced record to fit size budget")
}

// coarsen replaces a per-skill breakdown with its mean mastery level.
func coarsen(e *record.ProgressEntry) {
	if len(e.Skills) > 0 {
		var sum float64
		for _, v := range e.Skills {
			sum += v
		}
		e.Mastery = sum / float64(len(e.Skills))
	}
	e.Skills = nil
}

func sortOldestFirst(entries []record.ProgressEntry) {
	slices.SortFunc(entries, func(a, b record.ProgressEntry) int {
		switch {
		case a.UpdatedAt.Before(b.UpdatedAt):
			return -1
		case a.UpdatedAt.After(b.UpdatedAt):
			return 1
		}
		return 0
	})
}

func removeProgress(entries []record.ProgressEntry, id string) []record.ProgressEntry {
	return lo.Reject(entries, func(e record.ProgressEntry, _ int) bool {
		return e.ID == id
	})
}

func encodedSize(rec *record.Record, encode EncodeFunc) (int, error) {
	payload, err := encode(rec)
	if err != nil {
		return 0, err
	}
	return len(payload), nil
}
