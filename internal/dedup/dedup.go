// Package dedup gates alerts to at most one per rule (or rule+position)
// per exchange-local trading day.
package dedup

import (
	"fmt"
	"sync"
	"time"
)

// Deduplicator tracks which rule keys already fired per trading day.
// ShouldAlert is an atomic check-and-set. The ledger is an explicit
// instance owned by the coordinator, not a package-level global.
type Deduplicator struct {
	mu   sync.Mutex
	days map[string]map[string]struct{}
	loc  *time.Location
	now  func() time.Time
}

// New creates a Deduplicator keyed on the exchange calendar.
func New(loc *time.Location) *Deduplicator {
	return &Deduplicator{
		days: make(map[string]map[string]struct{}),
		loc:  loc,
		now:  time.Now,
	}
}

// NewWithClock creates a Deduplicator with an injected clock, for tests.
func NewWithClock(loc *time.Location, now func() time.Time) *Deduplicator {
	d := New(loc)
	d.now = now
	return d
}

func (d *Deduplicator) todayKey() string {
	return d.now().In(d.loc).Format("2006-01-02")
}

func ruleKey(ruleName string, positionID *int64) string {
	if positionID != nil {
		return fmt.Sprintf("%s#pos%d", ruleName, *positionID)
	}
	return ruleName
}

// ShouldAlert returns true exactly once per (rule key, trading day)
// pair, recording the key on the first call.
func (d *Deduplicator) ShouldAlert(ruleName string, positionID *int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	today := d.todayKey()
	fired, ok := d.days[today]
	if !ok {
		fired = make(map[string]struct{})
		d.days[today] = fired
	}

	key := ruleKey(ruleName, positionID)
	if _, dup := fired[key]; dup {
		return false
	}
	fired[key] = struct{}{}
	return true
}

// ResetDaily purges every day except the current one. The daily
// maintenance job calls this.
func (d *Deduplicator) ResetDaily() {
	d.mu.Lock()
	defer d.mu.Unlock()

	today := d.todayKey()
	for day := range d.days {
		if day != today {
			delete(d.days, day)
		}
	}
}

// Clear purges everything.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.days = make(map[string]map[string]struct{})
}
