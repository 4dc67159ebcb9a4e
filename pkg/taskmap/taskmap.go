// Package taskmap keeps the durable association between source and
// destination task IDs. Each source ID maps to at most one destination ID
// and each destination ID to at most one source ID.
package taskmap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/harrisonrobin/tasksync/pkg/model"
)

var (
	ErrSourceAlreadyMapped      = errors.New("source task already mapped")
	ErrDestinationAlreadyMapped = errors.New("destination task already mapped")
	ErrBothAlreadyMapped        = errors.New("source and destination tasks already mapped")
	ErrNotMapped                = errors.New("task not mapped")
)

// TaskMap is a two-way unique association of task IDs.
// It is not safe for concurrent use.
type TaskMap struct {
	srcToDst map[string]string
	dstToSrc map[string]string
	dirty    bool
}

func New() *TaskMap {
	return &TaskMap{
		srcToDst: make(map[string]string),
		dstToSrc: make(map[string]string),
	}
}

// Map associates src with dst.
func (m *TaskMap) Map(src, dst model.Task) error {
	return m.MapIDs(src.ID, dst.ID)
}

// MapIDs associates srcID with dstID. Both sides are checked before either
// table changes, so a failed call leaves the map untouched.
func (m *TaskMap) MapIDs(srcID, dstID string) error {
	if srcID == "" || dstID == "" {
		return fmt.Errorf("cannot map empty task id (source %q, destination %q)", srcID, dstID)
	}

	mappedDst, srcTaken := m.srcToDst[srcID]
	mappedSrc, dstTaken := m.dstToSrc[dstID]
	switch {
	case srcTaken && dstTaken:
		return fmt.Errorf("%w: %s -> %s, %s -> %s", ErrBothAlreadyMapped, srcID, mappedDst, mappedSrc, dstID)
	case srcTaken:
		return fmt.Errorf("%w: %s -> %s", ErrSourceAlreadyMapped, srcID, mappedDst)
	case dstTaken:
		return fmt.Errorf("%w: %s -> %s", ErrDestinationAlreadyMapped, mappedSrc, dstID)
	}

	m.srcToDst[srcID] = dstID
	m.dstToSrc[dstID] = srcID
	m.dirty = true
	return nil
}

// UnmapBySource removes the pair holding srcID, if any.
func (m *TaskMap) UnmapBySource(srcID string) {
	dstID, ok := m.srcToDst[srcID]
	if !ok {
		return
	}
	delete(m.srcToDst, srcID)
	delete(m.dstToSrc, dstID)
	m.dirty = true
}

// UnmapByDestination removes the pair holding dstID, if any.
func (m *TaskMap) UnmapByDestination(dstID string) {
	srcID, ok := m.dstToSrc[dstID]
	if !ok {
		return
	}
	delete(m.dstToSrc, dstID)
	delete(m.srcToDst, srcID)
	m.dirty = true
}

func (m *TaskMap) DestinationID(srcID string) (string, error) {
	dstID, ok := m.srcToDst[srcID]
	if !ok {
		return "", fmt.Errorf("%w: source %s", ErrNotMapped, srcID)
	}
	return dstID, nil
}

func (m *TaskMap) SourceID(dstID string) (string, error) {
	srcID, ok := m.dstToSrc[dstID]
	if !ok {
		return "", fmt.Errorf("%w: destination %s", ErrNotMapped, dstID)
	}
	return srcID, nil
}

func (m *TaskMap) TryDestinationID(srcID string) (string, bool) {
	dstID, ok := m.srcToDst[srcID]
	return dstID, ok
}

func (m *TaskMap) TrySourceID(dstID string) (string, bool) {
	srcID, ok := m.dstToSrc[dstID]
	return srcID, ok
}

// AllSourceIDs returns every mapped source ID in sorted order.
func (m *TaskMap) AllSourceIDs() []string {
	ids := make([]string, 0, len(m.srcToDst))
	for id := range m.srcToDst {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pairs returns a copy of the source -> destination associations.
func (m *TaskMap) Pairs() map[string]string {
	pairs := make(map[string]string, len(m.srcToDst))
	for src, dst := range m.srcToDst {
		pairs[src] = dst
	}
	return pairs
}

func (m *TaskMap) Len() int {
	return len(m.srcToDst)
}

// Dirty reports whether the map changed since it was loaded or last saved.
func (m *TaskMap) Dirty() bool {
	return m.dirty
}
