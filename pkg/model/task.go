package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidAttribute  = errors.New("invalid attribute")
)

// Difficulty is how hard a task is to complete.
type Difficulty string

const (
	Trivial Difficulty = "trivial"
	Easy    Difficulty = "easy"
	Medium  Difficulty = "medium"
	Hard    Difficulty = "hard"
)

// Difficulties lists every valid Difficulty, easiest first.
var Difficulties = []Difficulty{Trivial, Easy, Medium, Hard}

// ParseDifficulty converts a case-insensitive name into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Difficulties {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// Attribute is the character attribute a task trains.
type Attribute string

const (
	Strength     Attribute = "strength"
	Intelligence Attribute = "intelligence"
	Constitution Attribute = "constitution"
	Perception   Attribute = "perception"
)

// Attributes lists every valid Attribute.
var Attributes = []Attribute{Strength, Intelligence, Constitution, Perception}

// ParseAttribute converts a case-insensitive name into an Attribute.
func ParseAttribute(s string) (Attribute, error) {
	a := Attribute(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Attributes {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAttribute, s)
}

// SyncStatus records what the most recent synchronisation pass did to a task.
type SyncStatus int

const (
	StatusUnchanged SyncStatus = iota
	StatusNew
	StatusUpdated
	StatusDeleted
)

func (s SyncStatus) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusNew:
		return "new"
	case StatusUpdated:
		return "updated"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("SyncStatus(%d)", int(s))
	}
}

// Task represents a synchronisable task from any service.
type Task struct {
	// ID is owned by the service that created the task. Empty until persisted.
	ID          string
	Name        string
	Description string
	Completed   bool
	Difficulty  Difficulty
	Attribute   Attribute
	// Status is transient and never compared between services.
	Status SyncStatus
}

// CopyFrom overwrites the mutable fields of t with those of src.
// ID and Status are left alone.
func (t *Task) CopyFrom(src Task) {
	t.Name = src.Name
	t.Description = src.Description
	t.Completed = src.Completed
	t.Difficulty = src.Difficulty
	t.Attribute = src.Attribute
}

// SameContent reports whether the mutable fields of t and other are equal.
func (t Task) SameContent(other Task) bool {
	return t.Name == other.Name &&
		t.Description == other.Description &&
		t.Completed == other.Completed &&
		t.Difficulty == other.Difficulty &&
		t.Attribute == other.Attribute
}
