package models

import (
	"fmt"
	"strings"
)

// WorkerRegistryVersion is bumped whenever the worker set changes.
const WorkerRegistryVersion = 3

// workerSlots is the number of slots per fleet.
const workerSlots = 3

// Fleet is a group of worker slots sharing a name.
type Fleet struct {
	Key  string // id prefix, e.g. "alleycat"
	Name string // display name, e.g. "Alleycat"
}

// Fleets is the single source of truth for valid workers. Worker ids are
// "<fleet key>-<slot>" with slots 1..3.
var Fleets = []Fleet{
	{Key: "alleycat", Name: "Alleycat"},
	{Key: "executor", Name: "Executor"},
	{Key: "local", Name: "Local"},
	{Key: "tydirium", Name: "Tydirium"},
	{Key: "xwing", Name: "X-Wing"},
}

// WorkerOption pairs a display label with a worker id. ID is empty for "Unassigned".
type WorkerOption struct {
	Label string
	ID    string
}

var (
	workerNames   = map[string]string{}
	workerIDs     []string
	workerOptions []WorkerOption
)

func init() {
	workerOptions = append(workerOptions, WorkerOption{Label: "Unassigned"})
	for _, f := range Fleets {
		for slot := 1; slot <= workerSlots; slot++ {
			id := fmt.Sprintf("%s-%d", f.Key, slot)
			name := fmt.Sprintf("%s %d", f.Name, slot)
			workerNames[id] = name
			workerIDs = append(workerIDs, id)
			workerOptions = append(workerOptions, WorkerOption{
				Label: fmt.Sprintf("%s (%s)", name, id),
				ID:    id,
			})
		}
	}
}

// ValidWorker reports whether id is a registered worker. The check is case-sensitive.
func ValidWorker(id string) bool {
	_, ok := workerNames[id]
	return ok
}

// WorkerIDs returns all registered worker ids in registry order.
func WorkerIDs() []string {
	out := make([]string, len(workerIDs))
	copy(out, workerIDs)
	return out
}

// WorkerOptions returns the selection list, "Unassigned" first.
func WorkerOptions() []WorkerOption {
	out := make([]WorkerOption, len(workerOptions))
	copy(out, workerOptions)
	return out
}

// WorkerDisplayName returns e.g. "Alleycat 1" for "alleycat-1", or "" for
// unassigned and unknown ids.
func WorkerDisplayName(id string) string {
	return workerNames[id]
}

// WorkerList formats the valid ids for error messages.
func WorkerList() string {
	return strings.Join(workerIDs, ", ")
}
