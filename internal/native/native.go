// Package native defines the command interface to the platform recognizer
// layer and an in-memory implementation that records every command.
package native

import (
	"github.com/dshills/gesturekit/internal/gesture"
)

// ViewID identifies a host view gestures attach to.
type ViewID int64

// RelationLists are resolved relations as sent to the platform.
type RelationLists struct {
	WaitFor              []gesture.Tag
	SimultaneousHandlers []gesture.Tag
	BlocksHandlers       []gesture.Tag
}

// Empty reports whether no relation is set.
func (r RelationLists) Empty() bool {
	return len(r.WaitFor) == 0 && len(r.SimultaneousHandlers) == 0 && len(r.BlocksHandlers) == 0
}

// Commands is the command interface of the platform layer. Every method
// except CreateGestureHandler is safe to retry.
type Commands interface {
	CreateGestureHandler(kind string, tag gesture.Tag, config gesture.Config) error
	SetGestureHandlerConfig(tag gesture.Tag, config gesture.Config, relations RelationLists) error
	AttachGestureHandler(tag gesture.Tag, view ViewID, mode gesture.ExecutionContext) error
	DropGestureHandler(tag gesture.Tag) error
	ConfigureRelations(tag gesture.Tag, relations RelationLists) error
	SetGestureHandlerState(tag gesture.Tag, state gesture.State) error
	FlushPendingCommands() error
}
