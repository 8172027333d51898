package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/INLOpen/nexusolap/core"
)

// EventType defines the type of a hook event.
type EventType string

const (
	// Snapshot lifecycle events.
	EventPreCreateSnapshot   EventType = "PreCreateSnapshot"
	EventPostCreateSnapshot  EventType = "PostCreateSnapshot"
	EventPreReleaseSnapshot  EventType = "PreReleaseSnapshot"
	EventPostReleaseSnapshot EventType = "PostReleaseSnapshot"

	// Engine lifecycle events.
	EventPostTabletLoad EventType = "PostTabletLoad"
)

// HookEvent is the interface that all event objects implement.
type HookEvent interface {
	Type() EventType
	Payload() interface{}
}

// BaseEvent provides a base implementation for HookEvent.
type BaseEvent struct {
	eventType EventType
	payload   interface{}
}

func (e *BaseEvent) Type() EventType      { return e.eventType }
func (e *BaseEvent) Payload() interface{} { return e.payload }

// PreCreateSnapshotPayload carries the request before a snapshot is staged.
// Pre-hook listeners may return an error to cancel the operation.
type PreCreateSnapshotPayload struct {
	TabletID   core.TabletID
	SchemaHash core.SchemaHash
	Request    *core.SnapshotRequest
}

func NewPreCreateSnapshotEvent(p PreCreateSnapshotPayload) HookEvent {
	return &BaseEvent{eventType: EventPreCreateSnapshot, payload: p}
}

// PostCreateSnapshotPayload carries the result of a successful snapshot.
type PostCreateSnapshotPayload struct {
	TabletID     core.TabletID
	SchemaHash   core.SchemaHash
	SnapshotPath string
	Incremental  bool
}

func NewPostCreateSnapshotEvent(p PostCreateSnapshotPayload) HookEvent {
	return &BaseEvent{eventType: EventPostCreateSnapshot, payload: p}
}

// PreReleaseSnapshotPayload carries the path about to be released.
type PreReleaseSnapshotPayload struct {
	SnapshotPath string
}

func NewPreReleaseSnapshotEvent(p PreReleaseSnapshotPayload) HookEvent {
	return &BaseEvent{eventType: EventPreReleaseSnapshot, payload: p}
}

// PostReleaseSnapshotPayload carries the path that was deleted.
type PostReleaseSnapshotPayload struct {
	SnapshotPath string
}

func NewPostReleaseSnapshotEvent(p PostReleaseSnapshotPayload) HookEvent {
	return &BaseEvent{eventType: EventPostReleaseSnapshot, payload: p}
}

// PostTabletLoadPayload is fired for every tablet header loaded at startup.
type PostTabletLoadPayload struct {
	TabletID   core.TabletID
	SchemaHash core.SchemaHash
}

func NewPostTabletLoadEvent(p PostTabletLoadPayload) HookEvent {
	return &BaseEvent{eventType: EventPostTabletLoad, payload: p}
}

// HookListener is the interface implemented by hook consumers.
type HookListener interface {
	OnEvent(ctx context.Context, event HookEvent) error
	// Priority orders listeners for one event type; lower runs first.
	Priority() int
	// IsAsync requests asynchronous dispatch. Only honored for post-hooks;
	// pre-hooks are always synchronous so they can cancel the operation.
	IsAsync() bool
}

// FuncListener adapts a plain function into a synchronous HookListener.
type FuncListener struct {
	Fn   func(ctx context.Context, event HookEvent) error
	Prio int
}

func (f FuncListener) OnEvent(ctx context.Context, event HookEvent) error { return f.Fn(ctx, event) }
func (f FuncListener) Priority() int                                      { return f.Prio }
func (f FuncListener) IsAsync() bool                                      { return false }

// HookManager defines the interface for managing and triggering hooks.
type HookManager interface {
	Register(eventType EventType, listener HookListener)
	// Trigger fires all registered listeners for an event in priority order.
	// An error from a pre-hook listener cancels the operation; errors from
	// post-hook listeners are logged and swallowed.
	Trigger(ctx context.Context, event HookEvent) error
	// Stop waits for outstanding asynchronous listeners to finish.
	Stop()
}

type listenerWithPriority struct {
	listener HookListener
	priority int
}

// DefaultHookManager is the concrete HookManager.
type DefaultHookManager struct {
	listeners map[EventType][]*listenerWithPriority
	mu        sync.RWMutex
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// NewHookManager creates a DefaultHookManager. A nil logger discards output.
func NewHookManager(logger *slog.Logger) HookManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultHookManager{
		listeners: make(map[EventType][]*listenerWithPriority),
		logger:    logger,
	}
}

// Register adds a listener for an event type, keeping the slice sorted by
// priority.
func (m *DefaultHookManager) Register(eventType EventType, listener HookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &listenerWithPriority{listener: listener, priority: listener.Priority()}
	l := m.listeners[eventType]
	idx := sort.Search(len(l), func(i int) bool {
		return l[i].priority >= item.priority
	})
	l = append(l, nil)
	copy(l[idx+1:], l[idx:])
	l[idx] = item
	m.listeners[eventType] = l
}

func (m *DefaultHookManager) Trigger(ctx context.Context, event HookEvent) error {
	m.mu.RLock()
	listeners := m.listeners[event.Type()]
	m.mu.RUnlock()

	if len(listeners) == 0 {
		return nil
	}

	isPreHook := strings.HasPrefix(string(event.Type()), "Pre")

	for _, item := range listeners {
		if isPreHook || !item.listener.IsAsync() {
			if err := item.listener.OnEvent(ctx, event); err != nil {
				if isPreHook {
					return fmt.Errorf("pre-hook for event %s (priority %d) failed: %w", event.Type(), item.priority, err)
				}
				m.logger.Error("Error from synchronous post-hook listener", "event", event.Type(), "priority", item.priority, "error", err)
			}
		} else {
			m.wg.Add(1)
			go func(current *listenerWithPriority) {
				defer m.wg.Done()
				if err := current.listener.OnEvent(ctx, event); err != nil {
					m.logger.Error("Error from asynchronous post-hook listener", "event", event.Type(), "priority", current.priority, "error", err)
				}
			}(item)
		}
	}
	return nil
}

// Stop waits for all asynchronous listeners to complete.
func (m *DefaultHookManager) Stop() {
	m.wg.Wait()
}
