package schedule

// Edit events emitted by the map drawing widget.
const (
	EventCreate        = "draw.create"
	EventDelete        = "draw.delete"
	EventUpdate        = "draw.update"
	EventEditStart     = "draw.editstart"
	EventEditEnd       = "draw.editend"
	EventVertexAdded   = "draw.vertexadded"
	EventVertexRemoved = "draw.vertexremoved"
	EventVertexDrag    = "draw.vertexdrag"
	EventDragStart     = "draw.dragstart"
	EventDragEnd       = "draw.dragend"
	EventSnap          = "draw.snap"
	EventUnsnap        = "draw.unsnap"
)

var triggers = map[string]bool{
	EventCreate:        true,
	EventDelete:        true,
	EventUpdate:        true,
	EventEditStart:     true,
	EventEditEnd:       true,
	EventVertexAdded:   true,
	EventVertexRemoved: true,
	EventVertexDrag:    true,
	EventDragStart:     true,
	EventDragEnd:       true,
	EventSnap:          true,
	EventUnsnap:        true,
}

// Triggers reports whether an event schedules a totals recomputation.
func Triggers(name string) bool { return triggers[name] }

// IsEditEnd reports whether an event ends a gesture, after which the live
// layer is committed to state.
func IsEditEnd(name string) bool {
	switch name {
	case EventEditEnd, EventDragEnd, EventCreate, EventDelete, EventUpdate:
		return true
	}
	return false
}

// Events returns every known event name.
func Events() []string {
	return []string{
		EventCreate, EventDelete, EventUpdate, EventEditStart, EventEditEnd,
		EventVertexAdded, EventVertexRemoved, EventVertexDrag,
		EventDragStart, EventDragEnd, EventSnap, EventUnsnap,
	}
}
