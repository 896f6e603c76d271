package itinerary

import "fmt"

// UpdateIntent is a change to a single day: either a field patch on one
// stop or a wholesale reorder of the day's stops.
type UpdateIntent interface {
	isUpdateIntent()
}

// FieldPatch edits one stop.
type FieldPatch struct {
	StopID string
	Patch  StopPatch
}

// Reorder replaces a day's stop order.
type Reorder struct {
	StopIDs []string
}

func (FieldPatch) isUpdateIntent() {}
func (Reorder) isUpdateIntent()    {}

// ApplyUpdate dispatches intent to UpdateStop or ReorderStops.
func (t *Trip) ApplyUpdate(dayID string, intent UpdateIntent) error {
	switch in := intent.(type) {
	case FieldPatch:
		_, err := t.UpdateStop(dayID, in.StopID, in.Patch)
		return err
	case Reorder:
		return t.ReorderStops(dayID, in.StopIDs)
	default:
		return fmt.Errorf("%w: unsupported update intent %T", ErrValidation, intent)
	}
}
