package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"consultdesk/internal/domain/slot"
)

// SaveSlotInput carries the raw slot form. Location is the zone form times were typed in.
type SaveSlotInput struct {
	Token    string
	Form     slot.Form
	Location *time.Location
}

// SaveSlotResult reports the mode that ran and the banner to show.
type SaveSlotResult struct {
	Mode    slot.Mode
	Created int
	Message string
}

// SaveSlotDeps holds dependencies for SaveSlot.
type SaveSlotDeps struct {
	Slots SlotWriter
}

// ExecuteSaveSlot edits one slot, creates a batch, or creates one slot.
// PRE: input.Location is non-nil
// POST: Exactly one of PATCH /slots/:id, POST /slots/batch, POST /slots was issued on success
// INVARIANT: A batch whose end is not after its start never reaches the API
func ExecuteSaveSlot(ctx context.Context, input SaveSlotInput, deps SaveSlotDeps) (SaveSlotResult, error) {
	if err := requireToken(input.Token); err != nil {
		return SaveSlotResult{}, err
	}
	plan, err := input.Form.Plan(input.Location)
	if err != nil {
		return SaveSlotResult{}, err
	}

	result := SaveSlotResult{Mode: plan.Mode}
	switch plan.Mode {
	case slot.ModeEdit:
		if _, err := deps.Slots.UpdateSlot(ctx, input.Token, plan.SlotID, plan.StartAt, plan.DurationMinutes); err != nil {
			return SaveSlotResult{}, err
		}
		result.Created = 0
		result.Message = "Слот обновлён"
	case slot.ModeBatch:
		created, err := deps.Slots.CreateSlotBatch(ctx, input.Token, plan.ExpertID, plan.StartAt, plan.EndAt, plan.DurationMinutes)
		if err != nil {
			return SaveSlotResult{}, err
		}
		result.Created = len(created)
		result.Message = "Слоты добавлены"
	default:
		if _, err := deps.Slots.CreateSlot(ctx, input.Token, plan.ExpertID, plan.StartAt, plan.DurationMinutes); err != nil {
			return SaveSlotResult{}, err
		}
		result.Created = 1
		result.Message = "Слот добавлен"
	}

	slog.Info("admin_event",
		"event", "slot_saved",
		"mode", plan.Mode.String(),
		"expert_id", plan.ExpertID,
		"created", result.Created,
	)
	return result, nil
}

// DeleteSlotDeps holds dependencies for DeleteSlot.
type DeleteSlotDeps struct {
	Slots SlotWriter
}

// ExecuteDeleteSlot removes a slot. There is no success banner for this action.
// PRE: input.ID > 0
// POST: DELETE issued only when confirmed and a token is held
func ExecuteDeleteSlot(ctx context.Context, input DeleteInput, deps DeleteSlotDeps) error {
	if !input.Confirmed {
		return ErrNotConfirmed
	}
	if err := requireToken(input.Token); err != nil {
		return err
	}
	if err := deps.Slots.DeleteSlot(ctx, input.Token, input.ID); err != nil {
		return err
	}
	slog.Info("admin_event", "event", "slot_deleted", "slot_id", input.ID)
	return nil
}
