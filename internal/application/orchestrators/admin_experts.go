package orchestrators

import (
	"context"
	"log/slog"

	"consultdesk/internal/domain/expert"
)

// SaveExpertInput carries the expert form. ExpertID > 0 selects edit mode.
type SaveExpertInput struct {
	Token    string
	ExpertID int64
	Expert   expert.Input
}

// SaveExpertResult reports which mode ran and the banner to show.
type SaveExpertResult struct {
	Updated bool
	Message string
}

// SaveExpertDeps holds dependencies for SaveExpert.
type SaveExpertDeps struct {
	Experts ExpertWriter
}

// ExecuteSaveExpert creates or updates an expert.
// PRE: none
// POST: On success exactly one create or update call was made; blank optional fields were sent as null
// INVARIANT: No API call without a token or with a missing required field
func ExecuteSaveExpert(ctx context.Context, input SaveExpertInput, deps SaveExpertDeps) (SaveExpertResult, error) {
	if err := requireToken(input.Token); err != nil {
		return SaveExpertResult{}, err
	}
	in := input.Expert.Normalize()
	if err := in.Validate(); err != nil {
		return SaveExpertResult{}, err
	}

	if input.ExpertID > 0 {
		if _, err := deps.Experts.UpdateExpert(ctx, input.Token, input.ExpertID, in); err != nil {
			return SaveExpertResult{}, err
		}
		slog.Info("admin_event", "event", "expert_updated", "expert_id", input.ExpertID)
		return SaveExpertResult{Updated: true, Message: "Эксперт обновлён"}, nil
	}

	created, err := deps.Experts.CreateExpert(ctx, input.Token, in)
	if err != nil {
		return SaveExpertResult{}, err
	}
	slog.Info("admin_event", "event", "expert_created", "expert_id", created.ID)
	return SaveExpertResult{Message: "Эксперт добавлен"}, nil
}

// DeleteInput identifies an entity to delete. Confirmed must be set by the confirmation step.
type DeleteInput struct {
	Token     string
	ID        int64
	Confirmed bool
}

// DeleteExpertDeps holds dependencies for DeleteExpert.
type DeleteExpertDeps struct {
	Experts ExpertWriter
}

// ExecuteDeleteExpert removes an expert with all its slots.
// PRE: input.ID > 0
// POST: DELETE issued only when confirmed and a token is held
func ExecuteDeleteExpert(ctx context.Context, input DeleteInput, deps DeleteExpertDeps) (string, error) {
	if !input.Confirmed {
		return "", ErrNotConfirmed
	}
	if err := requireToken(input.Token); err != nil {
		return "", err
	}
	if err := deps.Experts.DeleteExpert(ctx, input.Token, input.ID); err != nil {
		return "", err
	}
	slog.Info("admin_event", "event", "expert_deleted", "expert_id", input.ID)
	return "Эксперт удалён", nil
}
