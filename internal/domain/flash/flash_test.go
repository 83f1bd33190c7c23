package flash_test

import (
	"testing"

	"consultdesk/internal/domain/flash"
)

func TestSet_PutReplacesAndClears(t *testing.T) {
	s := flash.Set{}

	s.Success(flash.TargetAdmin, "Эксперт добавлен")
	s.Error(flash.TargetAdmin, "Ошибка запроса")

	got, ok := s.Get(flash.TargetAdmin)
	if !ok {
		t.Fatal("expected a message for admin target")
	}
	if got.Text != "Ошибка запроса" || got.Kind != flash.KindError {
		t.Errorf("message = %+v, want replaced error", got)
	}
	if len(s) != 1 {
		t.Errorf("len = %d, want 1 (no history)", len(s))
	}

	s.Put(flash.TargetAdmin, "", flash.KindSuccess)
	if _, ok := s.Get(flash.TargetAdmin); ok {
		t.Error("empty text should clear the target")
	}
}

func TestSet_UnknownKindDefaultsToSuccess(t *testing.T) {
	s := flash.Set{}
	s.Put(flash.TargetCancel, "Запись удалена", "info")
	if got, _ := s.Get(flash.TargetCancel); got.Kind != flash.KindSuccess {
		t.Errorf("kind = %q, want success", got.Kind)
	}
}
