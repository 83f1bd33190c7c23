package format_test

import (
	"errors"
	"testing"
	"time"

	"consultdesk/internal/domain/format"
)

func TestDateTime(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "monday in may",
			in:   time.Date(2025, time.May, 5, 11, 30, 0, 0, time.UTC),
			want: "пн, 5 мая, 14:30",
		},
		{
			name: "crosses midnight into next day",
			in:   time.Date(2025, time.December, 31, 22, 5, 0, 0, time.UTC),
			want: "чт, 1 января, 01:05",
		},
		{
			name: "sunday",
			in:   time.Date(2025, time.March, 9, 6, 0, 0, 0, time.UTC),
			want: "вс, 9 марта, 09:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := format.DateTime(tt.in, moscow); got != tt.want {
				t.Errorf("DateTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDateTimeInput(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)

	got, err := format.ParseDateTimeInput("2025-05-05T14:30", loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, time.May, 5, 11, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDateTimeInput() = %v, want %v", got, want)
	}

	if _, err := format.ParseDateTimeInput("2025-05-05T14:30:00", loc); err != nil {
		t.Errorf("seconds form rejected: %v", err)
	}
	if _, err := format.ParseDateTimeInput("  ", loc); !errors.Is(err, format.ErrEmptyDateTime) {
		t.Errorf("blank input error = %v, want ErrEmptyDateTime", err)
	}
	if _, err := format.ParseDateTimeInput("05.05.2025 14:30", loc); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestDateTimeInput_RoundTrip(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	in := time.Date(2025, time.May, 5, 11, 30, 0, 0, time.UTC)
	if got := format.DateTimeInput(in, loc); got != "2025-05-05T14:30" {
		t.Errorf("DateTimeInput() = %q", got)
	}
	if got := format.DateTimeInput(time.Time{}, loc); got != "" {
		t.Errorf("zero time = %q, want empty", got)
	}
}
