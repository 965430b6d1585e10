package model

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2025-02", false},
		{"1999-12", false},
		{"2025-2", true},
		{"2025-13", true},
		{"2025-02-01", true},
		{"feb", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePeriod(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ParsePeriod(%q) error = %v, want ErrValidation", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q): %v", tt.in, err)
			}
			if string(p) != tt.in {
				t.Errorf("got %q", p)
			}
		})
	}
}

func TestPeriodAddMonths(t *testing.T) {
	tests := []struct {
		p    Period
		n    int
		want Period
	}{
		{"2025-02", -2, "2024-12"},
		{"2025-02", -6, "2024-08"},
		{"2024-12", 1, "2025-01"},
		{"2025-06", 0, "2025-06"},
		{"2025-01", -13, "2023-12"},
	}
	for _, tt := range tests {
		if got := tt.p.AddMonths(tt.n); got != tt.want {
			t.Errorf("%s.AddMonths(%d) = %s, want %s", tt.p, tt.n, got, tt.want)
		}
	}
}

func TestPeriodOfUsesLocation(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	instant := time.Date(2025, time.January, 31, 22, 30, 0, 0, time.UTC)

	if got := PeriodOf(instant); got != "2025-01" {
		t.Errorf("UTC period = %s", got)
	}
	if got := PeriodOf(instant.In(eat)); got != "2025-02" {
		t.Errorf("EAT period = %s", got)
	}
}

func TestPeriodLabelAndStart(t *testing.T) {
	p := Period("2024-09")
	if p.Label() != "Sep" {
		t.Errorf("Label = %q", p.Label())
	}
	start := p.Start(time.UTC)
	if !start.Equal(time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", start)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, time.March, 5)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2025-03-05"` {
		t.Errorf("marshal = %s", b)
	}

	var got Date
	if err := got.UnmarshalJSON([]byte(`"2025-03-05"`)); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(d.Time) {
		t.Errorf("unmarshal = %v", got)
	}

	if err := got.UnmarshalJSON([]byte(`"05/03/2025"`)); !errors.Is(err, ErrValidation) {
		t.Errorf("bad date error = %v", err)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2025-03-05 00:00:00+00:00"); err != nil {
		t.Fatalf("scan timestamp text: %v", err)
	}
	if d.String() != "2025-03-05" {
		t.Errorf("got %s", d)
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error for int")
	}
	if err := d.Scan(" 2025-03-06 "); err != nil || d.String() != "2025-03-06" {
		t.Errorf("padded date = %s, %v", d, err)
	}
	// Short once trimmed: must fail, not panic.
	for _, s := range []string{"2025-1-1   ", "   ", ""} {
		if err := d.Scan(s); !errors.Is(err, ErrValidation) {
			t.Errorf("Scan(%q) err = %v, want ErrValidation", s, err)
		}
	}
	if err := d.Scan([]byte("2025-1-1     ")); !errors.Is(err, ErrValidation) {
		t.Errorf("Scan(bytes) err = %v, want ErrValidation", err)
	}
}
