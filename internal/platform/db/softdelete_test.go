package db

import "testing"

func TestVisibility_Predicate(t *testing.T) {
	tests := []struct {
		v    Visibility
		want string
	}{
		{ActiveOnly, "c.fecha_eliminacion IS NULL"},
		{WithDeleted, "TRUE"},
		{DeletedOnly, "c.fecha_eliminacion IS NOT NULL"},
	}
	for _, tt := range tests {
		if got := tt.v.Predicate("c.fecha_eliminacion"); got != tt.want {
			t.Errorf("%s.Predicate() = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		in      string
		want    Visibility
		wantErr bool
	}{
		{"", ActiveOnly, false},
		{"exclude", ActiveOnly, false},
		{"include", WithDeleted, false},
		{"only", DeletedOnly, false},
		{"all", ActiveOnly, true},
	}
	for _, tt := range tests {
		got, err := ParseVisibility(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVisibility(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVisibility(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
