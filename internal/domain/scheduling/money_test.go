package scheduling

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"", 0, false},
		{"350", 35000, false},
		{"350.5", 35050, false},
		{"350.05", 35005, false},
		{".75", 75, false},
		{"1.234", 0, true},
		{"-10", 0, true},
		{"12,50", 0, true},
		{"10.", 0, true},
		{".", 0, true},
		{"1.-5", 0, true},
		{"1.+5", 0, true},
		{"+12", 0, true},
		{"1e3", 0, true},
		{"0099.10", 9910, false},
		{"99999999.99", MaxMoney, false},
		{"100000000", 0, true},
		{"99999999999999999", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMoney(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseMoney(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMoney_JSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"160","b":99.9,"c":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 16000 || v.B != 9990 || v.C != 0 {
		t.Errorf("unexpected values %+v", v)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"a":"160.00","b":"99.90","c":"0.00"}` {
		t.Errorf("unexpected json %s", out)
	}
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	if err := m.Scan("1250.00"); err != nil || m != 125000 {
		t.Errorf("scan string: %d %v", m, err)
	}
	if err := m.Scan(nil); err != nil || m != 0 {
		t.Errorf("scan nil: %d %v", m, err)
	}
	if err := m.Scan(3.5); err == nil {
		t.Error("expected error for float source")
	}
	v, _ := Money(5).Value()
	if v != "0.05" {
		t.Errorf("unexpected value %v", v)
	}
}
