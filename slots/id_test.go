package slots

import (
	"errors"
	"testing"
)

func TestFromNibbles(t *testing.T) {
	for i := 0; i < Count; i++ {
		id := FromNibbles(uint8(i>>4), uint8(i&0xF))
		if int(id) != i {
			t.Fatalf("FromNibbles(%d, %d) = %d, want %d", i>>4, i&0xF, id, i)
		}
		if got := int(id.High())*16 + int(id.Low()); got != i {
			t.Fatalf("High*16+Low for %d = %d", i, got)
		}
	}
}

func TestIDString(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{0, "0x00"},
		{0x2a, "0x2a"},
		{0xff, "0xff"},
		{0x10, "0x10"},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("ID(%d).String() = %q, want %q", uint8(tt.id), got, tt.want)
		}
	}
}

func TestCheckedID(t *testing.T) {
	if id, err := CheckedID(255); err != nil || id != 255 {
		t.Errorf("CheckedID(255) = %v, %v", id, err)
	}
	for _, bad := range []int{-1, 256, 1000} {
		if _, err := CheckedID(bad); !errors.Is(err, ErrSlotRange) {
			t.Errorf("CheckedID(%d) error = %v, want ErrSlotRange", bad, err)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{"42", 42, false},
		{"0x2a", 42, false},
		{"0xff", 255, false},
		{"256", 0, true},
		{"slot", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	for _, k := range []Kind{KindCall, KindCallKw, KindGet, KindSet} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if got := Kind(9).String(); got != "kind(9)" {
		t.Errorf("Kind(9).String() = %q", got)
	}
}
