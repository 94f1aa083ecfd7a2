package ids

import "testing"

func TestDigestShort(t *testing.T) {
	tests := []struct {
		name string
		in   Digest
		want string
	}{
		{"zero", Digest{}, "0000..0000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Short(); got != tc.want {
				t.Fatalf("Short()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestDigestIsZero(t *testing.T) {
	var d Digest
	if !d.IsZero() {
		t.Fatalf("zero-value Digest should report IsZero")
	}
	d[0] = 1
	if d.IsZero() {
		t.Fatalf("non-zero Digest reported IsZero")
	}
}

func TestDigestTextRoundTrip(t *testing.T) {
	d := Digest{}
	for i := range d {
		d[i] = byte(i)
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText err: %v", err)
	}
	var got Digest
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText err: %v", err)
	}
	if got != d {
		t.Fatalf("round trip mismatch: got %v want %v", got, d)
	}
}

func TestDigestUnmarshalTextBadLength(t *testing.T) {
	var d Digest
	if err := d.UnmarshalText([]byte("abcd")); err == nil {
		t.Fatalf("expected error for short input")
	}
}

func TestAccountIDIsZero(t *testing.T) {
	var a AccountID
	if !a.IsZero() {
		t.Fatalf("zero-value AccountID should report IsZero")
	}
}
