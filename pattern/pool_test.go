package pattern

import (
	"reflect"
	"testing"
)

func Test_ScanSections_MatchesSerialScan(t *testing.T) {
	t.Parallel()

	patterns := []*Pattern{
		MustParse("48 8b 05 ?? ?? ?? ??"),
		MustParse("e8 | ?? ?? ?? ??"),
	}

	sections := [][]byte{
		{0x90, 0x48, 0x8b, 0x05, 0x10, 0x20, 0x30, 0x40},
		{0xe8, 0x01, 0x02, 0x03, 0x04, 0x90},
		{0x48, 0x8b, 0x05, 0xaa, 0xbb, 0xcc, 0xdd},
		{0xe8, 0x05, 0x06, 0x07, 0x08},
		{0x90, 0x90, 0x90},
	}
	baseVAs := []uint64{0x1000, 0x2000, 0x3000, 0x4000, 0x5000}

	session, err := NewSession(patterns)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()

	got, err := session.ScanSections(baseVAs, sections)
	if err != nil {
		t.Fatalf("ScanSections: %v", err)
	}

	want := make([][]uint64, len(patterns))
	for i, data := range sections {
		perSection, err := session.Scan(baseVAs[i], data)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		for p := range want {
			want[p] = append(want[p], perSection[p]...)
		}
	}

	for idx, p := range patterns {
		if !reflect.DeepEqual(got[idx], want[idx]) {
			t.Fatalf("pattern %q: got %v, want %v", p.Text, got[idx], want[idx])
		}
	}
}

func Test_ScanSections_EmptyInput(t *testing.T) {
	t.Parallel()

	session, err := NewSession([]*Pattern{MustParse("90 90")})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()

	got, err := session.ScanSections(nil, nil)
	if err != nil {
		t.Fatalf("ScanSections: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("expected one empty result slice, got %v", got)
	}
}

func Test_ScanSections_LengthMismatch(t *testing.T) {
	t.Parallel()

	session, err := NewSession([]*Pattern{MustParse("90 90")})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()

	if _, err := session.ScanSections([]uint64{0x1000}, nil); err == nil {
		t.Fatalf("expected a length-mismatch error")
	}
}
