package readiness

import (
	"strings"
	"testing"
)

func TestDetectorFeed(t *testing.T) {
	tests := []struct {
		name      string
		chunks    []string
		wantIndex int // index of the chunk that reports ready, -1 for never
	}{
		{
			name:      "marker in a single chunk",
			chunks:    []string{"Server: " + Marker + " ready\n"},
			wantIndex: 0,
		},
		{
			name:      "marker after unrelated output",
			chunks:    []string{"Starting B-Transfer\n", "uploads ok\n", "💻 " + Marker + "\n"},
			wantIndex: 2,
		},
		{
			name:      "marker split across two chunks",
			chunks:    []string{"💻 Access from this com", "puter: http://localhost:8081\n"},
			wantIndex: 1,
		},
		{
			name:      "marker split byte by byte",
			chunks:    strings.Split(Marker, ""),
			wantIndex: len(Marker) - 1,
		},
		{
			name:      "wrong port never matches",
			chunks:    []string{"Access from this computer: http://localhost:8082\n"},
			wantIndex: -1,
		},
		{
			name:      "phone line does not match",
			chunks:    []string{"📱 Access from your phone: http://192.168.1.5:8081\n"},
			wantIndex: -1,
		},
		{
			name:      "no output",
			chunks:    nil,
			wantIndex: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(Marker)
			got := -1
			for i, c := range tt.chunks {
				if d.Feed([]byte(c)) {
					if got != -1 {
						t.Fatalf("Feed reported ready twice (chunks %d and %d)", got, i)
					}
					got = i
				}
			}
			if got != tt.wantIndex {
				t.Errorf("ready at chunk %d, want %d", got, tt.wantIndex)
			}
			if d.Ready() != (tt.wantIndex >= 0) {
				t.Errorf("Ready() = %v, want %v", d.Ready(), tt.wantIndex >= 0)
			}
		})
	}
}

func TestDetectorReportsOnce(t *testing.T) {
	d := New(Marker)
	if !d.Feed([]byte(Marker)) {
		t.Fatal("expected first feed to report ready")
	}
	if d.Feed([]byte(Marker)) {
		t.Error("second marker should not report ready again")
	}
	if !d.Ready() {
		t.Error("Ready() should stay latched")
	}
}

func TestDetectorWindowIsBounded(t *testing.T) {
	d := New(Marker)
	for i := 0; i < 1000; i++ {
		d.Feed([]byte(strings.Repeat("x", 512)))
	}
	if n := len(d.Pending()); n > len(Marker)-1 {
		t.Errorf("pending buffer grew to %d bytes, want at most %d", n, len(Marker)-1)
	}
}

func TestDetectorEmptyMarker(t *testing.T) {
	d := New("")
	if !d.Feed(nil) {
		t.Error("empty marker should be ready on first feed")
	}
}
