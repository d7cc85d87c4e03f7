package backend

import (
	"encoding/json"
	"testing"
	"time"
)

const (
	alice = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bob   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	carol = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
)

func msgAt(from, to string, secs int64, content string) Message {
	return Message{From: from, To: to, Content: content, Timestamp: NewTimestamp(time.Unix(secs, 0))}
}

func TestMergeDeduplicatesAndSorts(t *testing.T) {
	forward := []Message{
		msgAt(alice, bob, 30, "third"),
		msgAt(alice, bob, 10, "first"),
	}
	backward := []Message{
		msgAt(bob, alice, 20, "second"),
		msgAt(alice, bob, 10, "first (dup)"),
	}

	got := Merge(forward, backward)
	if len(got) != 3 {
		t.Fatalf("Expected 3 unique messages, got %d", len(got))
	}

	want := []string{"first", "second", "third"}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("position %d: expected %q, got %q", i, w, got[i].Content)
		}
	}

	seen := make(map[string]bool)
	for _, m := range got {
		if seen[m.Key()] {
			t.Errorf("duplicate key %s in merge result", m.Key())
		}
		seen[m.Key()] = true
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	x := []Message{msgAt(alice, bob, 5, "a1"), msgAt(alice, bob, 7, "a2")}
	y := []Message{msgAt(bob, alice, 5, "b1"), msgAt(bob, alice, 9, "b2")}

	xy := Merge(x, y)
	yx := Merge(y, x)
	if len(xy) != len(yx) {
		t.Fatalf("length differs: %d vs %d", len(xy), len(yx))
	}
	for i := range xy {
		if xy[i].Key() != yx[i].Key() {
			t.Errorf("position %d differs: %s vs %s", i, xy[i].Key(), yx[i].Key())
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("Expected empty result, got %d messages", len(got))
	}
}

func TestMessageKeyPrefersID(t *testing.T) {
	a := Message{ID: "42", From: alice, To: bob}
	b := Message{ID: "42", From: bob, To: alice, Timestamp: NewTimestamp(time.Unix(1, 0))}
	if a.Key() != b.Key() {
		t.Errorf("messages with the same id should share a key: %s vs %s", a.Key(), b.Key())
	}

	lower := msgAt("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", bob, 1, "")
	mixed := msgAt(alice, bob, 1, "")
	if lower.Key() != mixed.Key() {
		t.Errorf("key should ignore address case: %s vs %s", lower.Key(), mixed.Key())
	}
}

func TestMergeKeepsAnonymousRows(t *testing.T) {
	first := Message{Index: 0, Content: "one", Timestamp: NewTimestamp(time.Unix(5, 0))}
	second := Message{Index: 1, Content: "two", Timestamp: NewTimestamp(time.Unix(5, 0))}

	got := Merge([]Message{first, second}, []Message{first, second})
	if len(got) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(got))
	}
	if first.Key() == second.Key() {
		t.Errorf("anonymous rows should not share a key: %s", first.Key())
	}
}

func TestNormalize(t *testing.T) {
	raw := Message{Sender: "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", Content: "hey"}
	got := raw.Normalize(alice, bob)

	if got.From != bob {
		t.Errorf("Expected From %s, got %s", bob, got.From)
	}
	if got.To != alice {
		t.Errorf("Expected To %s, got %s", alice, got.To)
	}
	if !got.FromMe(bob) || got.FromMe(alice) {
		t.Error("FromMe reports the wrong author")
	}

	stranger := Message{Sender: carol}.Normalize(alice, bob)
	if stranger.To != "" {
		t.Errorf("recipient should stay unknown for a third party, got %s", stranger.To)
	}
}

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"unix seconds", `1700000000`, time.Unix(1700000000, 0)},
		{"numeric string", `"1700000000"`, time.Unix(1700000000, 0)},
		{"rfc3339", `"2023-11-14T22:13:20Z"`, time.Unix(1700000000, 0)},
		{"fractional", `1700000000.5`, time.Unix(1700000000, 500000000)},
		{"zero", `0`, time.Time{}},
		{"null", `null`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.in), &ts); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			if !ts.Time().Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, ts.Time())
			}
		})
	}

	t.Run("garbage", func(t *testing.T) {
		var ts Timestamp
		if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
			t.Error("Expected an error for a non-time string")
		}
	})
}

func TestCanonicalAddress(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"lower case", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", alice, false},
		{"upper case", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", alice, false},
		{"checksummed", alice, alice, false},
		{"surrounding space", "  " + alice + "\n", alice, false},
		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", "", true},
		{"too short", "0x1234", "", true},
		{"no prefix", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "", true},
		{"non hex", "0xZZaeb6053f3e94c9b9a09f33669435e7ef1beaed", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalAddress(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %s", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
