package heartbeat

import (
	"encoding/json"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func genHeartbeat(t *rapid.T, label string) Heartbeat {
	h := Heartbeat{
		Entity:        rapid.String().Draw(t, label+"_entity"),
		Timestamp:     float64(rapid.Int64Range(0, 2_000_000_000_0000).Draw(t, label+"_ts")) / 10000,
		IsWrite:       rapid.Bool().Draw(t, label+"_write"),
		IsUnsavedFile: rapid.Bool().Draw(t, label+"_unsaved"),
		IsBuilding:    rapid.Bool().Draw(t, label+"_building"),
	}
	if rapid.Bool().Draw(t, label+"_hasProject") {
		h.Project = rapid.StringN(1, 30, -1).Draw(t, label+"_project")
	}
	if rapid.Bool().Draw(t, label+"_hasLanguage") {
		h.Language = rapid.StringN(1, 30, -1).Draw(t, label+"_language")
	}
	if rapid.Bool().Draw(t, label+"_hasLines") {
		h.LineStats = &LineStats{
			LineCount:      rapid.IntRange(1, 100000).Draw(t, label+"_lines"),
			LineNumber:     rapid.IntRange(1, 100000).Draw(t, label+"_lineno"),
			CursorPosition: rapid.IntRange(1, 500).Draw(t, label+"_cursor"),
		}
	}
	return h
}

// Property: encoding a batch and decoding it with encoding/json recovers
// exactly the fields that were present, strings byte-for-byte.
func TestEncodeExtrasRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "n")
		hbs := make([]Heartbeat, n)
		for i := range hbs {
			hbs[i] = genHeartbeat(t, "hb")
		}

		out := EncodeExtras(hbs)
		var decoded []map[string]any
		if err := json.Unmarshal([]byte(out), &decoded); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		if len(decoded) != n {
			t.Fatalf("decoded %d objects, want %d", len(decoded), n)
		}

		for i, h := range hbs {
			obj := decoded[i]
			want := map[string]any{
				"entity":    h.Entity,
				"timestamp": h.Timestamp,
				"is_write":  h.IsWrite,
			}
			if h.LineStats != nil {
				want["lines"] = float64(h.LineStats.LineCount)
				want["lineno"] = float64(h.LineStats.LineNumber)
				want["cursorpos"] = float64(h.LineStats.CursorPosition)
			}
			if h.IsUnsavedFile {
				want["is_unsaved_entity"] = true
			}
			if h.IsBuilding {
				want["category"] = "building"
			}
			if h.Project != "" {
				want["alternate_project"] = h.Project
			}
			if h.Language != "" {
				want["alternate_language"] = h.Language
			}

			if len(obj) != len(want) {
				t.Fatalf("object %d has fields %v, want %v", i, obj, want)
			}
			for k, v := range want {
				if obj[k] != v {
					t.Fatalf("object %d field %s = %#v, want %#v", i, k, obj[k], v)
				}
			}
		}
	})
}

func TestEncodeExtrasLayout(t *testing.T) {
	hbs := []Heartbeat{
		{Entity: "/a.go", Timestamp: 100.5, IsWrite: true},
		{
			Entity:        "/b.go",
			Timestamp:     101,
			IsUnsavedFile: true,
			IsBuilding:    true,
			Project:       "proj",
			Language:      "Go",
			LineStats:     &LineStats{LineCount: 10, LineNumber: 2, CursorPosition: 3},
		},
	}
	got := EncodeExtras(hbs)
	want := `[{"entity":"/a.go","timestamp":100.5000,"is_write":true},` +
		`{"entity":"/b.go","timestamp":101.0000,"is_write":false,"lines":10,"lineno":2,"cursorpos":3,` +
		`"is_unsaved_entity":true,"category":"building","alternate_project":"proj","alternate_language":"Go"}]`
	if got != want {
		t.Fatalf("EncodeExtras:\n got %s\nwant %s", got, want)
	}
}

func TestEncodeExtrasEscaping(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{"a\"b\\c", `"a\"b\\c"`},
		{"tab\there", `"tab\there"`},
		{"nl\nr\rb\bf\f", `"nl\nr\rb\bf\f"`},
		{"\x01", `"\u0001"`},
		{"\x7f", `"\u007F"`},
		{"\u0085", `"\u0085"`},
		{"\u2028", `"\u2028"`},
		{"\u20ac", `"\u20AC"`},
		{"héllo 世界", `"héllo 世界"`},
		{"<&>", `"<&>"`},
	}
	for _, c := range cases {
		var sb strings.Builder
		writeString(&sb, c.in)
		if got := sb.String(); got != c.want {
			t.Errorf("writeString(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestEncodeExtrasEmpty(t *testing.T) {
	if got := EncodeExtras(nil); got != "[]" {
		t.Fatalf("EncodeExtras(nil) = %q", got)
	}
}
