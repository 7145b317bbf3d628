package heartbeat

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// EncodeExtras renders heartbeats as the compact JSON array the collector
// reads from stdin with --extra-heartbeats. Optional fields are written only
// when present.
func EncodeExtras(hbs []Heartbeat) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, h := range hbs {
		if i > 0 {
			sb.WriteByte(',')
		}
		encodeOne(&sb, h)
	}
	sb.WriteByte(']')
	return sb.String()
}

func encodeOne(sb *strings.Builder, h Heartbeat) {
	sb.WriteString(`{"entity":`)
	writeString(sb, h.Entity)
	sb.WriteString(`,"timestamp":`)
	sb.WriteString(FormatTimestamp(h.Timestamp))
	sb.WriteString(`,"is_write":`)
	sb.WriteString(strconv.FormatBool(h.IsWrite))
	if h.LineStats != nil {
		sb.WriteString(`,"lines":`)
		sb.WriteString(strconv.Itoa(h.LineStats.LineCount))
		sb.WriteString(`,"lineno":`)
		sb.WriteString(strconv.Itoa(h.LineStats.LineNumber))
		sb.WriteString(`,"cursorpos":`)
		sb.WriteString(strconv.Itoa(h.LineStats.CursorPosition))
	}
	if h.IsUnsavedFile {
		sb.WriteString(`,"is_unsaved_entity":true`)
	}
	if h.IsBuilding {
		sb.WriteString(`,"category":"building"`)
	}
	if h.Project != "" {
		sb.WriteString(`,"alternate_project":`)
		writeString(sb, h.Project)
	}
	if h.Language != "" {
		sb.WriteString(`,"alternate_language":`)
		writeString(sb, h.Language)
	}
	sb.WriteByte('}')
}

const hexDigits = "0123456789ABCDEF"

// writeString writes s as a quoted JSON string. Besides the mandatory
// escapes, C0/C1 controls, DEL and the U+2000..U+20FF punctuation band go
// out as \uXXXX with uppercase hex. Everything else is written raw.
func writeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if needsUnicodeEscape(r) {
				sb.WriteString(`\u`)
				sb.WriteByte(hexDigits[(r>>12)&0xF])
				sb.WriteByte(hexDigits[(r>>8)&0xF])
				sb.WriteByte(hexDigits[(r>>4)&0xF])
				sb.WriteByte(hexDigits[r&0xF])
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
}

func needsUnicodeEscape(r rune) bool {
	return r <= 0x1F ||
		(r >= 0x7F && r <= 0x9F) ||
		(r >= 0x2000 && r <= 0x20FF)
}
