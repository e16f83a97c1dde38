package irc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// BanMetaKey is the metadata key that ban entries are replicated under.
const BanMetaKey = "cban"

var ErrMalformedBan = errors.New("malformed ban line")

// ReasonDecoding selects how Decode fills BanEntry.Reason.
type ReasonDecoding int

const (
	// ReasonLegacy stores the entire input line as the reason. This matches the wire behaviour of
	// existing peers, which never stripped the leading fields.
	ReasonLegacy ReasonDecoding = iota

	// ReasonTrailing stores only the text following the fourth field.
	ReasonTrailing
)

var reasonDecodingNames = map[string]ReasonDecoding{
	"legacy":   ReasonLegacy,
	"trailing": ReasonTrailing,
}

// ParseReasonDecoding maps a config value to a ReasonDecoding. The empty string selects ReasonLegacy.
func ParseReasonDecoding(s string) (ReasonDecoding, error) {
	if s == "" {
		return ReasonLegacy, nil
	}
	rd, ok := reasonDecodingNames[strings.ToLower(s)]
	if !ok {
		return ReasonLegacy, fmt.Errorf("unknown reason decoding %q", s)
	}
	return rd, nil
}

func (rd ReasonDecoding) String() string {
	for name, v := range reasonDecodingNames {
		if v == rd {
			return name
		}
	}
	return "ReasonDecoding(" + strconv.Itoa(int(rd)) + ")"
}

// BanCodec converts ban entries to and from the single line replication format:
//
//	<channel> <setBy> <setOn> <duration> <reason>
//
// The reason is written verbatim as the final field.
type BanCodec struct {
	ReasonDecoding ReasonDecoding

	// Strict rejects lines with missing or non-numeric fields instead of zero filling them.
	Strict bool
}

func (c BanCodec) Encode(b BanEntry) string {
	return fmt.Sprintf("%s %s %d %d %s", b.Channel, b.SetBy, b.SetOn, b.Duration, b.Reason)
}

// Decode parses a replication line. Unless Strict is set, malformed input never returns an
// error: missing fields are empty and unparseable numbers are zero.
func (c BanCodec) Decode(line string) (BanEntry, error) {
	fields, rest := cutFields(line, 4)

	if c.Strict && len(fields) < 4 {
		return BanEntry{}, fmt.Errorf("%w: want 4 fields, got %d", ErrMalformedBan, len(fields))
	}

	var b BanEntry
	var err error
	for i, f := range fields {
		switch i {
		case 0:
			b.Channel = f
		case 1:
			b.SetBy = f
		case 2:
			b.SetOn, err = strconv.ParseInt(f, 10, 64)
		case 3:
			b.Duration, err = strconv.ParseInt(f, 10, 64)
		}
		if err != nil {
			if c.Strict {
				return BanEntry{}, fmt.Errorf("%w: field %d: %w", ErrMalformedBan, i+1, err)
			}
			err = nil
		}
	}

	switch c.ReasonDecoding {
	case ReasonTrailing:
		b.Reason = rest
	default:
		b.Reason = line
	}

	return b, nil
}

// cutFields splits off up to n whitespace separated fields from the front of s and returns them
// together with the remainder. A single separator between the last field and the remainder is
// consumed; any further whitespace belongs to the remainder.
func cutFields(s string, n int) (fields []string, rest string) {
	rest = s
	for len(fields) < n {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			return fields, ""
		}

		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return append(fields, rest), ""
		}

		fields = append(fields, rest[:end])
		rest = rest[end:]
	}

	_, size := utf8.DecodeRuneInString(rest)
	return fields, rest[size:]
}
