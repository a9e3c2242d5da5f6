package match

import (
	"fmt"
	"strings"

	"ircheck/internal/app/domain/irc"
)

// Field is an expectation for one string field of a message: ignore it,
// require an exact value, or run an arbitrary predicate.
type Field struct {
	kind kind
	text string
	pred func(string) bool
	desc string
}

type kind int

const (
	kindAny kind = iota
	kindExact
	kindPred
)

// Any matches every value, including the absent one.
func Any() Field {
	return Field{kind: kindAny}
}

// Exact matches only the given value.
func Exact(s string) Field {
	return Field{kind: kindExact, text: s}
}

// Pattern matches values for which pred returns true. desc is used in
// mismatch explanations.
func Pattern(desc string, pred func(string) bool) Field {
	return Field{kind: kindPred, pred: pred, desc: desc}
}

// OneOf matches any of the listed values.
func OneOf(values ...string) Field {
	return Pattern("one of "+strings.Join(values, "|"), func(s string) bool {
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	})
}

func (f Field) matches(got string) bool {
	switch f.kind {
	case kindExact:
		return got == f.text
	case kindPred:
		return f.pred(got)
	default:
		return true
	}
}

func (f Field) String() string {
	switch f.kind {
	case kindExact:
		return fmt.Sprintf("%q", f.text)
	case kindPred:
		return "<" + f.desc + ">"
	default:
		return "<any>"
	}
}

// TagExpect is one expected tag: Key may be a pattern matched against every
// actual key; Value may be Any to only require key presence.
type TagExpect struct {
	Key   Field
	Value Field
}

// Expect is a partial message shape. Zero-value fields are ignored; Params
// compares element-wise with equal arity, a zero entry meaning wildcard.
type Expect struct {
	Command Field
	Prefix  Field
	Nick    Field
	Params  []Field
	Tags    []TagExpect

	// HasParams, when true, asserts Params even when the slice is empty
	// (ie. the message must carry no parameters at all).
	HasParams bool
}

// Diff compares a message against an expected shape and returns a
// human-readable explanation of the first mismatch, or the empty string when
// the message matches. It never panics on nil maps or short slices.
func Diff(msg *irc.Message, want Expect) string {
	if msg == nil {
		return "expected a message, got nil"
	}

	if want.Command.kind != kindAny && !want.Command.matches(msg.Command) {
		return fmt.Sprintf("expected command to match %s, got %q: %s", want.Command, msg.Command, msg)
	}

	if want.Prefix.kind != kindAny && !want.Prefix.matches(msg.Prefix) {
		return fmt.Sprintf("expected prefix to match %s, got %q: %s", want.Prefix, msg.Prefix, msg)
	}

	if want.Nick.kind != kindAny && !want.Nick.matches(msg.Nick()) {
		return fmt.Sprintf("expected nick to match %s, got %q: %s", want.Nick, msg.Nick(), msg)
	}

	if want.Params != nil || want.HasParams {
		if len(msg.Params) != len(want.Params) {
			return fmt.Sprintf("expected %d params, got %d: %s", len(want.Params), len(msg.Params), msg)
		}
		for i, f := range want.Params {
			if !f.matches(msg.Params[i]) {
				return fmt.Sprintf("expected params[%d] to match %s, got %q: %s", i, f, msg.Params[i], msg)
			}
		}
	}

	for _, te := range want.Tags {
		if te.Key.kind == kindExact {
			got, ok := msg.Tags[te.Key.text]
			if !ok {
				return fmt.Sprintf("expected tag %s to be present: %s", te.Key, msg)
			}
			if !te.Value.matches(got) {
				return fmt.Sprintf("expected tag %s to match %s, got %q: %s", te.Key, te.Value, got, msg)
			}
			continue
		}

		found := false
		for k, v := range msg.Tags {
			if te.Key.matches(k) && te.Value.matches(v) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("no tag key matching %s with value %s: %s", te.Key, te.Value, msg)
		}
	}

	return ""
}

// Matches reports whether the message fits the expected shape.
func Matches(msg *irc.Message, want Expect) bool {
	return Diff(msg, want) == ""
}

// Command is shorthand for an Expect checking only the command.
func Command(cmd string) Expect {
	return Expect{Command: Exact(cmd)}
}

// ExactParams converts plain strings to exact param expectations.
func ExactParams(params ...string) []Field {
	out := make([]Field, len(params))
	for i, p := range params {
		out[i] = Exact(p)
	}
	return out
}
