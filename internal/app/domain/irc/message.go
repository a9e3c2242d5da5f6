package irc

import (
	"fmt"
	"strings"
)

// FormatError reports a raw line that cannot be decoded. Receive loops treat
// it as non-fatal and skip the line.
type FormatError struct {
	Line   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed irc line (%s): %q", e.Reason, e.Line)
}

// Message is one decoded protocol line. Params keeps order; the last element
// may be empty. A Message without a command is never produced by ParseMessage.
type Message struct {
	Command string
	Params  []string
	Prefix  string
	Tags    map[string]string
}

// Nick returns the nick part of the prefix, up to the first '!'.
func (m *Message) Nick() string {
	if m.Prefix == "" {
		return ""
	}
	if i := strings.IndexByte(m.Prefix, '!'); i != -1 {
		return m.Prefix[:i]
	}
	return m.Prefix
}

func unescapeTagValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			i++
			switch v[i] {
			case ':':
				b.WriteByte(';')
			case 's':
				b.WriteByte(' ')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(v[i])
			}
			continue
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

func escapeTagValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\':
			b.WriteString(`\\`)
		case ';':
			b.WriteString(`\:`)
		case ' ':
			b.WriteString(`\s`)
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// ParseMessage decodes one raw line: an optional @tag block, an optional
// :prefix block, then the command and parameters. The command is uppercased.
func ParseMessage(line string) (*Message, error) {
	if strings.TrimSpace(line) == "" {
		return nil, &FormatError{Line: line, Reason: "empty line"}
	}

	raw := line
	tags := make(map[string]string)

	if strings.HasPrefix(line, "@") {
		end := strings.IndexByte(line, ' ')
		if end == -1 {
			return nil, &FormatError{Line: raw, Reason: "unterminated tag block"}
		}
		for _, tag := range strings.Split(line[1:end], ";") {
			if tag == "" {
				continue
			}
			if eq := strings.IndexByte(tag, '='); eq != -1 {
				tags[tag[:eq]] = unescapeTagValue(tag[eq+1:])
			} else {
				tags[tag] = ""
			}
		}
		line = line[end+1:]
	}

	var prefix string
	if strings.HasPrefix(line, ":") {
		end := strings.IndexByte(line, ' ')
		if end == -1 {
			return nil, &FormatError{Line: raw, Reason: "unterminated prefix"}
		}
		prefix = line[1:end]
		line = line[end+1:]
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, &FormatError{Line: raw, Reason: "no command"}
	}

	command := strings.ToUpper(parts[0])

	var params []string
	for i := 1; i < len(parts); i++ {
		if strings.HasPrefix(parts[i], ":") {
			trailing := strings.Join(parts[i:], " ")
			params = append(params, trailing[1:])
			break
		}
		params = append(params, parts[i])
	}

	return &Message{Command: command, Params: params, Prefix: prefix, Tags: tags}, nil
}

// String renders the message back to wire form, without the CRLF terminator.
// ParseMessage(m.String()) reproduces m for any m obtained from ParseMessage.
func (m *Message) String() string {
	var parts []string

	if len(m.Tags) > 0 {
		tagParts := make([]string, 0, len(m.Tags))
		for key, value := range m.Tags {
			if escaped := escapeTagValue(value); escaped != "" {
				tagParts = append(tagParts, key+"="+escaped)
			} else {
				tagParts = append(tagParts, key)
			}
		}
		parts = append(parts, "@"+strings.Join(tagParts, ";"))
	}

	if m.Prefix != "" {
		parts = append(parts, ":"+m.Prefix)
	}

	parts = append(parts, m.Command)

	for i, param := range m.Params {
		if i == len(m.Params)-1 && (param == "" || strings.ContainsRune(param, ' ') || strings.HasPrefix(param, ":")) {
			parts = append(parts, ":"+param)
		} else {
			parts = append(parts, param)
		}
	}

	return strings.Join(parts, " ")
}

// Equal compares two messages field by field, tag maps included.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Command != other.Command || m.Prefix != other.Prefix {
		return false
	}
	if len(m.Params) != len(other.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != other.Params[i] {
			return false
		}
	}
	if len(m.Tags) != len(other.Tags) {
		return false
	}
	for k, v := range m.Tags {
		got, ok := other.Tags[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}
