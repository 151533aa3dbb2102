package atcmd

import "strings"

// Rule extracts a value from a response block. ok is false when the rule
// does not apply to the block.
type Rule struct {
	Name    string
	Extract func(lines []string) (value string, ok bool)
}

// Policy is an ordered list of rules; the first rule that applies wins and
// NoResponse is returned when none does.
type Policy []Rule

// PayloadRule takes the first "+NAME: value" line and returns the text after
// the last ':' without surrounding spaces.
var PayloadRule = Rule{
	Name: "payload",
	Extract: func(lines []string) (string, bool) {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, PayloadMarker) {
				continue
			}
			body := strings.TrimPrefix(line, PayloadMarker)
			parts := strings.Split(body, ":")
			return strings.TrimSpace(parts[len(parts)-1]), true
		}
		return "", false
	},
}

// StatusRule returns the first bare OK or ERROR line.
var StatusRule = Rule{
	Name: "status",
	Extract: func(lines []string) (string, bool) {
		for _, line := range lines {
			switch line = strings.TrimSpace(line); line {
			case OK, ERROR:
				return line, true
			}
		}
		return "", false
	},
}

// DefaultPolicy resolves the payload line first, then the status line.
var DefaultPolicy = Policy{PayloadRule, StatusRule}

// Resolve applies the rules in order.
func (p Policy) Resolve(lines []string) string {
	value, _ := p.Match(lines)
	return value
}

// Match is Resolve plus the name of the rule that produced the value; the
// name is empty when the sentinel is returned.
func (p Policy) Match(lines []string) (string, string) {
	for _, rule := range p {
		if value, ok := rule.Extract(lines); ok {
			return value, rule.Name
		}
	}
	return NoResponse, ""
}

// IsTerminal reports whether line ends a response block.
func IsTerminal(line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == OK, line == ERROR:
		return true
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return true
	}
	return false
}
