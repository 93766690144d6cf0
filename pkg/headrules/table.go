package headrules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/headfinder/pkg/convert"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

// Sentinel errors for rule table parsing.
var (
	ErrUnknownGrammar   = errors.New("unknown table grammar")
	ErrMissingFields    = errors.New("line has too few fields")
	ErrMissingDirection = errors.New("missing direction field")
	ErrInvalidDirection = errors.New("invalid direction field")
	ErrFieldCount       = errors.New("field count does not match declared count")
	ErrDuplicateTag     = errors.New("tag already has a rule")
)

// maxLineBytes bounds a single table line.
const maxLineBytes = 1 << 20

// Grammar names a rule table line format.
type Grammar string

const (
	// GrammarGrouped is "TAG HEAD_INITIAL GROUP [GROUP...]" where
	// HEAD_INITIAL is true or false and each GROUP is a comma separated
	// list of alternative patterns.
	GrammarGrouped Grammar = "grouped"
	// GrammarOpenNLP is "N TAG DIR P1 ... Pk" with N == k+2 and DIR 1 for
	// head-initial, 0 for head-final. Every pattern is its own group.
	GrammarOpenNLP Grammar = "opennlp"
)

// Grammars lists the supported grammars.
func Grammars() []Grammar { return []Grammar{GrammarGrouped, GrammarOpenNLP} }

// ParseGrammar resolves a grammar name.
func ParseGrammar(name string) (Grammar, error) {
	switch g := Grammar(strings.ToLower(strings.TrimSpace(name))); g {
	case GrammarGrouped, GrammarOpenNLP:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGrammar, name)
	}
}

// Entry is one parsed table line.
type Entry struct {
	Tag  symbol.Tag
	Rule Rule
	Line int
}

// LineError reports a malformed table line.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error { return e.Err }

// ParseTable reads a whole rule table. It stops at the first malformed
// line and returns no entries in that case.
func ParseTable(r io.Reader, tab *symbol.Table, grammar Grammar) ([]Entry, error) {
	if _, err := ParseGrammar(string(grammar)); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		entries []Entry
		lineNo  int
	)

	seen := make(map[symbol.Tag]int)

	for scanner.Scan() {
		lineNo++

		entry, ok, err := ParseLine(scanner.Text(), tab, grammar)
		if err != nil {
			return nil, &LineError{Line: lineNo, Text: strings.TrimSpace(scanner.Text()), Err: err}
		}

		if !ok {
			continue
		}

		entry.Line = lineNo

		if prev, dup := seen[entry.Tag]; dup {
			return nil, &LineError{
				Line: lineNo,
				Text: strings.TrimSpace(scanner.Text()),
				Err:  fmt.Errorf("%w: %s first defined on line %d", ErrDuplicateTag, entry.Tag, prev),
			}
		}

		seen[entry.Tag] = lineNo
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}

	return entries, nil
}

// ParseLine parses one table line. Blank and comment lines return ok ==
// false with no error. The returned entry has Line unset.
func ParseLine(line string, tab *symbol.Table, grammar Grammar) (Entry, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Entry{}, false, nil
	}

	fields := strings.Fields(line)

	var (
		tag  string
		rule Rule
		err  error
	)

	switch grammar {
	case GrammarGrouped:
		tag, rule, err = parseGrouped(fields)
	case GrammarOpenNLP:
		tag, rule, err = parseOpenNLP(fields)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownGrammar, grammar)
	}

	if err != nil {
		return Entry{}, false, err
	}

	return Entry{Tag: tab.Intern(tag), Rule: rule}, true, nil
}

func parseGrouped(fields []string) (string, Rule, error) {
	switch len(fields) {
	case 1:
		return "", Rule{}, ErrMissingFields
	case 2:
		if _, err := convert.StrictBool(fields[1]); err == nil {
			return "", Rule{}, ErrNoPatterns
		}

		return "", Rule{}, fmt.Errorf("%w after tag %s", ErrMissingDirection, fields[0])
	}

	headInitial, err := convert.StrictBool(fields[1])
	if err != nil {
		return "", Rule{}, fmt.Errorf("%w: %w", ErrInvalidDirection, err)
	}

	dir := HeadFinal
	if headInitial {
		dir = HeadInitial
	}

	groups := make([][]string, 0, len(fields)-2)
	for _, field := range fields[2:] {
		groups = append(groups, splitGroup(field))
	}

	rule, err := NewPattern(dir, groups)
	if err != nil {
		return "", Rule{}, err
	}

	return fields[0], rule, nil
}

func parseOpenNLP(fields []string) (string, Rule, error) {
	if len(fields) < 3 {
		if len(fields) == 2 {
			return "", Rule{}, ErrMissingDirection
		}

		return "", Rule{}, ErrMissingFields
	}

	declared, err := strconv.Atoi(fields[0])
	if err != nil {
		return "", Rule{}, fmt.Errorf("%w: count %q is not a number", ErrFieldCount, fields[0])
	}

	if declared != len(fields)-1 {
		return "", Rule{}, fmt.Errorf("%w: declared %d, found %d", ErrFieldCount, declared, len(fields)-1)
	}

	var dir Direction

	switch fields[2] {
	case "1":
		dir = HeadInitial
	case "0":
		dir = HeadFinal
	default:
		return "", Rule{}, fmt.Errorf("%w: %q, want 1 or 0", ErrInvalidDirection, fields[2])
	}

	patterns := fields[3:]
	if len(patterns) == 0 {
		return "", Rule{}, ErrNoPatterns
	}

	groups := make([][]string, len(patterns))
	for idx, p := range patterns {
		groups[idx] = []string{p}
	}

	rule, err := NewPattern(dir, groups)
	if err != nil {
		return "", Rule{}, err
	}

	return fields[1], rule, nil
}

// splitGroup splits a comma separated pattern group. Commas inside
// brackets, braces or parentheses, or escaped with a backslash, do not
// split.
func splitGroup(group string) []string {
	var (
		parts []string
		depth int
		start int
	)

	for idx := 0; idx < len(group); idx++ {
		switch group[idx] {
		case '\\':
			idx++
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, group[start:idx])
				start = idx + 1
			}
		}
	}

	return append(parts, group[start:])
}
