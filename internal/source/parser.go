// Package source discovers and parses Claude Code JSONL session files.
package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// ParseResult holds the records kept from a single JSONL file.
type ParseResult struct {
	// Assistant records deduplicated by message.id. A later occurrence
	// replaces an earlier one in place, so order is first-insertion order.
	Assistant []RawEntry
	// User records in file order.
	User []RawEntry

	Lines       int
	ParseErrors int
}

// decodeOpts tolerates duplicate keys the way most JSON readers do (last wins).
var decodeOpts = json.JoinOptions(
	jsontext.AllowDuplicateNames(true),
)

// ParseFile reads a JSONL session file and returns its user and deduplicated
// assistant records.
//
// Entry routing by top-level "type" field:
//   - "user", "assistant" → full JSON decode
//   - everything else     → skip without decoding
//
// Malformed lines are counted and skipped. Invalid UTF-8 is replaced before
// decoding. An error is returned only when the file cannot be read.
func ParseFile(path string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, err
	}
	defer func() { _ = f.Close() }()

	return parseReader(f)
}

func parseReader(r io.Reader) (ParseResult, error) {
	var (
		res       ParseResult
		assistant orderedEntries
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), math.MaxInt)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res.Lines++

		switch extractTopLevelType(line) {
		case "user", "assistant":
		default:
			continue
		}

		line = replaceInvalidUTF8(line)

		var entry RawEntry
		if err := json.Unmarshal(line, &entry, decodeOpts); err != nil {
			res.ParseErrors++
			continue
		}

		if entry.IsSidechain || entry.Message == nil {
			continue
		}
		msg := entry.Message

		switch entry.Type {
		case "user":
			if msg.Role == "user" {
				res.User = append(res.User, entry)
			}
		case "assistant":
			if msg.ID != "" {
				assistant.put(msg.ID, entry)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return ParseResult{}, fmt.Errorf("reading session: %w", err)
	}

	res.Assistant = assistant.entries
	return res, nil
}

// orderedEntries is an insertion-ordered map keyed by message id.
// Updating an existing key overwrites it in place without moving it.
type orderedEntries struct {
	index   map[string]int
	entries []RawEntry
}

func (o *orderedEntries) put(id string, e RawEntry) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[id]; ok {
		o.entries[i] = e
		return
	}
	o.index[id] = len(o.entries)
	o.entries = append(o.entries, e)
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

// extractTopLevelType finds the top-level "type" field in a JSONL line.
// Tracks brace depth and string boundaries so nested "type" keys are ignored.
// Early-exits once found, making cost independent of line length for
// the common case where "type" appears near the start.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				val, isKey := classifyType(line, i+len(typeKey))
				if isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key (expects : then value).
// isKey=false means "type" appeared as a value, not a key, and the caller
// should keep scanning.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 20 {
		return "", true
	}
	v := string(line[i : i+end])
	switch v {
	case "assistant", "user":
		return v, true
	}
	return "", true // valid key but a record kind the pipeline ignores
}

// skipJSONString advances past a JSON string starting at the opening quote.
//
//nolint:gosec // manual bounds checking throughout
func skipJSONString(line []byte, i int) int {
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return i
}
