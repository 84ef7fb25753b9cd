package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-json-experiment/json"
)

// Short slash commands such as "/clear" make poor session titles.
const minSlashDisplayLen = 30

// LoadHistory reads <claudeDir>/history.jsonl and returns the first displayable
// prompt recorded for each session. A missing file yields an empty index.
func LoadHistory(claudeDir string) (map[string]string, error) {
	index := make(map[string]string)

	f, err := os.Open(filepath.Join(claudeDir, "history.jsonl"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return index, nil
		}
		return index, fmt.Errorf("opening history: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), math.MaxInt)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		line = replaceInvalidUTF8(line)

		var h HistoryEntry
		if err := json.Unmarshal(line, &h, decodeOpts); err != nil {
			continue
		}
		display := strings.TrimSpace(h.Display)
		if h.SessionID == "" || display == "" {
			continue
		}
		if _, seen := index[h.SessionID]; seen {
			continue
		}
		if strings.HasPrefix(display, "/") && utf8.RuneCountInString(display) < minSlashDisplayLen {
			continue
		}
		index[h.SessionID] = display
	}

	if err := scanner.Err(); err != nil {
		return index, fmt.Errorf("reading history: %w", err)
	}
	return index, nil
}
