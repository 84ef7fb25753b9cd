package source

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ScanDir lists the session files under <claudeDir>/projects.
//
// Each immediate subdirectory is one project; its direct *.jsonl children are
// sessions. A missing projects directory yields no files and no error. A
// project directory that cannot be listed is skipped and logged at debug on
// logger, or slog.Default when nil. Failing to list the projects directory
// itself is returned as an error.
func ScanDir(claudeDir string, logger *slog.Logger) ([]DiscoveredFile, error) {
	if logger == nil {
		logger = slog.Default()
	}
	projectsDir := filepath.Join(claudeDir, "projects")

	info, err := os.Stat(projectsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat projects dir: %w", err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	projects, err := os.ReadDir(projectsDir)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	var files []DiscoveredFile
	for _, p := range projects {
		dirPath := filepath.Join(projectsDir, p.Name())
		if !isDir(dirPath, p) {
			continue
		}

		entries, err := os.ReadDir(dirPath)
		if err != nil {
			logger.Debug("skipping unreadable project", "dir", dirPath, "err", err)
			continue
		}

		project := decodeProjectName(p.Name())
		for _, e := range entries {
			name := e.Name()
			if filepath.Ext(name) != ".jsonl" {
				continue
			}
			path := filepath.Join(dirPath, name)
			if isDir(path, e) {
				continue
			}
			files = append(files, DiscoveredFile{
				Path:       path,
				Project:    project,
				ProjectDir: p.Name(),
				SessionID:  strings.TrimSuffix(name, ".jsonl"),
			})
		}
	}

	return files, nil
}

// isDir follows symlinks, unlike DirEntry.IsDir.
func isDir(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// decodeProjectName extracts a human-readable project name from the encoded directory name.
// Claude Code encodes absolute paths by replacing "/" with "-", so:
//
//	"-Users-alice-projects-gitlore" -> "gitlore"
//	"-Users-alice-projects-my-cool-project" -> "my-cool-project"
//
// We find the last known path component ("projects", "repos", "src", "code", ...)
// and take everything after it. Falls back to the last non-empty segment.
func decodeProjectName(dirName string) string {
	parts := strings.Split(dirName, "-")

	knownParents := map[string]bool{
		"projects": true, "repos": true, "src": true,
		"code": true, "workspace": true, "dev": true,
	}

	for i := len(parts) - 2; i >= 0; i-- {
		if knownParents[strings.ToLower(parts[i])] {
			name := strings.Join(parts[i+1:], "-")
			if name != "" {
				return name
			}
		}
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}

	return dirName
}

// CountProjects returns the number of unique projects in a set of discovered files.
func CountProjects(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.ProjectDir] = struct{}{}
	}
	return len(seen)
}
