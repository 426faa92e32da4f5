package collect

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/conorfennell/decksmith/internal/domain"
	"github.com/conorfennell/decksmith/internal/gitsource"
	"github.com/conorfennell/decksmith/internal/parser"
)

// Result is what a collection pass found. Errors holds per-file parse
// failures; they do not stop the walk.
type Result struct {
	Cards  []domain.Flashcard
	Files  int
	Errors []error
}

// Dir parses every markdown file under root, in lexical order.
func Dir(root string) (*Result, error) {
	res := &Result{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		res.Files++
		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		res.Cards = append(res.Cards, fileCards...)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, walkErr)
	}

	slog.Info("collection complete",
		"path", root,
		"files", res.Files,
		"cards", len(res.Cards),
		"errors", len(res.Errors),
	)
	return res, nil
}

// Git syncs a repository into reposDir and parses its markdown files.
func Git(ctx context.Context, repoURL, reposDir string) (*Result, error) {
	localPath, err := gitURLToLocalPath(reposDir, repoURL)
	if err != nil {
		return nil, err
	}
	slog.Info("Syncing git source", "url", repoURL, "path", localPath)
	if err := gitsource.Sync(ctx, repoURL, localPath); err != nil {
		return nil, err
	}
	return Dir(localPath)
}

// gitURLToLocalPath maps an http(s) or scp-style ("user@host:path") git URL
// to reposDir/host/path. The result always stays inside reposDir.
func gitURLToLocalPath(reposDir, repoURL string) (string, error) {
	host, repoPath, ok := splitGitURL(repoURL)
	if !ok {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	repoPath = strings.TrimSuffix(strings.Trim(repoPath, "/"), ".git")
	if host == "" || repoPath == "" {
		return "", fmt.Errorf("git URL has no host or repository path: %s", repoURL)
	}

	hostDir := filepath.Join(reposDir, host)
	local := filepath.Join(hostDir, filepath.FromSlash(repoPath))
	if !below(reposDir, hostDir) || !below(hostDir, local) {
		return "", fmt.Errorf("git URL escapes the repositories directory: %s", repoURL)
	}
	return local, nil
}

// below reports whether target is strictly inside dir.
func below(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func splitGitURL(repoURL string) (host, repoPath string, ok bool) {
	if u, err := url.Parse(repoURL); err == nil && (u.Scheme == "https" || u.Scheme == "http") {
		return u.Hostname(), u.Path, true
	}
	userHost, p, found := strings.Cut(repoURL, ":")
	if !found || strings.Contains(userHost, "/") {
		return "", "", false
	}
	_, h, found := strings.Cut(userHost, "@")
	if !found {
		return "", "", false
	}
	return h, p, true
}
