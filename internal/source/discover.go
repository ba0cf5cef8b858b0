package source

import (
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// Conventional directory names probed at a repository boundary.
const (
	includeDirName = "include"
)

var sourceDirNames = []string{"rtl", "src"}

// discoverLocked walks upward from start looking for a marker file or a
// repository boundary. A marker file is loaded as explicit settings. At a
// boundary, include/ becomes both an include and a library directory, and
// rtl/ and src/ become library directories with their own include/.
func (s *Set) discoverLocked(start string) {
	base := start
	if !isDir(base) {
		base = filepath.Dir(base)
	}
	repoRoot := repositoryRoot(base)

	for {
		found := false
		marker := filepath.Join(base, MarkerFile)
		atRepo := base == repoRoot || isDir(filepath.Join(base, ".git"))

		switch {
		case isRegular(marker):
			found = true
			st, err := LoadFile(marker)
			if err != nil {
				s.logger.Printf("ignoring %s: %v", marker, err)
				s.cfg.Loaded = true
				break
			}
			s.logger.Printf("loaded %s", marker)
			s.applyLocked(st)
		case atRepo || base == s.cfg.RootPath:
			s.probeInclude(filepath.Join(base, includeDirName))
			for _, name := range sourceDirNames {
				if s.probeSources(filepath.Join(base, name)) {
					found = true
				}
			}
			if atRepo {
				found = true
			}
		}

		if found {
			return
		}
		parent := filepath.Dir(base)
		if parent == base {
			return
		}
		base = parent
	}
}

func (s *Set) probeInclude(dir string) {
	if !isDir(dir) {
		return
	}
	s.cfg.LibraryDirs = appendUnique(s.cfg.LibraryDirs, dir)
	s.cfg.IncludeDirs = appendUnique(s.cfg.IncludeDirs, dir)
}

func (s *Set) probeSources(dir string) bool {
	if !isDir(dir) {
		return false
	}
	s.cfg.Loaded = true
	s.cfg.LibraryDirs = appendUnique(s.cfg.LibraryDirs, dir)
	s.probeInclude(filepath.Join(dir, includeDirName))
	return true
}

// repositoryRoot returns the work tree root of the git repository that
// contains dir, or "" when there is none.
func repositoryRoot(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ""
	}
	return wt.Filesystem.Root()
}
