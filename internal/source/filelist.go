package source

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxFilelistDepth bounds -f nesting.
const maxFilelistDepth = 16

// Filelist is the content of a simulator-style .f file.
type Filelist struct {
	IncludeDirs []string
	LibraryDirs []string
	Files       []string
	Defines     []string
}

// ParseFilelist reads a filelist. Supported entries:
//
//	+incdir+<dir>[+<dir>...]   include directories
//	-y <dir>                   library directory
//	-v <file>                  library file
//	-f <file> / -F <file>      nested filelist
//	+define+<NAME>[=<value>]   recorded, not applied
//	<file>                     source file
//
// Comments start with // or #. $VAR and ${VAR} are expanded. Relative
// paths resolve against the directory of the filelist that names them.
// Unknown options are ignored.
func ParseFilelist(path string) (*Filelist, error) {
	fl := &Filelist{}
	if err := fl.parse(Canonical(path), map[string]bool{}, 0); err != nil {
		return nil, err
	}
	return fl, nil
}

func (fl *Filelist) parse(path string, seen map[string]bool, depth int) error {
	if depth > maxFilelistDepth {
		return fmt.Errorf("source: filelist %s: nesting too deep", path)
	}
	if seen[path] {
		return nil
	}
	seen[path] = true

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("source: filelist: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		words = append(words, strings.Fields(os.ExpandEnv(line))...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("source: filelist %s: %w", path, err)
	}

	for i := 0; i < len(words); i++ {
		w := words[i]
		switch {
		case strings.HasPrefix(w, "+incdir+"):
			for _, d := range strings.Split(strings.TrimPrefix(w, "+incdir+"), "+") {
				if d != "" {
					fl.IncludeDirs = append(fl.IncludeDirs, resolve(dir, d))
				}
			}
		case strings.HasPrefix(w, "+define+"):
			for _, d := range strings.Split(strings.TrimPrefix(w, "+define+"), "+") {
				if d != "" {
					fl.Defines = append(fl.Defines, d)
				}
			}
		case w == "-y" || w == "-v" || w == "-f" || w == "-F":
			if i+1 >= len(words) {
				return fmt.Errorf("source: filelist %s: %s needs an argument", path, w)
			}
			i++
			arg := resolve(dir, words[i])
			switch w {
			case "-y":
				fl.LibraryDirs = append(fl.LibraryDirs, arg)
			case "-v":
				fl.Files = append(fl.Files, arg)
			default:
				if err := fl.parse(arg, seen, depth+1); err != nil {
					return err
				}
			}
		case strings.HasPrefix(w, "-") || strings.HasPrefix(w, "+"):
			// Other simulator options.
		default:
			fl.Files = append(fl.Files, resolve(dir, w))
		}
	}
	return nil
}
