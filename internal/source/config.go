package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// MarkerFile is the project configuration file looked for during
// discovery.
const MarkerFile = ".sver_config"

// EnvPrefix prefixes the environment variables read by LoadEnv.
const EnvPrefix = "VERISCOPE_"

// settingsSection is the key explicit settings may be nested under.
const settingsSection = "verilog"

// Settings is an explicit configuration, from the editor, the marker file
// or the environment. Relative paths resolve against BaseDir, or against
// the workspace root when BaseDir is empty.
type Settings struct {
	IncludePaths []string `koanf:"includePaths" json:"includePaths"`
	LibraryPaths []string `koanf:"libraryPaths" json:"libraryPaths"`
	Filelists    []string `koanf:"filelists" json:"filelists"`
	CompileFiles []string `koanf:"compileFiles" json:"compileFiles"`

	BaseDir string `koanf:"-" json:"-"`
}

// Empty reports whether no setting is present.
func (st Settings) Empty() bool {
	return len(st.IncludePaths) == 0 && len(st.LibraryPaths) == 0 &&
		len(st.Filelists) == 0 && len(st.CompileFiles) == 0
}

// LoadFile reads a JSON settings file. Keys may sit at the top level or
// under "verilog". Relative paths resolve against the file's directory.
func LoadFile(path string) (Settings, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return Settings{}, fmt.Errorf("source: load %s: %w", path, err)
	}
	st, err := unmarshal(k)
	if err != nil {
		return Settings{}, fmt.Errorf("source: load %s: %w", path, err)
	}
	st.BaseDir = filepath.Dir(Canonical(path))
	return st, nil
}

// FromMap decodes settings delivered as a generic map, such as the
// payload of an editor configuration change.
func FromMap(m map[string]any) (Settings, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return Settings{}, fmt.Errorf("source: load settings: %w", err)
	}
	return unmarshal(k)
}

var envKeys = map[string]string{
	"INCLUDE_PATHS": "includePaths",
	"LIBRARY_PATHS": "libraryPaths",
	"FILELISTS":     "filelists",
	"COMPILE_FILES": "compileFiles",
}

// LoadEnv reads VERISCOPE_INCLUDE_PATHS, VERISCOPE_LIBRARY_PATHS,
// VERISCOPE_FILELISTS and VERISCOPE_COMPILE_FILES. Values are lists
// separated by os.PathListSeparator.
func LoadEnv() (Settings, error) {
	k := koanf.New(".")
	provider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			name, ok := envKeys[strings.TrimPrefix(key, EnvPrefix)]
			if !ok {
				return "", nil
			}
			var list []string
			for _, part := range filepath.SplitList(value) {
				if part = strings.TrimSpace(part); part != "" {
					list = append(list, part)
				}
			}
			return name, list
		},
	})
	if err := k.Load(provider, nil); err != nil {
		return Settings{}, fmt.Errorf("source: load environment: %w", err)
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (Settings, error) {
	var st Settings
	path := ""
	if k.Exists(settingsSection) {
		path = settingsSection
	}
	if err := k.Unmarshal(path, &st); err != nil {
		return Settings{}, err
	}
	return st, nil
}

// Configure applies explicit settings. Non-empty include or library lists
// replace the current ones; paths that do not exist are skipped. Compile
// files are added as library-sourced inputs.
func (s *Set) Configure(st Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(st)
}

func (s *Set) applyLocked(st Settings) {
	s.cfg.Loaded = true
	base := st.BaseDir
	if base == "" {
		base = s.cfg.RootPath
	}

	incRequested := st.IncludePaths
	libRequested := st.LibraryPaths
	var compile []string
	for _, name := range st.CompileFiles {
		compile = append(compile, s.expand(base, name)...)
	}
	for _, name := range st.Filelists {
		fl, err := ParseFilelist(resolve(base, name))
		if err != nil {
			s.logger.Printf("skipping filelist: %v", err)
			continue
		}
		incRequested = append(incRequested, fl.IncludeDirs...)
		libRequested = append(libRequested, fl.LibraryDirs...)
		compile = append(compile, fl.Files...)
	}

	if len(incRequested) > 0 {
		s.cfg.IncludeDirs = s.dirs(base, incRequested)
	}
	if len(libRequested) > 0 {
		s.cfg.LibraryDirs = s.dirs(base, libRequested)
	}
	for _, path := range compile {
		if isRegular(path) {
			s.addFromDiskLocked(path, false)
		}
	}
}

// dirs resolves and expands a path list, keeping existing directories in
// the order given.
func (s *Set) dirs(base string, names []string) []string {
	out := []string{}
	for _, name := range names {
		for _, path := range s.expand(base, name) {
			if isDir(path) {
				out = appendUnique(out, path)
			}
		}
	}
	return out
}

// expand resolves name against base and expands glob patterns. Patterns
// matching nothing expand to nothing.
func (s *Set) expand(base, name string) []string {
	path := resolve(base, name)
	if !hasGlob(path) {
		return []string{path}
	}
	matches, err := doublestar.FilepathGlob(path)
	if err != nil {
		s.logger.Printf("bad pattern %q: %v", name, err)
		return nil
	}
	sort.Strings(matches)
	return matches
}

func resolve(base, name string) string {
	name = os.ExpandEnv(name)
	if filepath.IsAbs(name) || base == "" {
		return Canonical(name)
	}
	return filepath.Join(base, name)
}

func hasGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
