package convert

import (
	"flag"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"superbase-golang/superbase/db"
)

const (
	DefaultPath         = "."
	DefaultEncoding     = "raw"
	DefaultUnterminated = "error"
)

// encodings maps -encoding names to code pages. "raw" keeps text bytes as
// stored.
var encodings = map[string]encoding.Encoding{
	"raw":          nil,
	"cp437":        charmap.CodePage437,
	"cp850":        charmap.CodePage850,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
}

var unterminatedPolicies = map[string]db.UnterminatedPolicy{
	db.UnterminatedError.String():         db.UnterminatedError,
	db.UnterminatedTakeRemainder.String(): db.UnterminatedTakeRemainder,
}

type Config struct {
	// Path is the directory searched for .SBD/.SBF pairs.
	Path         string
	Encoding     string
	Unterminated string
	// Parallelism bounds how many tables convert at once.
	Parallelism int
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Path, prefixConfig(prefix, "path"), DefaultPath, "Path to search for Superbase data files.")
	f.StringVar(&cfg.Encoding, prefixConfig(prefix, "encoding"), DefaultEncoding,
		fmt.Sprintf("Code page of text fields and schema files (%s).", strings.Join(EncodingNames(), ", ")))
	f.StringVar(&cfg.Unterminated, prefixConfig(prefix, "unterminated"), DefaultUnterminated,
		"Handling of a text field missing its terminator at the end of a record (error, remainder).")
	f.IntVar(&cfg.Parallelism, prefixConfig(prefix, "parallelism"), runtime.GOMAXPROCS(0), "Number of tables converted concurrently.")
}

func (cfg *Config) Validate() error {
	if cfg.Path == "" {
		return fmt.Errorf("path must not be empty")
	}
	if _, err := LookupEncoding(cfg.Encoding); err != nil {
		return err
	}
	if _, ok := unterminatedPolicies[cfg.Unterminated]; !ok {
		return fmt.Errorf("unknown unterminated field policy %q", cfg.Unterminated)
	}
	if cfg.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", cfg.Parallelism)
	}
	return nil
}

// TokenizerOptions resolves the configured names. Call Validate first.
func (cfg *Config) TokenizerOptions() (db.TokenizerOptions, error) {
	enc, err := LookupEncoding(cfg.Encoding)
	if err != nil {
		return db.TokenizerOptions{}, err
	}
	policy, ok := unterminatedPolicies[cfg.Unterminated]
	if !ok {
		return db.TokenizerOptions{}, fmt.Errorf("unknown unterminated field policy %q", cfg.Unterminated)
	}
	return db.TokenizerOptions{
		Encoding:     enc,
		Unterminated: policy,
	}, nil
}

func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, ok := encodings[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q, want one of %s", name, strings.Join(EncodingNames(), ", "))
	}
	return enc, nil
}

func EncodingNames() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func prefixConfig(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
