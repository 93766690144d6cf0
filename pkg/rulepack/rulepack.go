// Package rulepack bundles language head rule packs.
//
// A pack is an embedded directory holding a manifest.yaml and a rule table.
// Loading a pack parses the table, applies the pack's hand-written override
// chains and its unmapped-tag policy, and returns an immutable
// headrules.Finder.
package rulepack

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

//go:embed packs
var packsFS embed.FS

const (
	packsDir     = "packs"
	manifestFile = "manifest.yaml"
)

// Sentinel errors.
var (
	ErrUnknownPack     = errors.New("unknown rule pack")
	ErrInvalidManifest = errors.New("invalid pack manifest")
)

// Manifest describes one bundled pack.
type Manifest struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Language    string `yaml:"language" json:"language"`
	Format      string `yaml:"format" json:"format"`
	Table       string `yaml:"table" json:"table"`
	Direction   string `yaml:"direction" json:"direction"`
	Unmapped    string `yaml:"unmapped" json:"unmapped"`
}

// Grammar returns the parsed table grammar.
func (m Manifest) Grammar() (headrules.Grammar, error) {
	return headrules.ParseGrammar(m.Format)
}

// DefaultDirection returns the direction of the unmapped-default rule.
func (m Manifest) DefaultDirection() (headrules.Direction, error) {
	if m.Direction == "" {
		return headrules.HeadInitial, nil
	}

	return headrules.ParseDirection(m.Direction)
}

// Policy returns the pack's unmapped-tag policy; fail when unset.
func (m Manifest) Policy() (headrules.UnmappedPolicy, error) {
	if m.Unmapped == "" {
		return headrules.UnmappedFail, nil
	}

	return headrules.ParseUnmappedPolicy(m.Unmapped)
}

// Tag returns the BCP 47 language of the pack, language.Und when unset.
func (m Manifest) Tag() (language.Tag, error) {
	if m.Language == "" {
		return language.Und, nil
	}

	return language.Parse(m.Language)
}

func (m Manifest) validate() error {
	if m.Name == "" || m.Table == "" {
		return fmt.Errorf("%w: name and table are required", ErrInvalidManifest)
	}

	if _, err := m.Grammar(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if _, err := m.DefaultDirection(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if _, err := m.Policy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if _, err := m.Tag(); err != nil {
		return fmt.Errorf("%w: language: %w", ErrInvalidManifest, err)
	}

	return nil
}

// Override is one hand-written rule replacing a table-derived one.
type Override struct {
	Tag  string
	Rule headrules.Rule
}

// overrideFunc builds a pack's override chains with tags interned in tab.
type overrideFunc func(tab *symbol.Table, lang language.Tag) []Override

var overrides = map[string]overrideFunc{
	"english": englishOverrides,
	"spanish": spanishOverrides,
}

var (
	manifestsOnce sync.Once
	manifests     map[string]Manifest
	manifestsErr  error
)

func loadManifests() (map[string]Manifest, error) {
	manifestsOnce.Do(func() {
		manifests, manifestsErr = readManifests(packsFS)
	})

	return manifests, manifestsErr
}

func readManifests(fsys fs.FS) (map[string]Manifest, error) {
	dirs, err := fs.ReadDir(fsys, packsDir)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}

	out := make(map[string]Manifest, len(dirs))

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(packsDir, dir.Name(), manifestFile))
		if err != nil {
			return nil, fmt.Errorf("read manifest of %s: %w", dir.Name(), err)
		}

		var m Manifest

		err = yaml.Unmarshal(data, &m)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidManifest, dir.Name(), err)
		}

		err = m.validate()
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", dir.Name(), err)
		}

		out[m.Name] = m
	}

	return out, nil
}

// Names returns the bundled pack names, sorted.
func Names() []string {
	all, err := loadManifests()
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Lookup returns the manifest of a bundled pack.
func Lookup(name string) (Manifest, error) {
	all, err := loadManifests()
	if err != nil {
		return Manifest{}, err
	}

	m, ok := all[name]
	if !ok {
		return Manifest{}, fmt.Errorf("%w: %q", ErrUnknownPack, name)
	}

	return m, nil
}

// Table opens the bundled rule table of a pack.
func Table(name string) (io.ReadCloser, error) {
	m, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	f, err := packsFS.Open(path.Join(packsDir, name, m.Table))
	if err != nil {
		return nil, fmt.Errorf("open table of %s: %w", name, err)
	}

	return f, nil
}

// Overrides returns the hand-written rules of a pack.
func Overrides(name string, tab *symbol.Table) ([]Override, error) {
	m, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	lang, err := m.Tag()
	if err != nil {
		return nil, err
	}

	build, ok := overrides[name]
	if !ok {
		return nil, nil
	}

	return build(tab, lang), nil
}

// Option configures Load.
type Option func(*loadConfig)

type loadConfig struct {
	table      io.Reader
	tableLabel string
	tableFile  string
	unmapped   *headrules.UnmappedPolicy
	logger     *slog.Logger
}

// WithTableReader replaces the bundled table with the content of r, parsed
// in the pack's grammar. label names the source in errors.
func WithTableReader(r io.Reader, label string) Option {
	return func(cfg *loadConfig) {
		cfg.table = r
		cfg.tableLabel = label
	}
}

// WithTableFile replaces the bundled table with the file at path.
func WithTableFile(path string) Option {
	return func(cfg *loadConfig) { cfg.tableFile = path }
}

// WithUnmapped overrides the pack's unmapped-tag policy.
func WithUnmapped(policy headrules.UnmappedPolicy) Option {
	return func(cfg *loadConfig) { cfg.unmapped = &policy }
}

// WithLogger sets the logger for load and override messages.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *loadConfig) { cfg.logger = logger }
}

// Load builds the Finder of a bundled pack with tags interned in tab.
func Load(name string, tab *symbol.Table, opts ...Option) (*headrules.Finder, error) {
	cfg := loadConfig{logger: slog.Default()}

	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	grammar, err := m.Grammar()
	if err != nil {
		return nil, err
	}

	source, label, closeFn, err := cfg.openTable(name, m)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	entries, err := headrules.ParseTable(source, tab, grammar)
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", label, err)
	}

	b := headrules.NewBuilder(tab, cfg.logger)

	err = b.AddEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", name, err)
	}

	ovs, err := Overrides(name, tab)
	if err != nil {
		return nil, err
	}

	for _, ov := range ovs {
		err = b.Override(tab.Intern(ov.Tag), ov.Rule)
		if err != nil {
			return nil, fmt.Errorf("pack %s: override %s: %w", name, ov.Tag, err)
		}
	}

	buildOpts, policy, err := cfg.policyOptions(m)
	if err != nil {
		return nil, err
	}

	f, err := b.Build(append(buildOpts, headrules.WithName(name))...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", name, err)
	}

	cfg.logger.Info("rule pack loaded",
		"pack", name,
		"table", label,
		"entries", len(entries),
		"overrides", len(ovs),
		"rules", f.Len(),
		"unmapped", policy.String())

	return f, nil
}

func (cfg *loadConfig) openTable(name string, m Manifest) (io.Reader, string, func(), error) {
	switch {
	case cfg.table != nil:
		label := cfg.tableLabel
		if label == "" {
			label = "<reader>"
		}

		return cfg.table, label, func() {}, nil

	case cfg.tableFile != "":
		f, err := os.Open(cfg.tableFile)
		if err != nil {
			return nil, "", nil, fmt.Errorf("open table: %w", err)
		}

		return f, cfg.tableFile, func() { f.Close() }, nil

	default:
		rc, err := Table(name)
		if err != nil {
			return nil, "", nil, err
		}

		return rc, path.Join(name, m.Table), func() { rc.Close() }, nil
	}
}

func (cfg *loadConfig) policyOptions(m Manifest) ([]headrules.Option, headrules.UnmappedPolicy, error) {
	policy, err := m.Policy()
	if err != nil {
		return nil, policy, err
	}

	if cfg.unmapped != nil {
		policy = *cfg.unmapped
	}

	if policy == headrules.UnmappedFail {
		return nil, policy, nil
	}

	dir, err := m.DefaultDirection()
	if err != nil {
		return nil, policy, err
	}

	fallback := headrules.NewFallback(dir).Named("default")

	return []headrules.Option{headrules.WithDefault(fallback)}, policy, nil
}
