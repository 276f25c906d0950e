package main

import (
	"path/filepath"
	"regexp"
	"slices"

	"github.com/phuslu/log"
)

// Strategy selects how automoc decides what to moc.
type Strategy int

const (
	// MarkerDriven mocs a source's header, and the source itself, when they
	// contain Q_OBJECT.
	MarkerDriven Strategy = iota
	// InclusionDriven follows the #include of moc output in a source
	// (qtsolutions style) and falls back to MarkerDriven when none is found.
	InclusionDriven
)

func (s Strategy) String() string {
	switch s {
	case MarkerDriven:
		return "marker"
	case InclusionDriven:
		return "include"
	default:
		return "unknown"
	}
}

type ScanConfig struct {
	Enabled        bool
	Strategy       Strategy
	GobbleComments bool
	Debug          bool

	HeaderExtensions []string
	CxxSuffixes      []string

	XMocHPrefix   string
	XMocHSuffix   string
	XMocCxxPrefix string
	XMocCxxSuffix string
}

func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Enabled:          true,
		Strategy:         MarkerDriven,
		HeaderExtensions: headerExtensions(),
		CxxSuffixes:      cxxSuffixes,
		XMocHPrefix:      "moc_",
		XMocHSuffix:      ".cpp",
		XMocCxxPrefix:    "",
		XMocCxxSuffix:    ".moc",
	}
}

// ScanConfigFromEnv reads QT4_AUTOSCAN, QT4_AUTOSCAN_STRATEGY,
// QT4_GOBBLECOMMENTS, QT4_DEBUG and the QT4_XMOC* names. Values that are not
// integers keep their defaults.
func ScanConfigFromEnv(env *Env) ScanConfig {
	cfg := DefaultScanConfig()
	cfg.Enabled = env.Int("QT4_AUTOSCAN", 1) != 0
	if env.Int("QT4_AUTOSCAN_STRATEGY", 0) != 0 {
		cfg.Strategy = InclusionDriven
	}
	cfg.GobbleComments = env.Int("QT4_GOBBLECOMMENTS", 0) != 0
	cfg.Debug = env.Int("QT4_DEBUG", 0) != 0
	if _, ok := env.Lookup("QT4_XMOCHPREFIX"); ok {
		cfg.XMocHPrefix = env.String("QT4_XMOCHPREFIX")
	}
	if _, ok := env.Lookup("QT4_XMOCHSUFFIX"); ok {
		cfg.XMocHSuffix = env.String("QT4_XMOCHSUFFIX")
	}
	if _, ok := env.Lookup("QT4_XMOCCXXPREFIX"); ok {
		cfg.XMocCxxPrefix = env.String("QT4_XMOCCXXPREFIX")
	}
	if _, ok := env.Lookup("QT4_XMOCCXXSUFFIX"); ok {
		cfg.XMocCxxSuffix = env.String("QT4_XMOCCXXSUFFIX")
	}
	return cfg
}

func (c ScanConfig) isCxx(ext string) bool {
	return slices.Contains(c.CxxSuffixes, ext)
}

var (
	// Q_OBJECT as a whole identifier. Text search only: a marker inside a
	// string literal or a disabled #if branch still counts.
	markerPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9])Q_OBJECT(?:[^A-Za-z0-9]|$)`)

	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`(?m)//.*$`)
)

// StripComments removes /* */ and // comments. It does not know about string
// literals, so "//" inside a literal also cuts the line.
func StripComments(text string) string {
	text = blockComment.ReplaceAllString(text, "")
	return lineComment.ReplaceAllString(text, "")
}

func HasMarker(text string) bool {
	return markerPattern.MatchString(text)
}

// Planner is the automoc emitter for one object builder.
type Planner struct {
	Registrar     Registrar
	Contents      ContentProvider
	Logger        *log.Logger
	ObjectBuilder string
	MocBuilder    string
	XMocBuilder   string
}

type scanItem struct {
	obj      *Node
	cpp      *Node
	contents string
}

// Plan returns sources extended with the objects compiled from moc'ed
// headers. Sources that cannot be scanned are skipped, never reported as
// errors; an error means a step could not be registered.
//
// With InclusionDriven, moc output that a source #includes is not compiled
// on its own. Inclusions are resolved for every source first, so an entry
// compiling such a file is dropped wherever it appears in sources.
func (p *Planner) Plan(sources []*Node, cfg ScanConfig) ([]*Node, error) {
	out := slices.Clone(sources)
	if !cfg.Enabled {
		return out, nil
	}

	var items []scanItem
	for _, obj := range sources {
		if !obj.HasBuilder() || obj.Source() == nil {
			p.trace(cfg).Str("object", obj.Path).Msg("seems to be a binary, discarded")
			continue
		}
		cpp := obj.Source()
		if !cfg.isCxx(cpp.Ext()) {
			p.trace(cfg).Str("source", cpp.Path).Msg("no cxx file, discarded")
			continue
		}
		contents, err := p.read(cpp, cfg)
		if err != nil {
			// may be a source that is still to be generated
			p.warn().Err(err).Str("source", cpp.Path).Msg("cannot scan source, skipped")
			continue
		}
		items = append(items, scanItem{obj: obj, cpp: cpp, contents: contents})
	}

	included := make(map[string]bool)
	for _, it := range items {
		var (
			handled bool
			err     error
		)
		if cfg.Strategy == InclusionDriven {
			handled, err = p.planIncludeDriven(it, cfg, included)
			if err != nil {
				return nil, err
			}
		}
		if handled {
			continue
		}
		objs, err := p.planMarkerDriven(it, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, objs...)
	}

	return dedupeNodes(out, included), nil
}

// planMarkerDriven mocs the header next to the source when it carries the
// marker and returns the object compiled from that moc output. A marker in the
// source itself gets moc output meant to be #included by the source.
func (p *Planner) planMarkerDriven(it scanItem, cfg ScanConfig) ([]*Node, error) {
	var objs []*Node

	if h, hContents, ok := p.header(it.cpp, cfg); ok && HasMarker(hContents) {
		mocs, err := p.Registrar.Build(p.MocBuilder, h, "")
		if err != nil {
			return nil, err
		}
		for _, m := range mocs {
			o, err := p.Registrar.Build(p.ObjectBuilder, m, "")
			if err != nil {
				return nil, err
			}
			objs = append(objs, o...)
		}
		p.trace(cfg).Str("header", h.Path).Str("moc", mocs[0].Path).Msg("found Q_OBJECT macro")
	}

	if HasMarker(it.contents) {
		mocs, err := p.Registrar.Build(p.MocBuilder, it.cpp, "")
		if err != nil {
			return nil, err
		}
		for _, m := range mocs {
			p.Registrar.Ignore(m)
		}
		p.trace(cfg).Str("source", it.cpp.Path).Str("moc", mocs[0].Path).Msg("found Q_OBJECT macro")
	}
	return objs, nil
}

// planIncludeDriven reports whether the source includes any moc output it
// could be given. included collects moc outputs consumed by #include.
func (p *Planner) planIncludeDriven(it scanItem, cfg ScanConfig, included map[string]bool) (bool, error) {
	stem := it.cpp.Stem()
	hMoc := cfg.XMocHPrefix + stem + cfg.XMocHSuffix
	cxxMoc := cfg.XMocCxxPrefix + stem + cfg.XMocCxxSuffix
	added := false

	if includesFile(it.contents, hMoc) {
		h, hContents, ok := p.header(it.cpp, cfg)
		switch {
		case ok && HasMarker(hContents):
			target := filepath.Join(it.cpp.Dir(), hMoc)
			mocs, err := p.Registrar.Build(p.XMocBuilder, h, target)
			if err != nil {
				return false, err
			}
			for _, m := range mocs {
				p.Registrar.Ignore(m)
				included[m.Path] = true
			}
			added = true
			p.trace(cfg).Str("header", h.Path).Str("moc", target).Msg("found Q_OBJECT macro")
		case ok:
			p.trace(cfg).Str("header", h.Path).Str("include", hMoc).Str("source", it.cpp.Path).
				Msg("found no Q_OBJECT macro, but its moc output is included")
		}
	}

	if includesFile(it.contents, cxxMoc) {
		if HasMarker(it.contents) {
			target := filepath.Join(it.cpp.Dir(), cxxMoc)
			mocs, err := p.Registrar.Build(p.XMocBuilder, it.cpp, target)
			if err != nil {
				return false, err
			}
			for _, m := range mocs {
				p.Registrar.Ignore(m)
			}
			added = true
			p.trace(cfg).Str("source", it.cpp.Path).Str("moc", target).Msg("found Q_OBJECT macro")
		} else {
			p.trace(cfg).Str("source", it.cpp.Path).Str("include", cxxMoc).
				Msg("found no Q_OBJECT macro, although its moc output is included")
		}
	}
	return added, nil
}

// header finds the first existing header next to cpp in HeaderExtensions
// order and returns it with its (optionally comment-stripped) contents.
func (p *Planner) header(cpp *Node, cfg ScanConfig) (*Node, string, bool) {
	for _, ext := range cfg.HeaderExtensions {
		path := filepath.Join(cpp.Dir(), cpp.Stem()+ext)
		if !p.Contents.Exists(path) {
			continue
		}
		h := NewNode(path)
		p.trace(cfg).Str("header", h.Path).Str("source", cpp.Path).Msg("scanning header")
		contents, err := p.read(h, cfg)
		if err != nil {
			p.warn().Err(err).Str("header", h.Path).Msg("cannot scan header, skipped")
			return nil, "", false
		}
		return h, contents, true
	}
	p.trace(cfg).Str("source", cpp.Path).Msg("no header")
	return nil, "", false
}

func (p *Planner) read(n *Node, cfg ScanConfig) (string, error) {
	text, err := p.Contents.Contents(n.Path)
	if err != nil {
		return "", err
	}
	if cfg.GobbleComments {
		text = StripComments(text)
	}
	return text, nil
}

// trace logs planner decisions at info level when QT4_DEBUG is set and at
// debug level otherwise.
func (p *Planner) trace(cfg ScanConfig) *log.Entry {
	if p.Logger == nil {
		return nil
	}
	if cfg.Debug {
		return p.Logger.Info()
	}
	return p.Logger.Debug()
}

func (p *Planner) warn() *log.Entry {
	if p.Logger == nil {
		return nil
	}
	return p.Logger.Warn()
}

// Emit adapts the planner to the link-target emitter signature. The scan
// configuration is read from env on every call.
func (p *Planner) Emit(env *Env, _ *Node, sources []*Node) ([]*Node, error) {
	return p.Plan(sources, ScanConfigFromEnv(env))
}

func includesFile(contents, name string) bool {
	re := regexp.MustCompile(`#include\s+"` + regexp.QuoteMeta(name) + `"`)
	return re.MatchString(contents)
}

// dedupeNodes keeps the first entry per path and drops entries compiled from
// files listed in excluded.
func dedupeNodes(nodes []*Node, excluded map[string]bool) []*Node {
	seen := make(map[string]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if seen[n.Path] {
			continue
		}
		if src := n.Source(); src != nil && excluded[src.Path] {
			continue
		}
		seen[n.Path] = true
		out = append(out, n)
	}
	return out
}
