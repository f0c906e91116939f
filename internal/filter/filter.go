// Package filter implements the composable FileFilter predicates from
// spec.md §4.C, generalized from the teacher's shouldIgnoreFile name/
// extension checks into the tagged-variant-with-accept shape spec.md §9
// calls for.
package filter

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// MatchMode selects how a composite filter combines its children.
type MatchMode int

const (
	MatchAll MatchMode = iota
	MatchAny
)

// extensionFilter accepts entries whose extension is (or is not) present in
// a set, case-insensitively — generalized from the teacher's
// shouldIgnoreFile tmpExtensions/systemFiles checks.
type extensionFilter struct {
	extensions map[string]bool
	include    bool // true: accept only if present; false: accept only if absent
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IncludeExtensions accepts only files whose extension is in the list.
func IncludeExtensions(extensions ...string) types.FileFilter {
	set := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		set[normalizeExt(e)] = true
	}
	return &extensionFilter{extensions: set, include: true}
}

// ExcludeExtensions rejects files whose extension is in the list.
func ExcludeExtensions(extensions ...string) types.FileFilter {
	set := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		set[normalizeExt(e)] = true
	}
	return &extensionFilter{extensions: set, include: false}
}

func (f *extensionFilter) Accept(entry types.FilterEntry) bool {
	ext := normalizeExt(filepath.Ext(entry.Name))
	present := f.extensions[ext]
	if f.include {
		return present
	}
	return !present
}

// sizeRangeFilter accepts entries whose size falls within [min, max].
// A nil bound is unconstrained on that side.
type sizeRangeFilter struct {
	min, max *uint64
}

// SizeRange accepts files whose size is between min and max inclusive.
// Pass nil for an unconstrained bound.
func SizeRange(min, max *uint64) types.FileFilter {
	return &sizeRangeFilter{min: min, max: max}
}

func (f *sizeRangeFilter) Accept(entry types.FilterEntry) bool {
	if f.min != nil && entry.Size < *f.min {
		return false
	}
	if f.max != nil && entry.Size > *f.max {
		return false
	}
	return true
}

// globFilter accepts entries whose name matches a shell-style glob pattern,
// case-insensitively, per spec.md §4.C's "* -> .*, ? -> ., escape .". Go's
// own filepath.Match does not support this exact translation (it is
// case-sensitive and has different escaping rules), so matching is
// delegated to github.com/gobwas/glob, compiled case-insensitively by
// lower-casing both pattern and candidate.
type globFilter struct {
	compiled glob.Glob
}

// Glob accepts files whose name matches pattern and rejects all others. It
// has no inverted mode; a glob that rejects its matches is not available.
func Glob(pattern string) types.FileFilter {
	return &globFilter{compiled: glob.MustCompile(strings.ToLower(pattern))}
}

func (f *globFilter) Accept(entry types.FilterEntry) bool {
	return f.compiled.Match(strings.ToLower(entry.Name))
}

// regexFilter accepts entries whose name matches a regular expression.
type regexFilter struct {
	re *regexp.Regexp
}

// Regex accepts files whose name matches the (case-insensitive) pattern.
func Regex(pattern string) (types.FileFilter, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	return &regexFilter{re: re}, nil
}

func (f *regexFilter) Accept(entry types.FilterEntry) bool {
	return f.re.MatchString(entry.Name)
}

// hiddenFilter rejects hidden entries (dotfiles), the generalized form of
// the teacher's strings.HasPrefix(name, ".") check.
type hiddenFilter struct{}

// HiddenFilter rejects any entry flagged as hidden.
func HiddenFilter() types.FileFilter { return hiddenFilter{} }

func (hiddenFilter) Accept(entry types.FilterEntry) bool { return !entry.IsHidden }

// pathPrefixFilter accepts entries whose relative path starts with a prefix.
type pathPrefixFilter struct {
	prefix string
}

// PathPrefix accepts only paths under prefix.
func PathPrefix(prefix string) types.FileFilter {
	return &pathPrefixFilter{prefix: prefix}
}

func (f *pathPrefixFilter) Accept(entry types.FilterEntry) bool {
	return strings.HasPrefix(string(entry.Path), f.prefix)
}

// CustomFunc adapts a plain function into a FileFilter.
type CustomFunc func(entry types.FilterEntry) bool

// Custom wraps fn as a FileFilter.
func Custom(fn CustomFunc) types.FileFilter { return fn }

func (fn CustomFunc) Accept(entry types.FilterEntry) bool { return fn(entry) }

// composite combines children under a MatchMode.
type composite struct {
	children []types.FileFilter
	mode     MatchMode
}

// All accepts an entry only if every child accepts it.
func All(children ...types.FileFilter) types.FileFilter {
	return &composite{children: children, mode: MatchAll}
}

// Any accepts an entry if at least one child accepts it. With no children
// it accepts every entry.
func Any(children ...types.FileFilter) types.FileFilter {
	return &composite{children: children, mode: MatchAny}
}

func (c *composite) Accept(entry types.FilterEntry) bool {
	if c.mode == MatchAll {
		for _, child := range c.children {
			if !child.Accept(entry) {
				return false
			}
		}
		return true
	}
	for _, child := range c.children {
		if child.Accept(entry) {
			return true
		}
	}
	return len(c.children) == 0
}

// not negates a child filter.
type not struct {
	child types.FileFilter
}

// Not negates a filter.
func Not(child types.FileFilter) types.FileFilter {
	return &not{child: child}
}

func (n *not) Accept(entry types.FilterEntry) bool { return !n.child.Accept(entry) }

// AcceptAll reports whether every filter in the list accepts entry — the
// top-level rule from spec.md §4.C ("a file is accepted only if every
// top-level filter accepts it").
func AcceptAll(filters []types.FileFilter, entry types.FilterEntry) bool {
	for _, f := range filters {
		if !f.Accept(entry) {
			return false
		}
	}
	return true
}

// DefaultSyncFilter matches the teacher's shouldIgnoreFile defaults: hidden
// files, common temp-file suffixes, and known OS sidecar files, expressed
// as a composite FileFilter instead of a hardcoded function.
func DefaultSyncFilter() types.FileFilter {
	return All(
		HiddenFilter(),
		ExcludeExtensions("tmp", "temp", "swp", "swo"),
		Not(Glob("Thumbs.db")),
		Not(Glob(".DS_Store")),
		Not(Glob("desktop.ini")),
	)
}
