package sink

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/valtype"
	"github.com/standardbeagle/ff/internal/walker"
)

// LimitSpec implements `-l`'s two forms (spec §4.H): a Python-style
// `[start]:[stop]` slice with negative indices counted from the end, or a
// `pagesize,page` window. `-1` is parsed as the slice form `:1`.
type LimitSpec struct {
	isPage            bool
	start, stop       int  // slice form; absent bound marked by hasStart/hasStop
	hasStart, hasStop bool
	pageSize, page    int // page form
}

// ParseLimit parses the `-l SLICE` argument value.
func ParseLimit(s string) (LimitSpec, error) {
	if s == "" {
		return LimitSpec{}, errkit.New(errkit.KindUsage, "sink.ParseLimit", "empty limit spec")
	}
	if strings.Contains(s, ":") {
		return parseSliceLimit(s)
	}
	if strings.Contains(s, ",") {
		return parsePageLimit(s)
	}
	return LimitSpec{}, errkit.New(errkit.KindUsage, "sink.ParseLimit", fmt.Sprintf("unrecognized limit spec %q: expected [start]:[stop] or pagesize,page", s))
}

// OneLimit is `-1`: equivalent to `:1` (spec §4.H).
func OneLimit() LimitSpec {
	spec, _ := parseSliceLimit(":1")
	return spec
}

func parseSliceLimit(s string) (LimitSpec, error) {
	parts := strings.SplitN(s, ":", 2)
	spec := LimitSpec{}
	if parts[0] != "" {
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return LimitSpec{}, errkit.New(errkit.KindUsage, "sink.ParseLimit", fmt.Sprintf("invalid start %q", parts[0]))
		}
		spec.start, spec.hasStart = n, true
	}
	if len(parts) > 1 && parts[1] != "" {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return LimitSpec{}, errkit.New(errkit.KindUsage, "sink.ParseLimit", fmt.Sprintf("invalid stop %q", parts[1]))
		}
		spec.stop, spec.hasStop = n, true
	}
	return spec, nil
}

func parsePageLimit(s string) (LimitSpec, error) {
	parts := strings.SplitN(s, ",", 2)
	size, err := strconv.Atoi(parts[0])
	if err != nil || size < 0 {
		return LimitSpec{}, errkit.New(errkit.KindUsage, "sink.ParseLimit", fmt.Sprintf("invalid page size %q", parts[0]))
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil || page < 0 {
		return LimitSpec{}, errkit.New(errkit.KindUsage, "sink.ParseLimit", fmt.Sprintf("invalid page number %q", parts[1]))
	}
	return LimitSpec{isPage: true, pageSize: size, page: page}, nil
}

// resolveIndex turns a possibly-negative slice bound into an absolute
// index into a set of size n, clamped to [0, n] (spec §8, "Negative slice
// indices with |stop| > N clamp to 0/N").
func resolveIndex(n, idx int) int {
	if idx < 0 {
		idx += n
	}
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}

// Apply windows results per the slice or page form, clamped to the
// available count.
func (spec LimitSpec) Apply(results []walker.Result) []walker.Result {
	n := len(results)
	var lo, hi int
	if spec.isPage {
		lo = spec.pageSize * spec.page
		hi = lo + spec.pageSize
	} else {
		lo = 0
		if spec.hasStart {
			lo = resolveIndex(n, spec.start)
		}
		hi = n
		if spec.hasStop {
			hi = resolveIndex(n, spec.stop)
		}
	}
	lo = resolveIndex(n, lo)
	hi = resolveIndex(n, hi)
	if hi < lo {
		return nil
	}
	return results[lo:hi]
}

// sortResults orders results by the `-S` attribute list's derived sort
// keys, comparing attributes left-to-right (spec §4.H), then reverses for
// `-R`. The sort is stable (spec §8 invariant 4: "a stable permutation").
func sortResults(results []walker.Result, keys []OutputField, reverse bool) error {
	derived := make([][]valtype.SortKey, len(results))
	for i, r := range results {
		row := make([]valtype.SortKey, len(keys))
		for j, f := range keys {
			v, _ := r.Ctx.GetResolved(f.Resolved)
			k, err := valtype.DeriveSortKey(v, f.Modifier)
			if err != nil {
				return err
			}
			row[j] = k
		}
		derived[i] = row
	}

	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := derived[idx[a]], derived[idx[b]]
		for i := range ra {
			if ra[i].Less(rb[i]) {
				return true
			}
			if rb[i].Less(ra[i]) {
				return false
			}
		}
		return false
	})
	if reverse {
		for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}

	sorted := make([]walker.Result, len(results))
	for i, j := range idx {
		sorted[i] = results[j]
	}
	copy(results, sorted)
	return nil
}
