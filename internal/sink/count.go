package sink

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/ff/internal/valtype"
	"github.com/standardbeagle/ff/internal/walker"
)

// counter accumulates one `--count` attribute's values per its
// valtype.Policy (spec §4.A, §4.H): CountSum totals a numeric Value,
// CountTally counts occurrences of each distinct formatted value.
type counter struct {
	policy valtype.CountPolicy
	sum    int64
	tally  map[string]int64
}

func newCounter(policy valtype.CountPolicy) *counter {
	c := &counter{policy: policy}
	if policy == valtype.CountTally {
		c.tally = make(map[string]int64)
	}
	return c
}

func (c *counter) add(v valtype.Value) {
	if v.IsNull() {
		return
	}
	switch c.policy {
	case valtype.CountSum:
		c.sum += v.Num()
	case valtype.CountTally:
		s, err := valtype.Format(v, valtype.ModNone)
		if err != nil {
			return
		}
		c.tally[s]++
	}
}

// emitCount implements `--count` (spec §4.H): one line per distinct
// tallied value (`attr[value]=count`) or one summed total (`attr=sum`),
// plus a trailing `_total=N` always present.
func (s *Sink) emitCount(results []walker.Result) (Summary, error) {
	counters := make([]*counter, len(s.cfg.Count))
	for i, f := range s.cfg.Count {
		policy := valtype.Policy(f.Resolved.Descriptor.Kind)
		if policy == valtype.CountNotCountable {
			return Summary{}, attrError("sink.Count", fmt.Sprintf("attribute %q is not countable", f.Label))
		}
		counters[i] = newCounter(policy)
	}

	for _, r := range results {
		for i, f := range s.cfg.Count {
			v, _ := r.Ctx.GetResolved(f.Resolved)
			counters[i].add(v)
		}
	}

	for i, f := range s.cfg.Count {
		c := counters[i]
		switch c.policy {
		case valtype.CountSum:
			if err := s.writeLine(fmt.Sprintf("%s=%d", f.Label, c.sum)); err != nil {
				return Summary{}, err
			}
		case valtype.CountTally:
			keys := make([]string, 0, len(c.tally))
			for k := range c.tally {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if err := s.writeLine(fmt.Sprintf("%s[%s]=%d", f.Label, k, c.tally[k])); err != nil {
					return Summary{}, err
				}
			}
		}
	}
	if err := s.writeLine(fmt.Sprintf("_total=%d", len(results))); err != nil {
		return Summary{}, err
	}
	return Summary{Matches: len(results)}, nil
}

func (s *Sink) writeLine(line string) error {
	return s.write(append([]byte(line), s.lineTerminator()))
}
