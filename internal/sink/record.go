package sink

import (
	"strings"

	"github.com/standardbeagle/ff/internal/valtype"
	"github.com/standardbeagle/ff/internal/walker"
)

// emitRecord renders one Result as an `-o`-separated line (spec §4.H
// Record mode). A null field suppresses the whole record unless --all or
// that field's own `n` modifier asks to render it as empty instead.
func (s *Sink) emitRecord(r walker.Result) error {
	fields := make([]string, 0, len(s.cfg.Output))
	for _, f := range s.cfg.Output {
		v, err := r.Ctx.GetResolved(f.Resolved)
		if (err != nil || v.IsNull()) && !s.cfg.All && f.Modifier != valtype.ModDropN {
			return nil // suppressed, not an error (spec §4.H)
		}
		rendered, ferr := valtype.Format(v, f.Modifier)
		if ferr != nil {
			rendered = ""
		}
		if f.Resolved.Descriptor.Kind == valtype.KindPath {
			rendered = s.colorize(rendered, r)
		}
		fields = append(fields, rendered)
	}

	return s.writeLine(strings.Join(fields, s.cfg.Sep))
}
