package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/ff/internal/cache"
	"github.com/standardbeagle/ff/internal/config"
	"github.com/standardbeagle/ff/internal/debug"
	"github.com/standardbeagle/ff/internal/engine"
	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/providers"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/sink"
	"github.com/standardbeagle/ff/internal/valtype"
	"github.com/standardbeagle/ff/internal/version"
)

func main() {
	args := append([]string{os.Args[0]}, config.SplitOptions(os.Getenv("FF_OPTIONS"))...)
	args = append(args, os.Args[1:]...)

	app := &cli.App{
		Name:                   "ff",
		Usage:                  "parallel filesystem search",
		Version:                version.Version,
		UseShortOptionHandling: true,
		ArgsUsage:              "[test...] [path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file path (default .ff.kdl)"},
			&cli.StringSliceFlag{Name: "exclude", Aliases: []string{"e"}, Usage: "exclusion test (repeatable)"},
			&cli.BoolFlag{Name: "hide", Aliases: []string{"H"}, Usage: "exclude hidden entries"},
			&cli.BoolFlag{Name: "skip-ignored", Aliases: []string{"I"}, Usage: "exclude entries matched by an ignore file"},
			&cli.BoolFlag{Name: "no-parent-ignore", Usage: "don't inherit ignore rules from ancestor directories"},
			&cli.StringFlag{Name: "ignore-files", Usage: "comma-separated ignore file names"},
			&cli.StringFlag{Name: "depth", Aliases: []string{"d"}, Usage: "output depth range MIN:MAX"},
			&cli.StringFlag{Name: "case", Aliases: []string{"c"}, Value: "smart", Usage: "smart|ignore|sensitive: string comparison case policy"},
			&cli.IntFlag{Name: "max-depth", Usage: "traversal depth cap"},
			&cli.BoolFlag{Name: "follow", Aliases: []string{"L"}, Usage: "follow symlinks"},
			&cli.BoolFlag{Name: "one-file-system", Aliases: []string{"mount", "xdev"}, Usage: "don't cross filesystem boundaries"},
			&cli.IntFlag{Name: "workers", Usage: "worker count (default: one per CPU)"},

			&cli.StringFlag{Name: "exec", Aliases: []string{"x"}, Usage: "run COMMAND once per match"},
			&cli.StringFlag{Name: "exec-batch", Aliases: []string{"X"}, Usage: "run COMMAND once over all matches"},
			&cli.StringFlag{Name: "halt", Value: "never", Usage: "never|soon|now: behavior when an exec fails"},
			&cli.StringFlag{Name: "color", Aliases: []string{"C"}, Value: "auto", Usage: "never|auto|always"},
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "never suppress a record for a null field"},
			&cli.BoolFlag{Name: "print0", Aliases: []string{"0"}, Usage: "NUL-separate records instead of newline"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
			&cli.StringFlag{Name: "sort", Aliases: []string{"S"}, Usage: "sort by attribute list (a list is required)"},
			&cli.BoolFlag{Name: "reverse", Aliases: []string{"R"}, Usage: "reverse sort order"},
			&cli.StringFlag{Name: "count", Usage: "tally by attribute list instead of listing records"},
			&cli.StringFlag{Name: "limit", Aliases: []string{"l"}, Usage: "[start]:[stop] slice or pagesize,page"},
			&cli.BoolFlag{Name: "one", Aliases: []string{"1"}, Usage: "equivalent to -l :1"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "comma-separated attribute list to print"},
			&cli.StringFlag{Name: "sep", Value: " ", Usage: "field separator for -o"},
			&cli.BoolFlag{Name: "json", Usage: "emit one JSON array"},
			&cli.BoolFlag{Name: "jsonl", Aliases: []string{"ndjson"}, Usage: "emit one JSON object per line"},
			&cli.BoolFlag{Name: "fail", Usage: "exit 1 on zero matches"},
			&cli.BoolFlag{Name: "si", Usage: "use SI (base-1000) size units"},

			&cli.StringFlag{Name: "cache", Usage: "cache file path"},
			&cli.BoolFlag{Name: "no-cache", Usage: "disable the attribute cache"},
			&cli.BoolFlag{Name: "clean-cache", Usage: "remove stale cache entries and exit"},

			&cli.BoolFlag{Name: "help-full", Usage: "print the full manual and exit"},
			&cli.BoolFlag{Name: "help-attributes", Usage: "list every registered attribute and exit"},
			&cli.BoolFlag{Name: "help-plugins", Usage: "list every loaded provider and exit"},
			&cli.BoolFlag{Name: "help-types", Usage: "list every attribute type and exit"},
		},
		Action: run,
	}

	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, "ff:", err)
		os.Exit(errkit.ExitCode(err))
	}
}

func run(c *cli.Context) error {
	debug.SetOutput(nil)
	if c.Bool("verbose") {
		debug.SetOutput(os.Stderr)
	}
	caseMode, err := parseCaseMode(c.String("case"))
	if err != nil {
		return err
	}
	valtype.SetCaseMode(caseMode)

	searchDir, err := os.Getwd()
	if err != nil {
		return errkit.Wrap(errkit.KindUsage, "main.run", "cannot resolve working directory", err)
	}
	cfg, err := config.Load(c.String("config"), searchDir)
	if err != nil {
		return errkit.Wrap(errkit.KindUsage, "main.run", "cannot load config", err)
	}
	if !c.IsSet("color") && cfg.Color != "" {
		_ = c.Set("color", cfg.Color)
	}
	if !c.IsSet("halt") && cfg.Halt != "" {
		_ = c.Set("halt", cfg.Halt)
	}

	reg, err := registry.New(providers.Core())
	if err != nil {
		return err
	}

	switch {
	case c.Bool("help-attributes"):
		return printAttributes(reg)
	case c.Bool("help-plugins"):
		return printPlugins(reg)
	case c.Bool("help-types"):
		return printTypes()
	case c.Bool("help-full"):
		return cli.ShowAppHelp(c)
	}

	cachePath := cfg.CachePath
	if v := c.String("cache"); v != "" {
		cachePath = v
	}
	if c.Bool("clean-cache") {
		return cleanCache(cachePath)
	}

	roots, mainTokens := splitPositionals(c.Args().Slice())
	if len(roots) == 0 {
		roots = []string{"."}
	}

	minDepth, maxDepth, err := parseDepthRange(c.String("depth"))
	if err != nil {
		return err
	}

	ignoreFiles := cfg.IgnoreFiles
	if v := c.String("ignore-files"); v != "" {
		ignoreFiles = strings.Split(v, ",")
	}

	workers := cfg.WorkerCount()
	if v := c.Int("workers"); v > 0 {
		workers = v
	}

	// Each --exclude value is one test token (spec §4.F builds the
	// exclusion evaluator from ParseTestToken, not the full expression
	// grammar), so it is passed through unsplit.
	excludeTokens := c.StringSlice("exclude")

	outCfg, err := buildSinkConfig(c, reg)
	if err != nil {
		return err
	}

	engineCfg := engine.Config{
		Roots:           roots,
		ExprTokens:      mainTokens,
		ExcludeTokens:   excludeTokens,
		Hide:            c.Bool("hide"),
		SkipIgnored:     c.Bool("skip-ignored"),
		FollowSymlinks:  c.Bool("follow"),
		OneFileSystem:   c.Bool("one-file-system"),
		MinDepth:        minDepth,
		MaxDepth:        maxDepth,
		TraverseDepth:   c.Int("max-depth"),
		IgnoreFileNames: ignoreFiles,
		NoParentIgnore:  c.Bool("no-parent-ignore"),
		Workers:         workers,
		SI:              c.Bool("si"),
		CachePath:       cachePath,
		NoCache:         c.Bool("no-cache"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			cancel()
		}
	}()
	defer signal.Stop(sigCh)

	summary, err := engine.Run(ctx, engineCfg, outCfg, os.Stdout)
	if err != nil {
		return err
	}
	if summary.ExecFailures > 0 {
		return errkit.New(errkit.KindSubprocess, "main.run", fmt.Sprintf("%d of %d exec runs failed", summary.ExecFailures, summary.ExecRuns))
	}
	return nil
}

// splitPositionals applies the root/test discrimination rule spec §6
// names: a token is a search root iff it contains `/` and names an
// existing filesystem entry; everything else is an expression token
// (already split by the shell, so no further tokenizing is needed here).
func splitPositionals(args []string) (roots, exprTokens []string) {
	for _, a := range args {
		if isRootToken(a) {
			roots = append(roots, a)
			continue
		}
		exprTokens = append(exprTokens, a)
	}
	return roots, exprTokens
}

func parseCaseMode(s string) (valtype.CaseMode, error) {
	switch s {
	case "smart", "":
		return valtype.CaseSmart, nil
	case "ignore":
		return valtype.CaseIgnore, nil
	case "sensitive":
		return valtype.CaseSensitive, nil
	default:
		return 0, errkit.New(errkit.KindUsage, "parseCaseMode", "invalid -c value: "+s)
	}
}

func parseDepthRange(s string) (min, max int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) == 1 {
		if _, e := fmt.Sscanf(parts[0], "%d", &min); e != nil {
			return 0, 0, errkit.New(errkit.KindUsage, "parseDepthRange", "invalid -d value: "+s)
		}
		return min, min, nil
	}
	if parts[0] != "" {
		if _, e := fmt.Sscanf(parts[0], "%d", &min); e != nil {
			return 0, 0, errkit.New(errkit.KindUsage, "parseDepthRange", "invalid -d value: "+s)
		}
	}
	if parts[1] != "" {
		if _, e := fmt.Sscanf(parts[1], "%d", &max); e != nil {
			return 0, 0, errkit.New(errkit.KindUsage, "parseDepthRange", "invalid -d value: "+s)
		}
	}
	return min, max, nil
}

func buildSinkConfig(c *cli.Context, reg *registry.Registry) (sink.Config, error) {
	cfg := sink.Config{
		Sep:     c.String("sep"),
		All:     c.Bool("all"),
		NullSep: c.Bool("print0"),
		Reverse: c.Bool("reverse"),
		Fail:    c.Bool("fail"),
	}

	colorMode, ok := sink.ParseColorMode(c.String("color"))
	if !ok {
		return sink.Config{}, errkit.New(errkit.KindUsage, "buildSinkConfig", "invalid --color value: "+c.String("color"))
	}
	cfg.Color = colorMode

	switch {
	case c.Bool("json"):
		cfg.Mode = sink.ModeJSON
	case c.Bool("jsonl"):
		cfg.Mode = sink.ModeJSONL
	case c.String("count") != "":
		cfg.Mode = sink.ModeCount
	case c.String("exec") != "" || c.String("exec-batch") != "":
		cfg.Mode = sink.ModeExec
	default:
		cfg.Mode = sink.ModeRecord
	}

	if v := c.String("output"); v != "" {
		fields, err := parseFieldList(reg, v)
		if err != nil {
			return sink.Config{}, err
		}
		cfg.Output = fields
	}
	if v := c.String("count"); v != "" {
		fields, err := parseFieldList(reg, v)
		if err != nil {
			return sink.Config{}, err
		}
		cfg.Count = fields
	}
	if v := c.String("sort"); v != "" {
		fields, err := parseFieldList(reg, v)
		if err != nil {
			return sink.Config{}, err
		}
		cfg.Sort = fields
	}

	if v := c.String("limit"); v != "" {
		spec, err := sink.ParseLimit(v)
		if err != nil {
			return sink.Config{}, err
		}
		cfg.Limit = &spec
	} else if c.Bool("one") {
		spec := sink.OneLimit()
		cfg.Limit = &spec
	}

	if cmdLine := c.String("exec"); cmdLine != "" {
		cfg.Exec = buildExecSpec(cmdLine, false, c.String("halt"))
	} else if cmdLine := c.String("exec-batch"); cmdLine != "" {
		cfg.Exec = buildExecSpec(cmdLine, true, c.String("halt"))
	}

	return cfg, nil
}

func buildExecSpec(cmdLine string, batch bool, haltFlag string) *sink.ExecSpec {
	words := config.SplitOptions(cmdLine)
	halt := sink.HaltNever
	switch haltFlag {
	case "soon":
		halt = sink.HaltSoon
	case "now":
		halt = sink.HaltNow
	}
	if len(words) == 0 {
		return &sink.ExecSpec{Batch: batch, Halt: halt}
	}
	return &sink.ExecSpec{Command: words[0], Args: words[1:], Batch: batch, Halt: halt}
}

func printAttributes(reg *registry.Registry) error {
	for _, r := range reg.Describe() {
		fmt.Printf("%s.%s\t%s\t%s\n", r.Provider, r.Descriptor.Name, r.Descriptor.Kind, r.Descriptor.Help)
	}
	return nil
}

func printPlugins(reg *registry.Registry) error {
	for _, cat := range reg.Categories() {
		fmt.Println(cat.Provider)
		for _, d := range cat.Attributes {
			fmt.Printf("  %s\t%s\n", d.Name, d.Kind)
		}
	}
	return nil
}

func printTypes() error {
	for _, k := range []string{"string", "path", "number", "size", "time", "duration", "mode", "filetype", "bool", "list"} {
		fmt.Println(k)
	}
	return nil
}

func cleanCache(path string) error {
	c, err := cache.Open(path)
	if err != nil {
		return errkit.Wrap(errkit.KindUsage, "cleanCache", "cannot open cache", err)
	}
	defer c.Close()
	removed, err := c.CleanCache(statFunc)
	if err != nil {
		return errkit.Wrap(errkit.KindUsage, "cleanCache", "clean failed", err)
	}
	fmt.Printf("removed %d stale cache entries\n", removed)
	return nil
}

func statFunc(path string) (mtimeNs, size int64, exists bool, err error) {
	info, serr := os.Stat(path)
	if serr != nil {
		if os.IsNotExist(serr) {
			return 0, 0, false, nil
		}
		return 0, 0, false, serr
	}
	return info.ModTime().UnixNano(), info.Size(), true, nil
}
