// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"go/scanner"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luthersystems/hints/compiler"
	"github.com/luthersystems/hints/document"
	"github.com/luthersystems/hints/fix"
	"github.com/luthersystems/hints/hint"
	"github.com/luthersystems/hints/project"
)

// Exit codes of the check command.
const (
	exitClean    = 0
	exitFindings = 1
	exitError    = 2
)

type checkOptions struct {
	json     bool
	checks   string
	list     bool
	excludes []string
	fix      bool
	cacheDir string
}

// CheckCommand returns a cobra command that checks Go files. Options can
// replace the rules or the file system.
func CheckCommand(opts ...Option) *cobra.Command {
	cfg := newConfig(opts)
	var o checkOptions

	cmd := &cobra.Command{
		Use:   "check [flags] [files or directories...]",
		Short: "Report likely mistakes in Go files",
		Long: `Check Go source files for likely mistakes.

Arguments may be files, directories (their .go files) or patterns ending in
"/..." (every .go file below, skipping hidden directories, vendor and
testdata). With no arguments "./..." is checked.

With --fix the preferred fix of every finding is applied and the files are
rewritten; findings that remain are reported afterwards.

Exit status is 0 when nothing was found, 1 when findings were reported and 2
on errors.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyConfig(cmd.LocalNonPersistentFlags(), "check")
		},
		Run: func(cmd *cobra.Command, args []string) {
			code := runCheck(cmd.Context(), cfg, o, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != exitClean {
				os.Exit(code)
			}
		},
	}

	cmd.Flags().BoolVar(&o.json, "json", false,
		"Print diagnostics as a JSON array on stdout.")
	cmd.Flags().StringVar(&o.checks, "checks", "",
		"Comma-separated rule names to run (default: all).")
	cmd.Flags().BoolVar(&o.list, "list", false,
		"List the available rules and exit.")
	cmd.Flags().StringArrayVar(&o.excludes, "exclude", nil,
		"Glob pattern for files or directories to skip (repeatable).")
	cmd.Flags().BoolVar(&o.fix, "fix", false,
		"Apply the preferred fix of every finding.")
	cmd.Flags().StringVar(&o.cacheDir, "cache-dir", "",
		"Remember clean files here and skip them while unchanged.")
	return cmd
}

func init() {
	rootCmd.AddCommand(CheckCommand())
}

// runCheck runs the check command and returns its exit code.
func runCheck(ctx context.Context, cfg *cmdConfig, o checkOptions, args []string, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(stderr)
	rules, err := selectRules(cfg.resolveRules(), o.checks)
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck
		return exitError
	}
	if o.list {
		for _, r := range rules {
			fmt.Fprintf(stdout, "%-20s %s\n", r.Name, summary(r.Doc)) //nolint:errcheck
		}
		return exitClean
	}

	fsys := cfg.fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if len(args) == 0 {
		args = []string{"./..."}
	}
	files, err := expandArgs(fsys, args, o.excludes)
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck
		return exitError
	}
	if len(files) == 0 {
		logger.Warn("no Go files to check", "args", strings.Join(args, " "))
		return exitClean
	}

	scratch, err := afero.TempDir(fsys, "", "hints-check")
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck
		return exitError
	}
	defer fsys.RemoveAll(scratch) //nolint:errcheck

	c := &checker{
		fs:      fsys,
		scratch: scratch,
		engine:  hint.NewEngine(rules...),
		rules:   ruleKey(rules),
		fix:     o.fix,
		log:     logger,
	}
	if o.cacheDir != "" {
		c.cache = project.NewCache(fsys, o.cacheDir)
	}
	diags, err := c.checkAll(ctx, files)
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck
		return exitError
	}

	if o.json {
		if err := hint.FormatJSON(stdout, diags); err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck
			return exitError
		}
	} else if err := renderDiagnostics(stderr, fsys, diags); err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck
		return exitError
	}
	if len(diags) > 0 {
		return exitFindings
	}
	return exitClean
}

// selectRules narrows rules to the comma-separated names in checks.
func selectRules(rules []*hint.Rule, checks string) ([]*hint.Rule, error) {
	if strings.TrimSpace(checks) == "" {
		return rules, nil
	}
	byName := make(map[string]*hint.Rule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}
	var out []*hint.Rule
	for _, name := range strings.Split(checks, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		out = append(out, r)
	}
	return out, nil
}

func ruleKey(rules []*hint.Rule) string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func summary(doc string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(doc), "\n")
	return first
}

// checkRecord is stored in the cache for files found clean.
type checkRecord struct {
	Digest project.Digest
	Rules  string
}

type checker struct {
	fs      afero.Fs
	scratch string
	engine  *hint.Engine
	rules   string
	cache   *project.Cache
	fix     bool
	log     *log.Logger
}

// checkAll checks files and returns the findings ordered by file, then
// position. Packages are checked concurrently; the files of one package are
// checked one after another, since a fix rewrites a file its siblings read.
func (c *checker) checkAll(ctx context.Context, files []string) ([]*hint.Diagnostic, error) {
	results := make([][]*hint.Diagnostic, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, pkg := range byPackage(files) {
		g.Go(func() error {
			for _, i := range pkg {
				diags, err := c.checkFile(ctx, i, files[i])
				if err != nil {
					return fmt.Errorf("check %s: %w", files[i], err)
				}
				results[i] = diags
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []*hint.Diagnostic
	for _, diags := range results {
		all = append(all, diags...)
	}
	return all, nil
}

// byPackage groups the indexes of files by directory, in order of first
// appearance.
func byPackage(files []string) [][]int {
	var groups [][]int
	index := make(map[string]int)
	for i, file := range files {
		dir := filepath.Dir(file)
		g, ok := index[dir]
		if !ok {
			g = len(groups)
			index[dir] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// checkFile checks one file in a project rooted at its directory. Every file
// gets its own build and cache area.
func (c *checker) checkFile(ctx context.Context, i int, file string) ([]*hint.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, base := filepath.Dir(file), filepath.Base(file)
	area := filepath.Join(c.scratch, strconv.Itoa(i))
	proj := project.Open(c.fs, dir,
		filepath.Join(area, project.BuildDir),
		filepath.Join(area, project.CacheDir))

	f, err := proj.Find(base)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", os.ErrNotExist, file)
	}
	key, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	digest, err := packageDigest(proj)
	if err != nil {
		return nil, err
	}
	if c.cached(key, digest) {
		c.log.Debug("unchanged since last clean check", "file", file)
		return nil, nil
	}

	docs := document.NewStore(proj)
	if _, err := docs.Open(base); err != nil {
		return nil, err
	}
	diags, err := c.run(ctx, docs, base)
	if err != nil {
		return nil, err
	}
	if c.fix && len(diags) > 0 {
		diags, err = c.applyFixes(ctx, docs, base, diags)
		if err != nil {
			return nil, err
		}
		if digest, err = packageDigest(proj); err != nil {
			return nil, err
		}
	}
	c.log.Debug("checked", "file", file, "diagnostics", len(diags))

	if len(diags) == 0 && c.cache != nil {
		if err := c.cache.Put(key, checkRecord{Digest: digest, Rules: c.rules}); err != nil {
			c.log.Warn("cache write failed", "file", file, "err", err)
		}
	}
	for _, d := range diags {
		d.Range.File = filepath.Join(dir, filepath.FromSlash(d.Range.File))
	}
	return diags, nil
}

// run resolves name from docs and returns its syntax errors, or the rule
// findings when it parses.
func (c *checker) run(ctx context.Context, docs *document.Store, name string) ([]*hint.Diagnostic, error) {
	info, err := compiler.New(docs.Project(), compiler.WithOverlay(docs)).Resolve(ctx, name, compiler.PhaseResolved)
	if err != nil {
		return nil, err
	}
	if syntax := syntaxDiagnostics(info); len(syntax) > 0 {
		return syntax, nil
	}
	return c.engine.Check(ctx, info)
}

// applyFixes applies the preferred fix of every finding, saves the touched
// files and checks name again.
func (c *checker) applyFixes(ctx context.Context, docs *document.Store, name string, diags []*hint.Diagnostic) ([]*hint.Diagnostic, error) {
	res, err := fix.ApplyAll(docs, diags, fix.Options{Lazy: true, Skip: []string{"suppress"}})
	if err != nil {
		return nil, err
	}
	for _, s := range res.Skipped {
		c.log.Debug("fix skipped", "file", name, "rule", s.Rule, "title", s.Title, "reason", s.Reason)
	}
	if len(res.Applied) == 0 {
		return diags, nil
	}
	if err := docs.SaveAll(); err != nil {
		return nil, err
	}
	for _, a := range res.Applied {
		c.log.Info("fixed", "file", a.File, "rule", a.Rule, "fix", a.Title)
	}
	return c.run(ctx, docs, name)
}

func (c *checker) cached(key string, digest project.Digest) bool {
	var rec checkRecord
	ok, err := c.cache.Get(key, &rec)
	if err != nil {
		c.log.Warn("cache read failed", "key", key, "err", err)
		return false
	}
	return ok && rec.Digest == digest && rec.Rules == c.rules
}

// packageDigest hashes the names and contents of the package's files, since
// a finding in one file can depend on its siblings.
func packageDigest(proj *project.Project) (project.Digest, error) {
	names, err := proj.PackageFiles(".")
	if err != nil {
		return project.Digest{}, err
	}
	var buf []byte
	for _, name := range names {
		src, err := proj.ReadFile(name)
		if err != nil {
			return project.Digest{}, err
		}
		buf = append(buf, name...)
		buf = append(buf, 0)
		buf = append(buf, src...)
		buf = append(buf, 0)
	}
	return project.DigestOf(buf), nil
}

// syntaxDiagnostics converts the parse errors of the resolved file.
func syntaxDiagnostics(info *compiler.Info) []*hint.Diagnostic {
	var diags []*hint.Diagnostic
	for _, e := range info.Errors {
		se, ok := e.(*scanner.Error)
		if !ok || se.Pos.Filename != info.Name {
			continue
		}
		pos := hint.Position{Offset: se.Pos.Offset, Line: se.Pos.Line - 1, Col: se.Pos.Column - 1}
		diags = append(diags, &hint.Diagnostic{
			Rule:     syntaxRule,
			Severity: hint.SeverityError,
			Message:  se.Msg,
			Range:    hint.Range{File: info.Name, Start: pos, End: pos},
		})
	}
	return diags
}
