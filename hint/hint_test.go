// Copyright © 2024 The ELPS authors

package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/luthersystems/hints/compiler"
	"github.com/luthersystems/hints/project"
)

// resolveSource writes src as test.go (plus extra files) and resolves it.
func resolveSource(t *testing.T, src string, extra ...string) *compiler.Info {
	t.Helper()
	p, err := project.New(afero.NewMemMapFs(), "/work")
	require.NoError(t, err)
	_, err = p.CreateFile("test.go", src)
	require.NoError(t, err)
	for i := 0; i+1 < len(extra); i += 2 {
		_, err = p.CreateFile(extra[i], extra[i+1])
		require.NoError(t, err)
	}
	info, err := compiler.New(p).Resolve(context.Background(), "test.go", compiler.PhaseResolved)
	require.NoError(t, err)
	return info
}

// check runs rules over src with the engine.
func check(t *testing.T, src string, rules ...*Rule) []*Diagnostic {
	t.Helper()
	diags, err := NewEngine(rules...).Check(context.Background(), resolveSource(t, src))
	require.NoError(t, err)
	return diags
}

// runAt runs rule at the path enclosing the first occurrence of at in src.
func runAt(t *testing.T, rule *Rule, src, at string) (*compiler.Info, []*Diagnostic) {
	t.Helper()
	info := resolveSource(t, src)
	offset := strings.Index(src, at)
	require.GreaterOrEqual(t, offset, 0, "%q not in source", at)
	path, err := info.PathFor(offset)
	require.NoError(t, err)
	diags, err := RunAt(rule, info, path, offset)
	require.NoError(t, err)
	return info, diags
}

func onlyFix(t *testing.T, d *Diagnostic) *Fix {
	t.Helper()
	fixes, ok := Computed(d.Fixes)
	require.True(t, ok, "fixes are computed")
	require.Len(t, fixes, 1)
	return fixes[0]
}

// ruleFix returns the single fix a rule offered for an engine diagnostic.
// Engine fix sets are lazy and end with the suppression fix.
func ruleFix(t *testing.T, d *Diagnostic) *Fix {
	t.Helper()
	fixes := Materialize(d.Fixes)
	require.Len(t, fixes, 2)
	assert.Equal(t, "suppress", fixes[1].ID.Kind)
	return fixes[0]
}

// --- Severity ---

func TestSeverityJSON(t *testing.T) {
	for _, s := range []Severity{SeverityError, SeverityWarning, SeverityInfo, SeverityHint} {
		b, err := json.Marshal(s)
		require.NoError(t, err)
		var got Severity
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, s, got)
	}
	b, err := json.Marshal(severityUnset)
	require.NoError(t, err)
	assert.Equal(t, `"warning"`, string(b))

	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"fatal"`), &s))
	assert.Equal(t, "unknown", Severity(42).String())
}

// --- Diagnostic identity ---

func TestDiagnosticString(t *testing.T) {
	d := &Diagnostic{
		Rule:     "r",
		Severity: SeverityWarning,
		Message:  "msg",
		Range: Range{
			File:  "test.go",
			Start: Position{Offset: 10, Line: 1, Col: 2},
			End:   Position{Offset: 14, Line: 1, Col: 6},
		},
	}
	assert.Equal(t, "1:2-1:6:warning:msg", d.String())
	assert.Equal(t, Key{Rule: "r", File: "test.go", Start: 10, End: 14, Message: "msg"}, d.Key())
	assert.Equal(t, []string{"1:2-1:6:warning:msg"}, Strings([]*Diagnostic{d}))
}

// --- Fix sets ---

func TestFixSets(t *testing.T) {
	f := &Fix{Title: "Do it"}
	assert.Equal(t, "Do it", f.String())

	computed := Fixes{f}
	got, ok := Computed(computed)
	assert.True(t, ok)
	assert.Equal(t, computed, got)

	calls := 0
	lazy := LazyFixes(func() Fixes {
		calls++
		return Fixes{f}
	})
	_, ok = Computed(lazy)
	assert.False(t, ok)
	assert.Equal(t, 0, calls)
	assert.Equal(t, Fixes{f}, Materialize(lazy))
	assert.Equal(t, 1, calls)

	_, ok = Computed(nil)
	assert.False(t, ok)
	assert.Nil(t, Materialize(nil))
	assert.Nil(t, Materialize(LazyFixes(nil)))

	g := &Fix{Title: "Another"}
	assert.Equal(t, Fixes{f, g}, Materialize(extend(computed, g)))
	assert.Equal(t, Fixes{g}, Materialize(extend(nil, g)))
}

// --- RunAt ---

func TestRunAtNilResultIsEmpty(t *testing.T) {
	_, diags := runAt(t, RuleBoolCompare, "package test; var x = 1\n", "x")
	assert.NotNil(t, diags)
	assert.Empty(t, diags)
}

func TestRunAtReturnsRuleError(t *testing.T) {
	boom := errors.New("boom")
	rule := &Rule{Name: "boom", Run: func(*Pass) error { return boom }}
	info := resolveSource(t, "package test\n")
	path, err := info.PathFor(0)
	require.NoError(t, err)
	_, err = RunAt(rule, info, path, 0)
	assert.Same(t, boom, err)
}

// --- errorf ---

func TestErrorf(t *testing.T) {
	src := "package test\n\nimport (\n\t\"errors\"\n\t\"fmt\"\n)\n\nvar err = errors.New(fmt.Sprintf(\"x %d\", 1))\n"
	_, diags := runAt(t, RuleErrorf, src, "(fmt")
	require.Len(t, diags, 1)
	assert.Equal(t, "7:10-7:44:hint:errors.New(fmt.Sprintf(...)) should be replaced by fmt.Errorf(...)", diags[0].String())

	fix := onlyFix(t, diags[0])
	assert.Equal(t, "Rewrite to fmt.Errorf", fix.Title)
	assert.Equal(t, FixID{Rule: "errorf", Kind: "rewrite"}, fix.ID)
	require.Len(t, fix.Edits, 1)
	assert.Equal(t, `fmt.Errorf("x %d", 1)`, fix.Edits[0].NewText)
	assert.Equal(t, `errors.New(fmt.Sprintf("x %d", 1))`, fix.Edits[0].OldText)
}

func TestErrorfNegative(t *testing.T) {
	assert.Empty(t, check(t, "package test\n\nimport \"errors\"\n\nvar err = errors.New(\"x\")\n", RuleErrorf))
	assert.Empty(t, check(t, "package test\n\nimport \"fmt\"\n\nvar err = fmt.Errorf(\"x %d\", 1)\n", RuleErrorf))
	// A local package that happens to be called errors.
	assert.Empty(t, check(t, "package test\n\nimport \"fmt\"\n\ntype e struct{}\n\nfunc (e) New(string) error { return nil }\n\nvar errors e\n\nvar err = errors.New(fmt.Sprintf(\"x\"))\n", RuleErrorf))
}

// --- bool-compare ---

func TestBoolCompare(t *testing.T) {
	src := "package test\n\nfunc f(ok bool) bool {\n\treturn ok == true\n}\n"
	diags := check(t, src, RuleBoolCompare)
	require.Len(t, diags, 1)
	assert.Equal(t, "3:8-3:18:warning:comparison to bool constant ok == true can be simplified", diags[0].String())
}

func TestBoolCompareFixes(t *testing.T) {
	tests := []struct {
		expr  string
		title string
		text  string
	}{
		{"ok == true", "Simplify to ok", "ok"},
		{"ok != false", "Simplify to ok", "ok"},
		{"ok == false", "Simplify to !ok", "!ok"},
		{"ok != true", "Simplify to !ok", "!ok"},
		{"true == ok", "Simplify to ok", "ok"},
		{"(a && b) == false", "Simplify to !(a && b)", "!(a && b)"},
		{"a && b == false", "Simplify to !b", "!b"},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			src := "package test\n\nfunc f(ok, a, b bool) bool { return " + tc.expr + " }\n"
			diags := check(t, src, RuleBoolCompare)
			require.Len(t, diags, 1)
			fix := ruleFix(t, diags[0])
			assert.Equal(t, tc.title, fix.Title)
			assert.Equal(t, tc.text, fix.Edits[0].NewText)
		})
	}
}

func TestBoolCompareNegative(t *testing.T) {
	assert.Empty(t, check(t, "package test\n\nfunc f(a, b bool) bool { return a == b }\n", RuleBoolCompare))
	assert.Empty(t, check(t, "package test\n\nvar x = true == false\n", RuleBoolCompare))
	// A shadowed true is not the constant.
	assert.Empty(t, check(t, "package test\n\nfunc f(ok bool) bool { true := ok; return ok == true }\n", RuleBoolCompare))
}

// --- strings-contains ---

func TestStringsContains(t *testing.T) {
	tests := []struct {
		cmp  string
		text string
	}{
		{"!= -1", `strings.Contains(s, "b")`},
		{">= 0", `strings.Contains(s, "b")`},
		{"> -1", `strings.Contains(s, "b")`},
		{"== -1", `!strings.Contains(s, "b")`},
		{"< 0", `!strings.Contains(s, "b")`},
	}
	for _, tc := range tests {
		t.Run(tc.cmp, func(t *testing.T) {
			src := "package test\n\nimport \"strings\"\n\nfunc f(s string) bool { return strings.Index(s, \"b\") " + tc.cmp + " }\n"
			diags := check(t, src, RuleStringsContains)
			require.Len(t, diags, 1)
			assert.Equal(t, "strings.Index used as a presence test", diags[0].Message)
			fix := ruleFix(t, diags[0])
			assert.Equal(t, "Rewrite to strings.Contains", fix.Title)
			assert.Equal(t, tc.text, fix.Edits[0].NewText)
		})
	}
}

func TestStringsContainsNegative(t *testing.T) {
	src := "package test\n\nimport \"strings\"\n\nfunc f(s string) bool { return strings.Index(s, \"b\") > 2 }\n"
	assert.Empty(t, check(t, src, RuleStringsContains))
}

// --- self-assign ---

func TestSelfAssign(t *testing.T) {
	src := "package test\n\nfunc f() {\n\tx := 1\n\tx = x\n\t_ = x\n}\n"
	diags := check(t, src, RuleSelfAssign)
	require.Len(t, diags, 1)
	assert.Equal(t, "4:1-4:6:warning:self-assignment of x", diags[0].String())
	fix := ruleFix(t, diags[0])
	assert.Equal(t, "Remove self-assignment", fix.Title)
	assert.Equal(t, Edit{File: "test.go", Start: 34, End: 39, NewText: "", OldText: "x = x"}, fix.Edits[0])
}

func TestSelfAssignNegative(t *testing.T) {
	assert.Empty(t, check(t, "package test\n\nfunc f() { x, y := 1, 2; x = y; _ = x }\n", RuleSelfAssign))
	assert.Empty(t, check(t, "package test\n\nfunc f() { x := 1; x += x; _ = x }\n", RuleSelfAssign))
	assert.Empty(t, check(t, "package test\n\nfunc f(m map[int]int) { m[0] = m[0] }\n", RuleSelfAssign))
}

// --- undeclared-name ---

func TestUndeclaredName(t *testing.T) {
	src := "package test\n\nvar a = b\n"
	diags := check(t, src, RuleUndeclaredName)
	require.Len(t, diags, 1)
	assert.Equal(t, "2:8-2:9:error:undeclared name: b", diags[0].String())

	_, diags = runAt(t, RuleUndeclaredName, src, "b\n")
	require.Len(t, diags, 1)
	fixes, ok := Computed(diags[0].Fixes)
	require.True(t, ok)
	require.Len(t, fixes, 2)

	assert.Equal(t, "Declare b here", fixes[0].Title)
	assert.Equal(t, []Edit{{File: "test.go", Start: 23, End: 23, NewText: "\n\nvar b any"}}, fixes[0].Edits)

	assert.Equal(t, "Declare b in declarations.go", fixes[1].Title)
	assert.Equal(t, []Edit{{File: "declarations.go", NewText: "package test\n\nvar b any\n"}}, fixes[1].Edits)
}

func TestUndeclaredNameCall(t *testing.T) {
	_, diags := runAt(t, RuleUndeclaredName, "package test\n\nvar a = b(1)\n", "b(")
	require.Len(t, diags, 1)
	fixes := Materialize(diags[0].Fixes)
	require.NotEmpty(t, fixes)
	assert.Equal(t, "\n\nfunc b(args ...any) any {\n\tpanic(\"unimplemented\")\n}", fixes[0].Edits[0].NewText)
}

func TestUndeclaredNameExistingDeclarations(t *testing.T) {
	decls := "package test\n\nvar c any\n"
	info := resolveSource(t, "package test\n\nvar a = b\n", "declarations.go", decls)
	src := string(info.Src)
	offset := strings.Index(src, "b\n")
	path, err := info.PathFor(offset)
	require.NoError(t, err)
	diags, err := RunAt(RuleUndeclaredName, info, path, offset)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	fixes := Materialize(diags[0].Fixes)
	require.Len(t, fixes, 2)
	assert.Equal(t, []Edit{{File: "declarations.go", Start: len(decls), End: len(decls), NewText: "\nvar b any\n"}}, fixes[1].Edits)
}

func TestUndeclaredNameNegative(t *testing.T) {
	assert.Empty(t, check(t, "package test\n\nvar b = 1\nvar a = b\n", RuleUndeclaredName))
	assert.Empty(t, check(t, "package test\n\ntype T struct{}\n\nfunc (t T) f() { t.A() }\n", RuleUndeclaredName))
}

// --- Engine ---

func TestEngineSortsAndRunsAllRules(t *testing.T) {
	src := "package test\n\nfunc f(ok bool) bool {\n\tx := 1\n\tx = x\n\t_ = x\n\treturn ok == true\n}\n"
	diags := check(t, src, DefaultRules()...)
	require.Len(t, diags, 2)
	assert.Equal(t, "self-assign", diags[0].Rule)
	assert.Equal(t, "bool-compare", diags[1].Rule)
}

func TestEngineDeduplicates(t *testing.T) {
	// Reports the same finding at every node.
	always := &Rule{
		Name: "always",
		Run: func(pass *Pass) error {
			pass.Reportf(pass.Path[len(pass.Path)-1], "file")
			return nil
		},
	}
	diags := check(t, "package test\n\nvar a = 1\n", always)
	assert.Len(t, diags, 1)
}

func TestEngineRuleError(t *testing.T) {
	boom := errors.New("boom")
	rule := &Rule{Name: "boom", Run: func(*Pass) error { return boom }}
	_, err := NewEngine(rule).Check(context.Background(), resolveSource(t, "package test\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rule boom")
}

func TestEngineNolint(t *testing.T) {
	base := "package test\n\nfunc f(ok bool) bool {\n\treturn ok == true%s\n}\n"
	assert.Empty(t, check(t, strings.Replace(base, "%s", " //nolint:bool-compare", 1), RuleBoolCompare))
	assert.Empty(t, check(t, strings.Replace(base, "%s", " //nolint", 1), RuleBoolCompare))
	assert.Empty(t, check(t, strings.Replace(base, "%s", " //nolint:errorf,bool-compare // reason", 1), RuleBoolCompare))
	assert.Len(t, check(t, strings.Replace(base, "%s", " //nolint:errorf", 1), RuleBoolCompare), 1)
}

func TestEngineSuppressFixIsLazy(t *testing.T) {
	src := "package test\n\nfunc f(ok bool) bool {\n\treturn ok == true\n}\n"
	diags := check(t, src, RuleBoolCompare)
	require.Len(t, diags, 1)
	_, ok := Computed(diags[0].Fixes)
	assert.False(t, ok, "engine fix sets are lazy")

	fixes := Materialize(diags[0].Fixes)
	require.Len(t, fixes, 2)
	assert.Equal(t, "Simplify to ok", fixes[0].Title)
	assert.Equal(t, "Suppress with //nolint:bool-compare", fixes[1].Title)
	at := strings.Index(src, "true") + len("true")
	assert.Equal(t, []Edit{{File: "test.go", Start: at, End: at, NewText: " //nolint:bool-compare"}}, fixes[1].Edits)
}

func TestEngineSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()))
	})
	e := NewEngine(RuleBoolCompare)
	e.Tracer = tp.Tracer("test")
	_, err := e.Check(context.Background(), resolveSource(t, "package test\n"))
	require.NoError(t, err)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "hint.Engine.Check", spans[0].Name)
}

// --- nolint ---

func TestParseNolint(t *testing.T) {
	d := parseNolint("//nolint")
	require.NotNil(t, d)
	assert.True(t, d.suppresses("anything"))

	d = parseNolint("//nolint:a,b")
	require.NotNil(t, d)
	assert.True(t, d.suppresses("a"))
	assert.True(t, d.suppresses("b"))
	assert.False(t, d.suppresses("c"))

	d = parseNolint("//nolint:self-assign // reason")
	require.NotNil(t, d)
	assert.True(t, d.suppresses("self-assign"))
	assert.False(t, d.suppresses("reason"))

	assert.Nil(t, parseNolint("//nolintx"))
	assert.Nil(t, parseNolint("// a regular comment"))
	assert.Nil(t, parseNolint("/* nolint */"))
	assert.Nil(t, parseNolint("// nolint is discussed here"))
	assert.Nil(t, parseNolint("// nolint:errorf"))
	assert.Nil(t, parseNolint("//\tnolint"))
}

func TestEngineIgnoresNolintProse(t *testing.T) {
	src := "package test\n\nfunc f(ok bool) bool {\n\treturn ok == true // nolint is discussed here\n}\n"
	assert.Len(t, check(t, src, RuleBoolCompare), 1)
}

// --- Format ---

func TestFormatText(t *testing.T) {
	diags := check(t, "package test\n\nfunc f(ok bool) bool {\n\treturn ok == true\n}\n", RuleBoolCompare)
	diags[0].Notes = []string{"see docs"}
	var buf bytes.Buffer
	FormatText(&buf, diags)
	assert.Equal(t, "test.go:4:9: comparison to bool constant ok == true can be simplified (bool-compare)\n  = note: see docs\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	diags := check(t, "package test\n\nvar a = b\n", RuleUndeclaredName)
	require.NoError(t, FormatJSON(&buf, diags))
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "undeclared-name", out[0]["rule"])
	assert.Equal(t, "error", out[0]["severity"])
}

func TestRuleNamesAndDoc(t *testing.T) {
	assert.Equal(t, []string{"bool-compare", "errorf", "self-assign", "strings-contains", "undeclared-name"}, RuleNames())
	doc := RuleDoc(DefaultRules(), 40)
	assert.Contains(t, doc, "  bool-compare (warning)\n")
	for _, line := range strings.Split(doc, "\n") {
		assert.LessOrEqual(t, len(line), 40, line)
	}
	long := &Rule{Name: "long", Severity: SeverityInfo, Doc: "see " + strings.Repeat("x", 50) + " for details"}
	for _, line := range strings.Split(RuleDoc([]*Rule{long}, 20), "\n") {
		assert.LessOrEqual(t, len(line), 20, line)
	}
	r, ok := Lookup("errorf")
	require.True(t, ok)
	assert.Same(t, RuleErrorf, r)
	_, ok = Lookup("nope")
	assert.False(t, ok)
}
