package main

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

const testRoot = "/work/proj"

func rec(rel, content string, sectionID string) FileRecord {
	name := rel[strings.LastIndex(rel, "/")+1:]
	return FileRecord{
		Name:       name,
		Path:       testRoot + "/" + rel,
		Content:    content,
		TokenCount: estimateTokens(content),
		Size:       int64(len(content)),
		FileKind:   KindRegular,
		SectionID:  sectionID,
	}
}

func selectAll(records []FileRecord) map[string]bool {
	sel := make(map[string]bool)
	for _, r := range records {
		sel[r.Path] = true
	}
	return sel
}

func plannedRels(plan PromptPlan) []string {
	out := make([]string, len(plan.Files))
	for i, f := range plan.Files {
		out[i] = f.Rel
	}
	return out
}

func TestPlanPrompt_StructuralSort(t *testing.T) {
	records := []FileRecord{
		rec("b/x.txt", "x", "code"),
		rec("a.txt", "a", "code"),
		rec("a/z.txt", "z", "code"),
	}
	opts := RenderOptions{Root: testRoot, Selected: selectAll(records), Sort: SortOrder{Key: SortByPath}}

	if got := plannedRels(PlanPrompt(records, opts)); !slices.Equal(got, []string{"a/z.txt", "b/x.txt", "a.txt"}) {
		t.Fatalf("path-asc = %v", got)
	}
	opts.Sort.Desc = true
	if got := plannedRels(PlanPrompt(records, opts)); !slices.Equal(got, []string{"a.txt", "b/x.txt", "a/z.txt"}) {
		t.Fatalf("path-desc = %v", got)
	}
}

func TestPlanPrompt_SortKeys(t *testing.T) {
	records := []FileRecord{
		rec("m.txt", strings.Repeat("m", 40), "code"),
		rec("b.txt", strings.Repeat("b", 4), "code"),
		rec("z.txt", strings.Repeat("z", 20), "code"),
	}
	cases := map[string][]string{
		"name-asc":    {"b.txt", "m.txt", "z.txt"},
		"name-desc":   {"z.txt", "m.txt", "b.txt"},
		"tokens-asc":  {"b.txt", "z.txt", "m.txt"},
		"tokens-desc": {"m.txt", "z.txt", "b.txt"},
		"size-desc":   {"m.txt", "z.txt", "b.txt"},
	}
	for s, want := range cases {
		t.Run(s, func(t *testing.T) {
			order, err := ParseSortOrder(s)
			if err != nil {
				t.Fatalf("ParseSortOrder: %v", err)
			}
			plan := PlanPrompt(records, RenderOptions{Root: testRoot, Selected: selectAll(records), Sort: order})
			if got := plannedRels(plan); !slices.Equal(got, want) {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	got, err := ParseSortOrder("tokenCount-desc")
	if err != nil || got != (SortOrder{Key: SortByTokens, Desc: true}) {
		t.Fatalf("got %+v, %v", got, err)
	}
	if got.String() != "tokens-desc" {
		t.Fatalf("String() = %q", got.String())
	}
	for _, bad := range []string{"", "path", "color-asc", "path-up"} {
		if _, err := ParseSortOrder(bad); !errors.Is(err, ErrInvalidSortOrder) {
			t.Fatalf("ParseSortOrder(%q) err = %v", bad, err)
		}
	}
}

func TestPlanPrompt_Filtering(t *testing.T) {
	bin := rec("logo.png", "", "code")
	bin.IsBinary = true
	skipped := rec("huge.txt", "", "code")
	skipped.IsSkipped = true
	overview := rec(".lens/overview.md", "# Hi\n", "code")
	overview.FileKind = KindOverview
	unselected := rec("other.go", "package other\n", "code")
	kept := rec("main.go", "package main\n", "code")

	records := []FileRecord{bin, skipped, overview, unselected, kept}
	sel := selectAll(records)
	delete(sel, unselected.Path)

	plan := PlanPrompt(records, RenderOptions{Root: testRoot, Selected: sel, Sort: SortOrder{Key: SortByPath}})
	if got := plannedRels(plan); !slices.Equal(got, []string{"main.go"}) {
		t.Fatalf("selection = %v, want [main.go]", got)
	}
	if plan.Overview != nil {
		t.Fatal("overview must only be included on request")
	}
}

func TestRender_Layout(t *testing.T) {
	sections := []Section{
		{ID: "docs", Name: "DOCS", Directory: "docs"},
		{ID: "tests", Name: "TESTS", Directory: "tests"},
		{ID: "code", Name: "CODE"},
	}
	overview := rec(".lens/overview.md", "Project summary", "code")
	overview.FileKind = KindOverview
	records := []FileRecord{
		overview,
		rec("src/main.go", "package main\n", "code"),
		rec("docs/guide.md", "# Guide", "docs"),
	}

	got := Render(records, RenderOptions{
		Root:            testRoot,
		Selected:        selectAll(records),
		Sort:            SortOrder{Key: SortByPath},
		IncludeTree:     true,
		IncludeOverview: true,
		Sections:        sections,
	})

	want := "=== PROJECT OVERVIEW ===\n" +
		"Project summary\n" +
		"=== END PROJECT OVERVIEW ===\n" +
		"\n" +
		"=== SECTION START: FILE_TREE ===\n" +
		"proj/\n" +
		"├── docs/\n" +
		"│   └── guide.md\n" +
		"└── src/\n" +
		"    └── main.go\n" +
		"=== SECTION END: FILE_TREE ===\n" +
		"\n" +
		"=== SECTION START: DOCS ===\n" +
		"--- FILE START: docs/guide.md ---\n" +
		"# Guide\n" +
		"--- FILE END: docs/guide.md ---\n" +
		"=== SECTION END: DOCS ===\n" +
		"\n" +
		"=== SECTION START: CODE ===\n" +
		"--- FILE START: src/main.go ---\n" +
		"package main\n" +
		"--- FILE END: src/main.go ---\n" +
		"=== SECTION END: CODE ===\n"
	if got != want {
		t.Fatalf("Render:\n%s\nwant:\n%s", got, want)
	}
}

func TestRender_NothingSelected(t *testing.T) {
	records := []FileRecord{rec("a.go", "package a\n", "code")}
	got := Render(records, RenderOptions{Root: testRoot, Selected: map[string]bool{}})
	if got != nothingSelected {
		t.Fatalf("got %q, want %q", got, nothingSelected)
	}
	withTree := Render(records, RenderOptions{Root: testRoot, Selected: map[string]bool{}, IncludeTree: true})
	if withTree == nothingSelected || !strings.Contains(withTree, "FILE_TREE") {
		t.Fatalf("a requested tree should still render, got %q", withTree)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	records := []FileRecord{
		rec("a.txt", "no trailing newline", "code"),
		rec("docs/b.md", "line one\nline two\n", "docs"),
		rec("tests/c_test.go", "package c\n\n\nfunc TestC() {}\n", "tests"),
		rec("empty.txt", "", "code"),
		rec("crlf.txt", "windows\r\nline\r\n", "code"),
		rec("markers.txt", "=== SECTION END: CODE ===\n--- FILE START: fake ---\n", "code"),
	}
	out := Render(records, RenderOptions{
		Root:        testRoot,
		Selected:    selectAll(records),
		Sort:        SortOrder{Key: SortByName, Desc: true},
		IncludeTree: true,
	})

	parsed := ParsePrompt(out)
	if len(parsed) != len(records) {
		t.Fatalf("parsed %d files, want %d: %v", len(parsed), len(records), parsed)
	}
	for _, r := range records {
		rel, _ := relativeTo(testRoot, r.Path)
		got, ok := parsed[rel]
		if !ok {
			t.Fatalf("missing %s in parsed output", rel)
		}
		if strings.TrimSuffix(got, "\n") != strings.TrimSuffix(r.Content, "\n") {
			t.Fatalf("%s: got %q, want %q", rel, got, r.Content)
		}
	}
}

func TestPlanPrompt_UnknownSectionFallsBack(t *testing.T) {
	records := []FileRecord{rec("a.go", "package a\n", "gone")}
	plan := PlanPrompt(records, RenderOptions{Root: testRoot, Selected: selectAll(records), Sections: defaultSections})
	if len(plan.Groups) != 1 || plan.Groups[0].Section.ID != "code" {
		t.Fatalf("groups = %+v", plan.Groups)
	}
	if plan.Tokens() != records[0].TokenCount {
		t.Fatalf("Tokens() = %d", plan.Tokens())
	}
}

func TestParsePrompt_ContentWithOwnCloseMarker(t *testing.T) {
	records := []FileRecord{
		rec("a.txt", "before\n--- FILE END: a.txt ---\nafter\n", "code"),
		rec("b.txt", "b\n", "code"),
	}
	parsed := ParsePrompt(Render(records, RenderOptions{Root: testRoot, Selected: selectAll(records), Sort: SortOrder{Key: SortByPath}}))
	if got := parsed["a.txt"]; got != records[0].Content {
		t.Fatalf("a.txt = %q, want %q", got, records[0].Content)
	}
	if got := parsed["b.txt"]; got != "b\n" {
		t.Fatalf("b.txt = %q", got)
	}
}
