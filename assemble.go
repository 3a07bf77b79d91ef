package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Marker lines of the prompt text. Every open marker has a matching close.
const (
	overviewOpen       = "=== PROJECT OVERVIEW ==="
	overviewClose      = "=== END PROJECT OVERVIEW ==="
	treeSectionName    = "FILE_TREE"
	sectionOpenFmt     = "=== SECTION START: %s ==="
	sectionCloseFmt    = "=== SECTION END: %s ==="
	sectionClosePrefix = "=== SECTION END: "
	fileOpenPrefix     = "--- FILE START: "
	fileClosePrefix    = "--- FILE END: "
	fileMarkerEnd      = " ---"

	nothingSelected = "No files selected."
)

var ErrInvalidSortOrder = errors.New("invalid sort order")

// SortKey names the field the selection is ordered by.
type SortKey string

const (
	SortByName   SortKey = "name"
	SortByTokens SortKey = "tokens"
	SortBySize   SortKey = "size"
	SortByPath   SortKey = "path"
)

// SortOrder is a key plus direction, written "<key>-<asc|desc>".
type SortOrder struct {
	Key  SortKey
	Desc bool
}

func (s SortOrder) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return string(s.Key) + "-" + dir
}

// ParseSortOrder parses strings like "path-asc" or "tokens-desc".
func ParseSortOrder(s string) (SortOrder, error) {
	key, dir, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "-")
	if !ok {
		return SortOrder{}, fmt.Errorf("%w: %q", ErrInvalidSortOrder, s)
	}
	var order SortOrder
	switch SortKey(key) {
	case SortByName, SortBySize, SortByPath:
		order.Key = SortKey(key)
	case SortByTokens, "tokencount":
		order.Key = SortByTokens
	default:
		return SortOrder{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSortOrder, key)
	}
	switch dir {
	case "asc":
	case "desc":
		order.Desc = true
	default:
		return SortOrder{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidSortOrder, dir)
	}
	return order, nil
}

// RenderOptions controls prompt assembly.
type RenderOptions struct {
	Root            string          // scan root; file markers use paths relative to it
	Selected        map[string]bool // absolute slash paths
	Sort            SortOrder
	IncludeTree     bool
	IncludeOverview bool
	Sections        []Section
}

// PlannedFile is a selected file with its path relative to the root.
type PlannedFile struct {
	Rel    string
	Record FileRecord
}

// SectionGroup is one non-empty section of the prompt.
type SectionGroup struct {
	Section Section
	Files   []PlannedFile
}

// PromptPlan is the ordered content of a prompt, shared by the text and
// PDF renderers.
type PromptPlan struct {
	Overview *FileRecord
	Tree     string
	Groups   []SectionGroup
	Files    []PlannedFile // the sorted selection
}

// Empty reports whether the plan has nothing to emit.
func (p PromptPlan) Empty() bool {
	return p.Overview == nil && p.Tree == "" && len(p.Files) == 0
}

// Tokens sums token counts of everything in the plan.
func (p PromptPlan) Tokens() int {
	n := 0
	if p.Overview != nil {
		n += p.Overview.TokenCount
	}
	for _, f := range p.Files {
		n += f.Record.TokenCount
	}
	return n
}

// PlanPrompt selects, sorts and groups records for rendering.
func PlanPrompt(records []FileRecord, opts RenderOptions) PromptPlan {
	sections := opts.Sections
	if len(sections) == 0 {
		sections = defaultSections
	}

	var plan PromptPlan
	for _, r := range records {
		if r.IsBinary || r.IsSkipped {
			continue
		}
		if r.FileKind == KindOverview {
			if opts.IncludeOverview && plan.Overview == nil && r.Content != "" {
				overview := r
				plan.Overview = &overview
			}
			continue
		}
		if !opts.Selected[r.Path] {
			continue
		}
		plan.Files = append(plan.Files, PlannedFile{Rel: relOrPath(opts.Root, r.Path), Record: r})
	}
	sortPlannedFiles(plan.Files, opts.Sort)

	if opts.IncludeTree {
		selected := make([]FileRecord, len(plan.Files))
		for i, f := range plan.Files {
			selected[i] = f.Record
		}
		plan.Tree = RenderTree(BuildTree(selected, opts.Root))
	}

	fallback := defaultSectionID(sections)
	for _, s := range sections {
		var group SectionGroup
		for _, f := range plan.Files {
			id := f.Record.SectionID
			if _, ok := sectionByID(sections, id); !ok {
				id = fallback
			}
			if id == s.ID {
				group.Files = append(group.Files, f)
			}
		}
		if len(group.Files) > 0 {
			group.Section = s
			plan.Groups = append(plan.Groups, group)
		}
	}
	return plan
}

// Render assembles the prompt text for the selected records.
func Render(records []FileRecord, opts RenderOptions) string {
	return RenderPlan(PlanPrompt(records, opts))
}

// RenderPlan writes a plan as prompt text.
func RenderPlan(plan PromptPlan) string {
	if plan.Empty() {
		return nothingSelected
	}

	var b strings.Builder
	if plan.Overview != nil {
		b.WriteString(overviewOpen + "\n")
		writeContent(&b, plan.Overview.Content)
		b.WriteString(overviewClose + "\n\n")
	}
	if plan.Tree != "" {
		fmt.Fprintf(&b, sectionOpenFmt+"\n", treeSectionName)
		b.WriteString(plan.Tree)
		fmt.Fprintf(&b, sectionCloseFmt+"\n\n", treeSectionName)
	}
	for _, g := range plan.Groups {
		fmt.Fprintf(&b, sectionOpenFmt+"\n", g.Section.Name)
		for _, f := range g.Files {
			b.WriteString(fileOpenPrefix + f.Rel + fileMarkerEnd + "\n")
			writeContent(&b, f.Record.Content)
			b.WriteString(fileClosePrefix + f.Rel + fileMarkerEnd + "\n")
		}
		fmt.Fprintf(&b, sectionCloseFmt+"\n\n", g.Section.Name)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// writeContent writes content so that it ends with a newline.
func writeContent(b *strings.Builder, content string) {
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
}

// ParsePrompt recovers the relative path to content mapping from prompt
// text produced by Render. A close marker only ends a file when the next
// line is another file's open marker, a section close or the end of the
// text, so content may contain its own close marker on a line. Content
// holding that marker directly followed by such a structural line is
// still cut there.
func ParsePrompt(text string) map[string]string {
	files := make(map[string]string)
	var (
		current string
		open    bool
		buf     strings.Builder
	)
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		bare := strings.TrimSuffix(line, "\n")
		if !open {
			if isFileOpen(bare) {
				current = strings.TrimSuffix(strings.TrimPrefix(bare, fileOpenPrefix), fileMarkerEnd)
				open = true
				buf.Reset()
			}
			continue
		}
		if bare == fileClosePrefix+current+fileMarkerEnd && endsFile(lines[i+1:]) {
			files[current] = buf.String()
			open = false
			continue
		}
		buf.WriteString(line)
	}
	return files
}

func isFileOpen(line string) bool {
	return strings.HasPrefix(line, fileOpenPrefix) && strings.HasSuffix(line, fileMarkerEnd)
}

// endsFile reports whether the lines after a close marker are where Render
// could have placed it.
func endsFile(rest []string) bool {
	if len(rest) == 0 || (len(rest) == 1 && rest[0] == "") {
		return true
	}
	next := strings.TrimSuffix(rest[0], "\n")
	return isFileOpen(next) || strings.HasPrefix(next, sectionClosePrefix)
}

func sortPlannedFiles(files []PlannedFile, order SortOrder) {
	less := func(a, b PlannedFile) bool {
		switch order.Key {
		case SortByName:
			if a.Record.Name != b.Record.Name {
				return a.Record.Name < b.Record.Name
			}
		case SortByTokens:
			if a.Record.TokenCount != b.Record.TokenCount {
				return a.Record.TokenCount < b.Record.TokenCount
			}
		case SortBySize:
			if a.Record.Size != b.Record.Size {
				return a.Record.Size < b.Record.Size
			}
		default:
			return structuralLess(a.Rel, b.Rel)
		}
		return structuralLess(a.Rel, b.Rel)
	}
	sort.SliceStable(files, func(i, j int) bool {
		if order.Desc {
			return less(files[j], files[i])
		}
		return less(files[i], files[j])
	})
}

// structuralLess orders paths like a file tree: at each level directories
// come before files, then names compare lexicographically.
func structuralLess(a, b string) bool {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		aDir, bDir := i < len(as)-1, i < len(bs)-1
		if aDir != bDir {
			return aDir
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}

func relOrPath(root, p string) string {
	if rel, ok := relativeTo(root, p); ok {
		return rel
	}
	return p
}
