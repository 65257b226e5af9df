package droid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"jobdroid/utils"
)

// Bounds is a node's on-screen rectangle as uiautomator reports it.
type Bounds struct {
	X1, Y1, X2, Y2 int
}

func (b Bounds) CenterX() int { return (b.X1 + b.X2) / 2 }
func (b Bounds) CenterY() int { return (b.Y1 + b.Y2) / 2 }

func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.X1, b.Y1, b.X2, b.Y2)
}

var boundsPattern = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// ParseBounds parses the "[x1,y1][x2,y2]" bounds attribute.
func ParseBounds(s string) (Bounds, error) {
	m := boundsPattern.FindStringSubmatch(s)
	if m == nil {
		return Bounds{}, fmt.Errorf("invalid bounds attribute: %q", s)
	}
	x1, _ := strconv.Atoi(m[1])
	y1, _ := strconv.Atoi(m[2])
	x2, _ := strconv.Atoi(m[3])
	y2, _ := strconv.Atoi(m[4])
	return Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2}, nil
}

// UINode is one element of a dumped view hierarchy.
type UINode struct {
	Index       int // position in the interactive list, -1 when not indexed
	Class       string
	ResourceID  string
	Text        string
	ContentDesc string
	Clickable   bool
	Scrollable  bool
	Checkable   bool
	Editable    bool
	Bounds      Bounds
}

// Label returns the most human-readable identifier the node carries.
func (n *UINode) Label() string {
	if n.Text != "" {
		return n.Text
	}
	if n.ContentDesc != "" {
		return n.ContentDesc
	}
	if i := strings.LastIndex(n.ResourceID, "/"); i >= 0 {
		return n.ResourceID[i+1:]
	}
	return n.ResourceID
}

// Describe renders the node for an agent observation, e.g.
// [3] Button "Easy Apply" (id=com.linkedin.android:id/apply, clickable, bounds=[28,1820][1052,1964]).
func (n *UINode) Describe() string {
	var traits []string
	if n.ResourceID != "" {
		traits = append(traits, "id="+n.ResourceID)
	}
	if n.ContentDesc != "" && n.ContentDesc != n.Text {
		traits = append(traits, "desc="+strconv.Quote(utils.Truncate(n.ContentDesc, 80)))
	}
	if n.Editable {
		traits = append(traits, "editable")
	}
	if n.Clickable {
		traits = append(traits, "clickable")
	}
	if n.Scrollable {
		traits = append(traits, "scrollable")
	}
	if n.Checkable {
		traits = append(traits, "checkable")
	}
	traits = append(traits, "bounds="+n.Bounds.String())
	return fmt.Sprintf("[%d] %s %q (%s)", n.Index, shortClass(n.Class), utils.Truncate(n.Text, 80), strings.Join(traits, ", "))
}

func shortClass(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}

// UITree wraps one uiautomator XML dump and indexes its actionable
// elements for the agent.
type UITree struct {
	doc         *xmlquery.Node
	interactive []*UINode
}

// ParseUITree parses a uiautomator dump. The dump command prefixes the
// XML with a status line, so anything before the first '<' is dropped.
func ParseUITree(dump string) (*UITree, error) {
	start := strings.Index(dump, "<")
	if start < 0 {
		return nil, fmt.Errorf("no XML in UI dump")
	}
	doc, err := xmlquery.Parse(strings.NewReader(dump[start:]))
	if err != nil {
		return nil, fmt.Errorf("parse UI dump: %w", err)
	}
	t := &UITree{doc: doc}
	t.collectInteractive()
	return t, nil
}

func (t *UITree) collectInteractive() {
	nodes, err := xmlquery.QueryAll(t.doc, "//node")
	if err != nil {
		return
	}
	for _, raw := range nodes {
		n := nodeFromElement(raw)
		if !n.Clickable && !n.Scrollable && !n.Editable && !n.Checkable {
			continue
		}
		n.Index = len(t.interactive)
		t.interactive = append(t.interactive, n)
	}
}

func nodeFromElement(raw *xmlquery.Node) *UINode {
	n := &UINode{
		Index:       -1,
		Class:       raw.SelectAttr("class"),
		ResourceID:  raw.SelectAttr("resource-id"),
		Text:        raw.SelectAttr("text"),
		ContentDesc: raw.SelectAttr("content-desc"),
		Clickable:   raw.SelectAttr("clickable") == "true",
		Scrollable:  raw.SelectAttr("scrollable") == "true",
		Checkable:   raw.SelectAttr("checkable") == "true",
	}
	n.Editable = strings.Contains(n.Class, "EditText")
	if b, err := ParseBounds(raw.SelectAttr("bounds")); err == nil {
		n.Bounds = b
	}
	return n
}

// Interactive returns the indexed actionable elements.
func (t *UITree) Interactive() []*UINode {
	return t.interactive
}

// Node returns the interactive element with the given index.
func (t *UITree) Node(index int) (*UINode, bool) {
	if index < 0 || index >= len(t.interactive) {
		return nil, false
	}
	return t.interactive[index], true
}

// Query returns all nodes matching an XPath expression.
func (t *UITree) Query(xpath string) ([]*UINode, error) {
	raws, err := xmlquery.QueryAll(t.doc, xpath)
	if err != nil {
		return nil, fmt.Errorf("xpath %s: %w", xpath, err)
	}
	nodes := make([]*UINode, 0, len(raws))
	for _, raw := range raws {
		nodes = append(nodes, nodeFromElement(raw))
	}
	return nodes, nil
}

// First returns the first node matching an XPath expression, or nil.
func (t *UITree) First(xpath string) (*UINode, error) {
	raw, err := xmlquery.Query(t.doc, xpath)
	if err != nil {
		return nil, fmt.Errorf("xpath %s: %w", xpath, err)
	}
	if raw == nil {
		return nil, nil
	}
	return nodeFromElement(raw), nil
}

// FindByResourceID returns the first node with the exact resource-id.
func (t *UITree) FindByResourceID(id string) (*UINode, error) {
	return t.First(fmt.Sprintf("//node[@resource-id=%s]", xpathString(id)))
}

// FindByText returns the first node whose text contains the fragment.
func (t *UITree) FindByText(fragment string) (*UINode, error) {
	return t.First(fmt.Sprintf("//node[contains(@text, %s)]", xpathString(fragment)))
}

// xpathString quotes a literal for use inside an XPath expression.
func xpathString(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	// Mixed quotes need concat().
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// Summary renders the numbered interactive elements for the agent's
// observation prompt.
func (t *UITree) Summary() string {
	if len(t.interactive) == 0 {
		return "(no interactive elements on screen)"
	}
	var sb strings.Builder
	for _, n := range t.interactive {
		sb.WriteString(n.Describe())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// TextContent collects every visible text and content description on
// screen, top to bottom, for extraction prompts.
func (t *UITree) TextContent() string {
	nodes, err := xmlquery.QueryAll(t.doc, "//node")
	if err != nil {
		return ""
	}
	var lines []string
	for _, raw := range nodes {
		if text := strings.TrimSpace(raw.SelectAttr("text")); text != "" {
			lines = append(lines, text)
		} else if desc := strings.TrimSpace(raw.SelectAttr("content-desc")); desc != "" {
			lines = append(lines, desc)
		}
	}
	return strings.Join(lines, "\n")
}
