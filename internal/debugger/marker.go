package debugger

// MarkerTag is the tag used when highlighting the current line.
const MarkerTag = "debug-line"

// Editor is the source view the marker is reflected into.
type Editor interface {
	MarkLine(line int, tag string)
	UnmarkLine(line int, tag string)
}

// Marker tracks the single highlighted line of the source view.
type Marker struct {
	editor Editor
	line   int
	set    bool
}

// NewMarker creates a marker that reflects into editor. A nil editor is
// allowed.
func NewMarker(editor Editor) *Marker {
	return &Marker{editor: editor}
}

// Set moves the marker to line. The previous mark is always removed first.
// A negative line clears the marker.
func (m *Marker) Set(line int) {
	if m.set && m.editor != nil {
		m.editor.UnmarkLine(m.line, MarkerTag)
	}
	if line < 0 {
		m.set = false
		return
	}
	m.line, m.set = line, true
	if m.editor != nil {
		m.editor.MarkLine(line, MarkerTag)
	}
}

// Clear removes the mark, if any.
func (m *Marker) Clear() {
	m.Set(-1)
}

// Current returns the marked line.
func (m *Marker) Current() (int, bool) {
	return m.line, m.set
}
