package editor

// Shortcut is one row of the editor's markdown help panel.
type Shortcut struct {
	Syntax      string
	Description string
}

var markdownShortcuts = []Shortcut{
	{"#", "Heading"},
	{"##", "Subheading"},
	{"###", "Section heading"},
	{"**text**", "Bold"},
	{"*text*", "Italic"},
	{"- item", "Bulleted list"},
	{"1. item", "Numbered list"},
	{"[text](URL)", "Link"},
	{"```", "Code block"},
	{"> text", "Quote"},
	{"---", "Horizontal rule"},
	{"| Header 1 | Header 2 |", "Table"},
}
