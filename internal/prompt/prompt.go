// Package prompt builds the platform-neutral messages, forms and menus of the
// whitelist workflow. Builders are pure; texts come from an i18n catalog.
package prompt

// ButtonStyle is the visual weight of a button.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Embed colors.
const (
	ColorBlue  = 0x3498DB
	ColorGreen = 0x57F287
	ColorRed   = 0xED4245
)

type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
}

type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

type Select struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

type TextField struct {
	CustomID    string
	Label       string
	Placeholder string
	Required    bool
}

type Modal struct {
	CustomID string
	Title    string
	Fields   []TextField
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

// Row is one line of interactive components: either buttons or a single select.
type Row struct {
	Buttons []Button
	Select  *Select
}

// Message is a postable or reply message.
type Message struct {
	Content   string
	Embeds    []Embed
	Rows      []Row
	Ephemeral bool
}

// CustomIDs lists every action identifier carried by the message.
func (m Message) CustomIDs() []string {
	var ids []string
	for _, row := range m.Rows {
		for _, b := range row.Buttons {
			ids = append(ids, b.CustomID)
		}
		if row.Select != nil {
			ids = append(ids, row.Select.CustomID)
		}
	}
	return ids
}
