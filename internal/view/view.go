// Package view draws a session as the single CleverQ page.
// Build is pure: it turns a session.State into a Page. Render executes the
// embedded template against that Page.
package view

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/matiasleandrokruk/cleverq/internal/domain/chat"
	"github.com/matiasleandrokruk/cleverq/internal/domain/session"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var (
	pageTmpl = template.Must(template.ParseFS(templateFS, "templates/page.html.tmpl"))
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// Fixed page copy.
const (
	Title       = "CleverQ"
	Header      = "Start Chat..."
	Placeholder = "Type your question here..."
)

// Page is everything the template needs; it carries no session internals.
type Page struct {
	Title         string
	Header        string
	Placeholder   string
	Tabs          []TabOption
	CurrentTab    string
	Exchanges     []ExchangeView // newest first
	PendingInput  string
	MaxInputChars int
	Notice        string
}

// TabOption is one entry of the tab selector.
type TabOption struct {
	Name     string
	Selected bool
}

// ExchangeView is one history entry. Question is escaped by the template;
// Response is already sanitized HTML.
type ExchangeView struct {
	Question string
	Response template.HTML
}

// HasHistory reports whether the "Question History" section is shown.
func (p Page) HasHistory() bool {
	return len(p.Exchanges) > 0
}

// Build turns the session's current tab into a Page. notice is an error line
// shown above the input, empty when there is nothing to report.
func Build(st *session.State, notice string) Page {
	p := Page{
		Title:         Title,
		Header:        Header,
		Placeholder:   Placeholder,
		CurrentTab:    st.CurrentTab(),
		PendingInput:  st.PendingInput(),
		MaxInputChars: chat.MaxInputChars,
		Notice:        notice,
	}
	for _, name := range st.TabNames() {
		p.Tabs = append(p.Tabs, TabOption{Name: name, Selected: name == p.CurrentTab})
	}
	for _, ex := range st.Current().Exchanges() {
		p.Exchanges = append(p.Exchanges, ExchangeView{Question: ex.Question, Response: RenderMarkdown(ex.Response)})
	}
	return p
}

// Render writes the HTML page.
func Render(w io.Writer, p Page) error {
	return pageTmpl.Execute(w, p)
}

// RenderMarkdown converts model output to HTML and strips anything outside
// the user-generated-content policy. Conversion failures fall back to
// escaped plain text.
func RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>") //nolint:gosec // escaped above
	}
	return template.HTML(strings.TrimSpace(string(policy.SanitizeBytes(buf.Bytes())))) //nolint:gosec // sanitized by bluemonday
}
