package render

import (
	"embed"
	"html/template"
	"io"

	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/markup"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageData carries the page-level values the widget template needs besides the view.
type PageData struct {
	Title          string
	SendPath       string
	RefreshSeconds int
	View           View
}

// HTMLRenderer renders the web widget. With pretty enabled, bot text goes
// through the inline markup transform and then an allow-list that only lets
// <strong> and <br> through.
type HTMLRenderer struct {
	tmpl   *template.Template
	pretty bool
	policy *bluemonday.Policy
}

func NewHTMLRenderer(pretty bool) (*HTMLRenderer, error) {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("strong", "br")

	r := &HTMLRenderer{pretty: pretty, policy: policy}
	tmpl, err := template.New("widget").
		Funcs(template.FuncMap{
			"messageHTML": r.messageHTML,
			"isUser":      func(s chat.Sender) bool { return s == chat.SenderUser },
		}).
		ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse widget templates")
	}
	r.tmpl = tmpl
	return r, nil
}

func (r *HTMLRenderer) messageHTML(b Block) template.HTML {
	if r.pretty && b.Sender == chat.SenderBot {
		return template.HTML(r.policy.Sanitize(markup.HTML(b.Text)))
	}
	return template.HTML(template.HTMLEscapeString(b.Text))
}

// Page renders the full widget document.
func (r *HTMLRenderer) Page(w io.Writer, data PageData) error {
	return errors.Wrap(r.tmpl.ExecuteTemplate(w, "page.html", data), "render widget page")
}

// Thread renders only the thread markup, for partial refreshes.
func (r *HTMLRenderer) Thread(w io.Writer, v View) error {
	return errors.Wrap(r.tmpl.ExecuteTemplate(w, "thread.html", v), "render thread")
}
