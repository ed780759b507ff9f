// Package render turns personal data and CV content into HTML and PDF.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/model"

	"golang.org/x/net/publicsuffix"
)

//go:embed templates/cv.html templates/style.css
var templateFS embed.FS

// PDFConverter prints an HTML document to PDF bytes.
type PDFConverter interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

type Renderer struct {
	tpl *template.Template
	css template.CSS
	pdf PDFConverter
	now func() time.Time
}

func New(pdf PDFConverter) (*Renderer, error) {
	tpl, err := template.New("cv.html").Funcs(template.FuncMap{
		"join":   strings.Join,
		"period": period,
	}).ParseFS(templateFS, "templates/cv.html")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	css, err := templateFS.ReadFile("templates/style.css")
	if err != nil {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}
	return &Renderer{tpl: tpl, css: template.CSS(css), pdf: pdf, now: time.Now}, nil
}

type link struct {
	URL   string
	Label string
}

type header struct {
	Name    string
	Title   string
	Contact []string
	Links   []link
}

type section struct {
	Key   string
	Title string
}

type view struct {
	CSS         template.CSS
	Header      header
	Content     *model.CVContent
	Sections    []section
	GeneratedAt string
}

// Preview renders the CV as a standalone HTML page.
func (r *Renderer) Preview(pd model.PersonalData, c *model.CVContent) (string, error) {
	if c == nil {
		c = &model.CVContent{}
	}
	v := view{
		CSS:         r.css,
		Header:      buildHeader(pd),
		Content:     c,
		Sections:    sectionsFor(c),
		GeneratedAt: r.now().UTC().Format("2006-01-02 15:04 MST"),
	}
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("%w: execute template: %v", domain.ErrRender, err)
	}
	return buf.String(), nil
}

// PreviewMap decodes loosely typed content before rendering it.
func (r *Renderer) PreviewMap(pd model.PersonalData, content map[string]any) (string, error) {
	c, err := model.Decode(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	return r.Preview(pd, c)
}

// Render produces the PDF version of Preview.
func (r *Renderer) Render(ctx context.Context, pd model.PersonalData, c *model.CVContent) ([]byte, error) {
	if r.pdf == nil {
		return nil, fmt.Errorf("%w: no pdf converter configured", domain.ErrRender)
	}
	html, err := r.Preview(pd, c)
	if err != nil {
		return nil, err
	}
	pdf, err := r.pdf.RenderHTMLToPDF(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return nil, fmt.Errorf("%w: invalid PDF output (len=%d)", domain.ErrRender, len(pdf))
	}
	return pdf, nil
}

func buildHeader(pd model.PersonalData) header {
	h := header{Name: strings.TrimSpace(pd.FullName), Title: strings.TrimSpace(pd.JobTitle)}
	for _, v := range []string{pd.Email, pd.Phone, pd.Location, pd.Nationality} {
		if v = strings.TrimSpace(v); v != "" {
			h.Contact = append(h.Contact, v)
		}
	}
	for _, raw := range []string{pd.Website, pd.LinkedIn, pd.GitHub} {
		if l, ok := makeLink(raw); ok {
			h.Links = append(h.Links, l)
		}
	}
	return h
}

// makeLink normalizes a user supplied URL and labels it with its registrable
// domain plus path, e.g. "linkedin.com/in/ada".
func makeLink(raw string) (link, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return link{}, false
	}
	candidate := raw
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" {
		return link{URL: candidate, Label: raw}, true
	}

	label := strings.TrimPrefix(u.Hostname(), "www.")
	if etld, err := publicsuffix.EffectiveTLDPlusOne(label); err == nil {
		label = etld
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		label += "/" + p
	}
	return link{URL: u.String(), Label: label}, true
}

func period(start, end model.Text) string {
	s, e := strings.TrimSpace(string(start)), strings.TrimSpace(string(end))
	switch {
	case s != "" && e != "":
		return s + " - " + e
	case s != "":
		return s + " - Present"
	default:
		return e
	}
}

func sectionsFor(c *model.CVContent) []section {
	var out []section
	add := func(ok bool, key, title string) {
		if ok {
			out = append(out, section{Key: key, Title: title})
		}
	}
	add(strings.TrimSpace(c.ProfessionalSummary) != "", "summary", "Professional Summary")
	add(len(c.CoreCompetencies.TechnicalSkills) > 0, "competencies", "Core Competencies")
	add(len(c.ProfessionalExperience) > 0, "experience", "Professional Experience")
	add(len(c.Education) > 0, "education", "Education")
	add(len(c.Courses) > 0, "courses", "Courses")
	add(len(c.KeyProjects) > 0, "projects", "Key Projects")
	add(len(c.Languages) > 0, "languages", "Languages")
	return out
}
