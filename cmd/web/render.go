package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/logo-web/internal/format"
	handlersPkg "finitefield.org/logo-web/internal/handlers"
	"finitefield.org/logo-web/internal/i18n"
	"finitefield.org/logo-web/internal/observability"
)

// templateSet holds the shared layout and partials plus one clone per page.
// Pages live in pages/, each defining "content"; everything else is shared.
type templateSet struct {
	dir   string
	dev   bool
	funcs template.FuncMap

	base  *template.Template
	pages map[string]*template.Template
}

func newTemplateSet(dir string, dev bool, bundle *i18n.Bundle) (*templateSet, error) {
	s := &templateSet{
		dir: dir,
		dev: dev,
		funcs: template.FuncMap{
			"t":    bundle.T,
			"tf":   bundle.Tf,
			"now":  time.Now,
			"date": format.Date,
			"swatches": func(lang string, sw []handlersPkg.Swatch, errMsg string) handlersPkg.SwatchesView {
				return handlersPkg.SwatchesView{Lang: lang, Swatches: sw, Error: errMsg}
			},
		},
	}
	base, pages, err := s.parse()
	if err != nil {
		return nil, err
	}
	s.base, s.pages = base, pages
	return s, nil
}

func (s *templateSet) parse() (*template.Template, map[string]*template.Template, error) {
	var shared, pageFiles []string
	pagesDir := filepath.Join(s.dir, "pages")
	// ParseGlob doesn't support **, so walk.
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Dir(path) == pagesDir {
			pageFiles = append(pageFiles, path)
		} else {
			shared = append(shared, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(shared) == 0 {
		return nil, nil, fmt.Errorf("no templates found under %s", s.dir)
	}
	base, err := template.New("_root").Funcs(s.funcs).ParseFiles(shared...)
	if err != nil {
		return nil, nil, err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, nil, err
		}
		if _, err := clone.ParseFiles(file); err != nil {
			return nil, nil, err
		}
		pages[strings.TrimSuffix(filepath.Base(file), ".tmpl")] = clone
	}
	return base, pages, nil
}

// current returns the parsed set. In dev mode templates are reparsed on each call.
func (s *templateSet) current() (*template.Template, map[string]*template.Template, error) {
	if s.dev {
		return s.parse()
	}
	return s.base, s.pages, nil
}

// renderPage executes the base layout for page. Output is buffered so a failing template
// never leaves a half-written response.
func (s *templateSet) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	_, pages, err := s.current()
	if err != nil {
		templateError(w, r, "parse", err)
		return
	}
	t, ok := pages[page]
	if !ok {
		templateError(w, r, "lookup", fmt.Errorf("page %q not found", page))
		return
	}
	s.write(w, r, status, t, "base", data)
}

// renderTemplate executes a shared fragment, typically in response to an htmx request.
func (s *templateSet) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	base, _, err := s.current()
	if err != nil {
		templateError(w, r, "parse", err)
		return
	}
	s.write(w, r, status, base, name, data)
}

func (s *templateSet) write(w http.ResponseWriter, r *http.Request, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		templateError(w, r, "exec", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func templateError(w http.ResponseWriter, r *http.Request, stage string, err error) {
	observability.FromContext(r.Context()).Error("template "+stage+" error", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
