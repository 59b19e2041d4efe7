package main

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/logo-web/internal/generator"
	handlersPkg "finitefield.org/logo-web/internal/handlers"
	"finitefield.org/logo-web/internal/logo"
	mw "finitefield.org/logo-web/internal/middleware"
	"finitefield.org/logo-web/internal/observability"
	"finitefield.org/logo-web/internal/results"
	"finitefield.org/logo-web/internal/seo"
)

// HomeHandler renders the generator page from the session state.
func (a *app) HomeHandler(w http.ResponseWriter, r *http.Request) {
	a.renderGenerator(w, r, http.StatusOK, handlersPkg.GeneratorInput{})
}

// GenerateHandler validates the form and runs one submission. htmx requests receive the
// generator fragment; plain posts receive the full page.
func (a *app) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	sd := mw.GetSession(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, a.bundle.T(lang, "errors.invalid_request"), http.StatusBadRequest)
		return
	}
	values := logo.FormValues{
		CompanyName: r.PostFormValue(logo.FieldCompanyName),
		Industry:    r.PostFormValue(logo.FieldIndustry),
		Vibe:        r.PostFormValue(logo.FieldVibe),
		ColorScheme: r.PostFormValue(logo.FieldColorScheme),
	}.Normalize()

	in := handlersPkg.GeneratorInput{Values: &values}
	if errs := values.Validate(a.catalog); errs != nil {
		in.Errors = errs
		a.renderGenerator(w, r, http.StatusUnprocessableEntity, in)
		return
	}

	_, err := a.ctrl.Submit(r.Context(), sd.ID, values)
	status := http.StatusOK
	var cooling *generator.CooldownError
	switch {
	case errors.As(err, &cooling):
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", strconv.Itoa(cooling.Remaining))
		in.Alert = a.bundle.Tf(lang, "alerts.cooldown", cooling.Remaining)
	case errors.Is(err, generator.ErrBusy):
		status = http.StatusConflict
		in.Alert = a.bundle.T(lang, "alerts.busy")
	case err != nil:
		observability.FromContext(r.Context()).Error("submit failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	a.renderGenerator(w, r, status, in)
}

// ColorsHandler edits one custom color slot.
func (a *app) ColorsHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	sd := mw.GetSession(r)
	index, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("index")))
	if err != nil {
		index = -1
	}
	st, err := a.ctrl.SetCustomColor(sd.ID, index, r.PostFormValue("color"))
	status := http.StatusOK
	view := handlersPkg.SwatchesView{Lang: lang, Swatches: handlersPkg.Swatches(st.Custom)}
	if errors.Is(err, logo.ErrInvalidColor) {
		status = http.StatusUnprocessableEntity
		view.Error = a.bundle.T(lang, "form.errors.color")
	}
	if !mw.IsHTMX(r.Context()) {
		if status != http.StatusOK {
			http.Error(w, view.Error, status)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	a.views.renderTemplate(w, r, status, "frag_swatches", view)
}

// StatusHandler renders the result panel and button for htmx polling.
func (a *app) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	view := a.generatorView(r, handlersPkg.GeneratorInput{})
	view.OOB = true
	a.views.renderTemplate(w, r, http.StatusOK, "frag_status", view)
}

// ResetHandler discards the current result.
func (a *app) ResetHandler(w http.ResponseWriter, r *http.Request) {
	a.ctrl.Reset(mw.GetSession(r).ID)
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	view := a.generatorView(r, handlersPkg.GeneratorInput{})
	view.OOB = true
	a.views.renderTemplate(w, r, http.StatusOK, "frag_status", view)
}

// LogoHandler serves a generated image owned by the caller's session.
func (a *app) LogoHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	owned := slices.Contains(a.ctrl.Snapshot(mw.GetSession(r).ID).Results, id)
	entry, err := a.results.Get(id)
	if !owned || errors.Is(err, results.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", entry.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(entry.Data)))
	h.Set("Cache-Control", "private, no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	if r.URL.Query().Get("download") == "1" {
		h.Set("Content-Disposition", `attachment; filename="`+downloadName(entry)+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(entry.Data)
	}
}

// throttled answers requests rejected by the per-client limiter.
func (a *app) throttled(w http.ResponseWriter, r *http.Request, wait time.Duration) {
	lang := mw.Lang(r)
	secs := int((wait + time.Second - 1) / time.Second)
	in := handlersPkg.GeneratorInput{Alert: a.bundle.Tf(lang, "alerts.throttled", secs)}
	a.renderGenerator(w, r, http.StatusTooManyRequests, in)
}

func (a *app) generatorView(r *http.Request, in handlersPkg.GeneratorInput) *handlersPkg.GeneratorView {
	in.Lang = mw.Lang(r)
	in.CSRFToken = mw.CSRFToken(r)
	st := a.ctrl.Snapshot(mw.GetSession(r).ID)
	return handlersPkg.BuildGeneratorView(a.bundle, a.catalog, st, a.ctrl.Now(), in)
}

func (a *app) renderGenerator(w http.ResponseWriter, r *http.Request, status int, in handlersPkg.GeneratorInput) {
	view := a.generatorView(r, in)
	if mw.IsHTMX(r.Context()) {
		a.views.renderTemplate(w, r, status, "frag_generator", view)
		return
	}
	vm := a.basePage(r, "page.title")
	vm.SEO.Description = a.bundle.T(vm.Lang, "page.description")
	vm.SEO.OG.Description = vm.SEO.Description
	vm.SEO.JSONLD = seo.JSON(seo.WebApplication(a.bundle.T(vm.Lang, "brand.name"), vm.SEO.Canonical, vm.SEO.Description, vm.Lang))
	vm.Generator = view
	a.views.renderPage(w, r, status, "home", vm)
}

func downloadName(e results.Entry) string {
	ext := ".png"
	switch e.ContentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}
	return "logo-" + strings.ToLower(e.ID) + ext
}
