package main

import (
	"errors"
	"net/http"
	"net/url"

	"finitefield.org/logo-web/internal/content"
	handlersPkg "finitefield.org/logo-web/internal/handlers"
	mw "finitefield.org/logo-web/internal/middleware"
	"finitefield.org/logo-web/internal/nav"
	"finitefield.org/logo-web/internal/seo"
)

// AboutHandler renders the localized about page from markdown content.
func (a *app) AboutHandler(w http.ResponseWriter, r *http.Request) {
	vm := a.basePage(r, "about.title")
	page, err := a.pages.Page("about", vm.Lang)
	if errors.Is(err, content.ErrNotFound) {
		http.Error(w, a.bundle.T(vm.Lang, "errors.not_found"), http.StatusNotFound)
		return
	}
	if err != nil {
		templateError(w, r, "content", err)
		return
	}
	brand := a.bundle.T(vm.Lang, "brand.name")
	vm.Title = page.Title
	vm.SEO.Title = page.Title + " | " + brand
	vm.SEO.Description = page.Description
	vm.SEO.OG.Title = vm.SEO.Title
	vm.SEO.OG.Description = page.Description
	vm.SEO.OG.Type = "article"
	vm.SEO.JSONLD = seo.JSON(seo.Article(page.Title, vm.SEO.Canonical, page.Lang, page.UpdatedAt))
	vm.Content = page
	a.views.renderPage(w, r, http.StatusOK, "about", vm)
}

// basePage fills the layout fields shared by every full page.
func (a *app) basePage(r *http.Request, titleKey string) handlersPkg.PageData {
	lang := mw.Lang(r)
	brand := a.bundle.T(lang, "brand.name")
	vm := handlersPkg.PageData{
		Title:     a.bundle.T(lang, titleKey),
		Lang:      lang,
		Languages: a.langLinks(r, lang),
		CSRFToken: mw.CSRFToken(r),
		Path:      r.URL.Path,
		Nav:       nav.Build(r.URL.Path),
	}
	vm.SEO.Title = vm.Title
	if vm.Title != brand {
		vm.SEO.Title = vm.Title + " | " + brand
	}
	vm.SEO.Canonical = absoluteURL(r)
	vm.SEO.OG.URL = vm.SEO.Canonical
	vm.SEO.OG.SiteName = brand
	vm.SEO.OG.Type = "website"
	vm.SEO.OG.Title = vm.SEO.Title
	vm.SEO.Alternates = a.buildAlternates(r)
	return vm
}

func (a *app) langLinks(r *http.Request, current string) []handlersPkg.LangLink {
	var out []handlersPkg.LangLink
	for _, code := range a.bundle.Supported() {
		out = append(out, handlersPkg.LangLink{
			Code:   code,
			Label:  a.bundle.T(current, "lang."+code),
			Href:   withLang(r.URL.Path, code),
			Active: code == current,
		})
	}
	return out
}

func (a *app) buildAlternates(r *http.Request) []seo.Alternate {
	base := absoluteURL(r)
	var out []seo.Alternate
	for _, code := range a.bundle.Supported() {
		out = append(out, seo.Alternate{Href: withLang(base, code), Hreflang: code})
	}
	out = append(out, seo.Alternate{Href: base, Hreflang: "x-default"})
	return out
}

// absoluteURL reconstructs the request URL without its query.
func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
	return u.String()
}

func withLang(target, lang string) string {
	return target + "?hl=" + url.QueryEscape(lang)
}
