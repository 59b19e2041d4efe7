package handlers

import (
	"time"

	"finitefield.org/logo-web/internal/generator"
	"finitefield.org/logo-web/internal/i18n"
	"finitefield.org/logo-web/internal/logo"
)

// GeneratorView is the view model for the form, the submit button, and the result panel.
// It is rendered both inside the full page and as htmx fragments.
type GeneratorView struct {
	Lang      string
	CSRFToken string

	Values  logo.FormValues
	Errors  map[string]string
	Alert   string
	Invalid bool

	Industries []Option
	Vibes      []Option
	Schemes    []SchemeOption
	Custom     []Swatch
	ShowCustom bool

	Button ButtonView
	Render string
	Result *ResultView
	// OOB marks fragments whose button is swapped out-of-band.
	OOB bool
}

// Option is a selectable catalog entry. Value is the canonical English name sent back by the form.
type Option struct {
	Value       string
	Label       string
	Description string
	Selected    bool
}

// SchemeOption is a color scheme with its preview palette.
type SchemeOption struct {
	Option
	Colors []string
	Custom bool
}

// Swatch is one editable custom color slot.
type Swatch struct {
	Index int
	Color string
}

// ButtonView is the localized submit action.
type ButtonView struct {
	Label    string
	Disabled bool
	Cooling  bool
	Seconds  int
}

// ResultView describes the current logo.
type ResultView struct {
	ID          string
	URL         string
	DownloadURL string
	Alt         string
	Prompt      string
}

// GeneratorInput carries request-specific data not held in the session state.
type GeneratorInput struct {
	Lang      string
	CSRFToken string
	// Values overrides the session's last submitted values, e.g. when re-rendering an invalid form.
	Values *logo.FormValues
	Errors logo.FieldErrors
	Alert  string
}

// BuildGeneratorView derives the generator view from session state at now.
func BuildGeneratorView(b *i18n.Bundle, cat *logo.Catalog, st generator.State, now time.Time, in GeneratorInput) *GeneratorView {
	lang := in.Lang
	values := st.Last
	if in.Values != nil {
		values = *in.Values
	}
	v := &GeneratorView{
		Lang:      lang,
		CSRFToken: in.CSRFToken,
		Values:    values,
		Alert:     in.Alert,
		Invalid:   len(in.Errors) > 0,
		Render:    generator.Select(st).String(),
	}

	if len(in.Errors) > 0 {
		v.Errors = make(map[string]string, len(in.Errors))
		for field, key := range in.Errors {
			v.Errors[field] = b.T(lang, key)
		}
	}

	for _, name := range cat.Industries {
		v.Industries = append(v.Industries, Option{
			Value:    name,
			Label:    b.T(lang, "industries."+logo.IndustryKey(name)),
			Selected: name == values.Industry,
		})
	}
	for _, vibe := range cat.Vibes {
		v.Vibes = append(v.Vibes, Option{
			Value:       vibe.Name,
			Label:       b.T(lang, "vibes."+vibe.Key+".name"),
			Description: b.T(lang, "vibes."+vibe.Key+".description"),
			Selected:    vibe.Name == values.Vibe,
		})
	}
	for _, scheme := range cat.Schemes {
		colors := scheme.Colors[:]
		if scheme.IsCustom() {
			colors = st.Custom.Slice()
		}
		v.Schemes = append(v.Schemes, SchemeOption{
			Option: Option{
				Value:       scheme.Name,
				Label:       b.T(lang, "schemes."+scheme.Key+".name"),
				Description: b.T(lang, "schemes."+scheme.Key+".description"),
				Selected:    scheme.Name == values.ColorScheme,
			},
			Colors: colors,
			Custom: scheme.IsCustom(),
		})
	}
	v.Custom = Swatches(st.Custom)
	v.ShowCustom = values.ColorScheme == logo.CustomScheme

	v.Button = BuildButton(b, lang, generator.Button(st, now))

	if v.Render == generator.RenderResult.String() && len(st.Results) > 0 {
		id := st.Results[0]
		v.Result = &ResultView{
			ID:          id,
			URL:         "/logos/" + id,
			DownloadURL: "/logos/" + id + "?download=1",
			Alt:         b.T(lang, "result.alt"),
			Prompt:      st.Prompt,
		}
	}
	return v
}

// BuildButton localizes a button state. The wait label carries the remaining seconds.
func BuildButton(b *i18n.Bundle, lang string, bs generator.ButtonState) ButtonView {
	bv := ButtonView{Disabled: bs.Disabled, Seconds: bs.Seconds, Cooling: bs.Seconds > 0}
	if bv.Cooling {
		bv.Label = b.Tf(lang, bs.LabelKey, bs.Seconds)
	} else {
		bv.Label = b.T(lang, bs.LabelKey)
	}
	return bv
}

// Swatches lists the custom color slots in order.
func Swatches(c logo.CustomColors) []Swatch {
	out := make([]Swatch, len(c))
	for i, color := range c {
		out[i] = Swatch{Index: i, Color: color}
	}
	return out
}

// SwatchesView is the custom color fragment.
type SwatchesView struct {
	Lang     string
	Swatches []Swatch
	Error    string
}
