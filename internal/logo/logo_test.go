package logo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validValues() FormValues {
	return FormValues{
		CompanyName: "Coffee Shop",
		Industry:    "Food & Beverage",
		Vibe:        "Eco-friendly",
		ColorScheme: "Natural",
	}
}

func TestDefaultCatalogShape(t *testing.T) {
	c := DefaultCatalog()
	assert.Len(t, c.Industries, 24)
	assert.Len(t, c.Vibes, 12)
	assert.Len(t, c.Schemes, 6)

	pro, ok := c.Scheme("Professional")
	require.True(t, ok)
	assert.Equal(t, [3]string{"#2C3E50", "#E74C3C", "#ECF0F1"}, pro.Colors)

	custom, ok := c.Scheme(CustomScheme)
	require.True(t, ok)
	assert.True(t, custom.IsCustom())
}

func TestParseCatalogRejectsBadColor(t *testing.T) {
	raw := []byte(`
industries: [A]
vibes: [{key: a, name: A}]
schemes: [{key: x, name: X, colors: ["#000000", "red", "#FFFFFF"]}]
`)
	_, err := ParseCatalog(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid hex")
}

func TestValidate(t *testing.T) {
	c := DefaultCatalog()
	assert.Nil(t, validValues().Validate(c))

	errs := FormValues{CompanyName: " A ", Industry: "Mining", Vibe: "", ColorScheme: "Neon"}.Validate(c)
	require.NotNil(t, errs)
	assert.Equal(t, "form.errors.company_name", errs[FieldCompanyName])
	assert.Equal(t, "form.errors.industry", errs[FieldIndustry])
	assert.Equal(t, "form.errors.vibe", errs[FieldVibe])
	assert.Equal(t, "form.errors.color_scheme", errs[FieldColorScheme])
}

func TestValidateCountsRunesNotBytes(t *testing.T) {
	v := validValues()
	v.CompanyName = "Đạ"
	assert.Nil(t, v.Validate(DefaultCatalog()))
}

func TestValidateMeasuresTrimmedName(t *testing.T) {
	c := DefaultCatalog()
	for _, name := range []string{" A", "A ", "\tA\n"} {
		v := validValues()
		v.CompanyName = name
		assert.Equal(t, "form.errors.company_name", v.Validate(c)[FieldCompanyName], "%q", name)
	}
	v := validValues()
	v.CompanyName = " AB "
	assert.Nil(t, v.Validate(c))
}

func TestNormalizeStripsMarkup(t *testing.T) {
	v := FormValues{CompanyName: "  <b>Acme</b> & Sons<script>x()</script> ", Industry: " Automotive "}
	got := v.Normalize()
	assert.Equal(t, "Acme & Sons", got.CompanyName)
	assert.Equal(t, "Automotive", got.Industry)
}

func TestBuildPromptContainsFields(t *testing.T) {
	p := BuildPrompt(validValues(), DefaultCatalog(), DefaultCustomColors())
	assert.Contains(t, p, "Food & Beverage")
	assert.Contains(t, p, `"Coffee Shop"`)
	assert.Contains(t, p, "eco-friendly vibe")
	assert.Contains(t, p, "using the colors #27AE60, #F1C40F, #2ECC71")
	assert.True(t, strings.HasSuffix(p, "The logo should be simple, clean, and professional."))
}

func TestBuildPromptProfessionalIgnoresCustomColors(t *testing.T) {
	v := validValues()
	v.ColorScheme = "Professional"
	custom := CustomColors{"#111111", "#222222", "#333333"}
	p := BuildPrompt(v, DefaultCatalog(), custom)
	assert.Contains(t, p, "using the colors #2C3E50, #E74C3C, #ECF0F1.")
	assert.NotContains(t, p, "#111111")
}

func TestBuildPromptCustomUsesCurrentColors(t *testing.T) {
	v := validValues()
	v.ColorScheme = CustomScheme
	custom := DefaultCustomColors()
	require.NoError(t, custom.Set(1, "#ff0000"))
	require.NoError(t, custom.Set(2, "#00ff00"))
	p := BuildPrompt(v, DefaultCatalog(), custom)
	assert.Contains(t, p, "using the colors #000000, #FF0000, #00FF00.")
}

func TestBuildPromptUnknownSchemeOmitsClause(t *testing.T) {
	v := validValues()
	v.ColorScheme = "Unknown"
	p := BuildPrompt(v, DefaultCatalog(), DefaultCustomColors())
	assert.NotContains(t, p, "using the colors")
	assert.Contains(t, p, "eco-friendly vibe . The logo")
}

func TestCustomColorsSet(t *testing.T) {
	c := DefaultCustomColors()
	assert.ErrorIs(t, c.Set(3, "#FFFFFF"), ErrInvalidColor)
	assert.ErrorIs(t, c.Set(0, "FFFFFF"), ErrInvalidColor)
	assert.ErrorIs(t, c.Set(0, "#GGGGGG"), ErrInvalidColor)
	require.NoError(t, c.Set(0, " #abcdef "))
	assert.Equal(t, "#ABCDEF", c[0])
}

func TestIndustryKey(t *testing.T) {
	assert.Equal(t, "food_beverage", IndustryKey("Food & Beverage"))
	assert.Equal(t, "retail_e_commerce", IndustryKey("Retail & E-commerce"))
	assert.Equal(t, "automotive", IndustryKey("Automotive"))
}
