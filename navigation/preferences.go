package navigation

// Supported languages
const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

// Theme modes
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Preferences are the process wide toggles rendered by the bar. They are
// loaded once on start and changed only by the toggle buttons
type Preferences struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

// Normalize replaces unknown values with the defaults
func (p Preferences) Normalize() Preferences {
	if p.Language != LangArabic {
		p.Language = LangEnglish
	}
	if p.Theme != ThemeDark {
		p.Theme = ThemeLight
	}
	return p
}

// ToggleLanguage switches between English and Arabic
func (p Preferences) ToggleLanguage() Preferences {
	if p.Language == LangArabic {
		p.Language = LangEnglish
	} else {
		p.Language = LangArabic
	}
	return p
}

// ToggleTheme switches between light and dark
func (p Preferences) ToggleTheme() Preferences {
	if p.Theme == ThemeDark {
		p.Theme = ThemeLight
	} else {
		p.Theme = ThemeDark
	}
	return p
}

// Dir is the text direction for the active language
func (p Preferences) Dir() string {
	if p.Language == LangArabic {
		return "rtl"
	}
	return "ltr"
}

// ThemeIcon is the glyph for the theme toggle: the toggle shows the mode it
// switches to
func (p Preferences) ThemeIcon() Icon {
	if p.Theme == ThemeDark {
		return IconSun
	}
	return IconMoon
}
