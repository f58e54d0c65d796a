package config

const (
	LightTheme string = "light"
	DarkTheme  string = "dark"

	DefaultDarkSyntaxTheme  string = "gruvbox"
	DefaultLightSyntaxTheme string = "catppuccin-latte"
)

const (
	LightThemeIcon = `<span class="theme-icon" aria-label="Switch to light theme">&#9728;</span>`
	DarkThemeIcon  = `<span class="theme-icon" aria-label="Switch to dark theme">&#9790;</span>`
)
