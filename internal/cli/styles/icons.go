// Package styles provides reusable lipgloss-based TUI components.
package styles

// Nerd Font icons (requires a Nerd Font to display correctly)
const (
	IconCheck    = "" // check
	IconX        = "" // x
	IconWarning  = "" // warning
	IconInfo     = "" // info
	IconRocket   = "" // rocket
	IconArrow    = "" // arrow right
	IconDownload = "" // download
	IconPackage  = "" // archive/package
	IconVersion  = "" // tag
	IconKey      = "" // key
	IconClock    = "" // clock
	IconDatabase = "" // database
)
