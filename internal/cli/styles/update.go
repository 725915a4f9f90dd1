package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nevna/upwell/internal/domain/entity"
)

// UpdateRenderer renders update status messages with styled output.
type UpdateRenderer struct {
	theme *Theme
}

// NewUpdateRenderer creates a new update renderer with the given theme.
func NewUpdateRenderer(theme *Theme) *UpdateRenderer {
	return &UpdateRenderer{theme: theme}
}

// RenderChecking renders the "checking for updates" message.
func (*UpdateRenderer) RenderChecking(spinner string) string {
	return fmt.Sprintf("\n  %s Checking for updates...\n", spinner)
}

// RenderUpToDate renders the "already up to date" message.
func (r *UpdateRenderer) RenderUpToDate(version string) string {
	iconStyle := lipgloss.NewStyle().Foreground(r.theme.Success)

	return fmt.Sprintf(
		"\n  %s Already up to date (%s)\n",
		iconStyle.Render(IconCheck),
		r.theme.Highlight.Render(version),
	)
}

// RenderAvailable renders the "update available" message.
func (r *UpdateRenderer) RenderAvailable(info *entity.UpdateInfo, current string) string {
	iconStyle := lipgloss.NewStyle().Foreground(r.theme.Accent)

	out := fmt.Sprintf(
		"\n  %s Update available: %s %s %s (%s channel)\n",
		iconStyle.Render(IconRocket),
		r.theme.Highlight.Render(current),
		iconStyle.Render(IconArrow),
		r.theme.Highlight.Render(info.VersionName),
		info.Channel,
	)
	if info.FileSize > 0 {
		out += fmt.Sprintf("     %s\n", r.theme.Subtle.Render(FormatBytes(info.FileSize)))
	}
	return out
}

// RenderKeyNotice renders a provider-reported problem with the keyed
// source. The numeric code maps to a readable line here; the raw
// provider message rides along when it adds anything.
func (r *UpdateRenderer) RenderKeyNotice(code int, raw string) string {
	iconStyle := lipgloss.NewStyle().Foreground(r.theme.Warning)

	message := entity.ErrorCodeMessage(code)
	if raw != "" && raw != message {
		message = fmt.Sprintf("%s (%s)", message, raw)
	}

	out := fmt.Sprintf(
		"  %s %s\n",
		iconStyle.Render(IconKey),
		r.theme.WarningStyle.Render(message),
	)
	provErr := entity.ProviderError{Code: code}
	if provErr.IsKeyError() {
		out += fmt.Sprintf("     %s\n",
			r.theme.Subtle.Render("Run 'upwell key <access-key>' to update the key."))
	}
	return out
}

// RenderDownloading renders the live download line with a progress bar.
func (r *UpdateRenderer) RenderDownloading(bar, version string, p entity.DownloadProgress) string {
	detail := FormatBytes(p.DownloadedSize)
	if p.TotalSize > 0 {
		detail += " / " + FormatBytes(p.TotalSize)
	}
	if p.Speed > 0 {
		detail += fmt.Sprintf("  %s/s", FormatBytes(p.Speed))
	}

	return fmt.Sprintf(
		"\n  %s Downloading %s\n  %s  %s\n",
		IconDownload,
		r.theme.Highlight.Render(version),
		bar,
		r.theme.Subtle.Render(detail),
	)
}

// RenderDownloaded renders the "ready to install" message.
func (r *UpdateRenderer) RenderDownloaded(version string) string {
	iconStyle := lipgloss.NewStyle().Foreground(r.theme.Success)

	return fmt.Sprintf(
		"\n  %s Update %s downloaded and ready to install\n",
		iconStyle.Render(IconCheck),
		r.theme.Highlight.Render(version),
	)
}

// RenderInstalling renders the "installing" message.
func (r *UpdateRenderer) RenderInstalling(version string) string {
	return fmt.Sprintf(
		"\n  %s Installing %s...\n",
		IconPackage,
		r.theme.Highlight.Render(version),
	)
}

// RenderJustUpdated renders the post-restart update notice.
func (r *UpdateRenderer) RenderJustUpdated(previous, current string) string {
	iconStyle := lipgloss.NewStyle().Foreground(r.theme.Success)

	return fmt.Sprintf(
		"\n  %s Updated %s %s %s\n",
		iconStyle.Render(IconRocket),
		r.theme.Subtle.Render(previous),
		iconStyle.Render(IconArrow),
		r.theme.Highlight.Render(current),
	)
}

// RenderError renders an error message.
func (r *UpdateRenderer) RenderError(err error) string {
	iconStyle := lipgloss.NewStyle().Foreground(r.theme.Error)

	return fmt.Sprintf(
		"\n  %s Update failed: %v\n",
		iconStyle.Render(IconX),
		err,
	)
}

// FormatBytes renders a byte count in binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
