package cmd

import (
	"log/slog"

	"github.com/pkg/browser"
)

// openBrowser opens url with the OS default handler, logging rather than
// failing the command if no browser is available (e.g. headless canal-side
// Pi), matching the teacher's main.go best-effort browser.OpenURL call.
func openBrowser(url string) {
	if err := browser.OpenURL(url); err != nil {
		slog.Default().Debug("could not open browser", "url", url, "error", err)
	}
}
