package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/stateport/internal/core"
)

// ImportSummary renders the outcome table the admin console swaps in after
// an HTMX import.
func ImportSummary(res *core.ImportResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		imported, skipped, rejected := res.Stats.Totals()
		var entities []*core.EntityStats
		if res.Stats != nil {
			entities = res.Stats.Entities
		}
		if _, err := fmt.Fprintf(w,
			`<div class="import-summary" data-import-id="%s"><p>%s: %d imported, %d skipped, %d rejected</p>`,
			templ.EscapeString(res.ImportID), templ.EscapeString(res.Filename), imported, skipped, rejected); err != nil {
			return err
		}

		io.WriteString(w, `<table><thead><tr><th>Sheet</th><th>Imported</th><th>Skipped</th><th>Rejected</th></tr></thead><tbody>`)
		for _, e := range entities {
			fmt.Fprintf(w, `<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td></tr>`,
				templ.EscapeString(e.Sheet), e.Imported, e.SkippedExisting, e.Rejected)
		}
		io.WriteString(w, `</tbody></table>`)

		var issues []string
		for _, e := range entities {
			for _, is := range e.Issues {
				issues = append(issues, fmt.Sprintf("%s line %d: %s", e.Sheet, is.Line, is.Reason))
			}
		}
		if len(issues) > 0 {
			io.WriteString(w, `<ul class="import-issues">`)
			for _, s := range issues {
				fmt.Fprintf(w, `<li>%s</li>`, templ.EscapeString(s))
			}
			io.WriteString(w, `</ul>`)
		}

		if len(res.Warnings) > 0 {
			io.WriteString(w, `<ul class="import-warnings">`)
			for _, s := range res.Warnings {
				fmt.Fprintf(w, `<li>%s</li>`, templ.EscapeString(s))
			}
			io.WriteString(w, `</ul>`)
		}

		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// ErrorAlert renders a user message as an alert fragment.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p>%s</p><p class="alert-action">%s</p><p class="alert-code">Code: %s</p></div>`,
			templ.EscapeString(msg.Message), templ.EscapeString(msg.Action), templ.EscapeString(msg.Code))
		return err
	})
}
