package serverapp

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"tsadaash/internal/agenda"
	"tsadaash/internal/auth"
)

func writeAll(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeAll(w,
			`<!doctype html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, templ.EscapeString(title), `</title>`,
			`<link rel="stylesheet" href="/static/css/app.css"></head><body>`,
		); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return writeAll(w, `</body></html>`)
	})
}

// agendaPage groups entries by local calendar day.
func agendaPage(u auth.User, from, to time.Time, entries []agenda.Entry) templ.Component {
	loc := u.Location()
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeAll(w,
			`<header><h1>Agenda</h1><span class="tz">`,
			templ.EscapeString(u.Username), ` &middot; `, templ.EscapeString(u.Timezone()),
			`</span></header>`,
			`<p class="range">`,
			templ.EscapeString(from.In(loc).Format("Mon 2 Jan")), ` to `,
			templ.EscapeString(to.In(loc).Add(-time.Nanosecond).Format("Mon 2 Jan 2006")),
			`</p>`,
		); err != nil {
			return err
		}
		if len(entries) == 0 {
			return writeAll(w, `<p class="empty">Nothing due.</p>`)
		}

		open := ""
		for _, e := range entries {
			at := e.At.In(loc)
			day := at.Format("2006-01-02")
			if day != open {
				if open != "" {
					if err := writeAll(w, `</ul></section>`); err != nil {
						return err
					}
				}
				open = day
				if err := writeAll(w,
					`<section class="day"><h2>`, templ.EscapeString(at.Format("Monday 2 January")), `</h2><ul class="entries">`,
				); err != nil {
					return err
				}
			}
			if err := writeAll(w,
				`<li><time datetime="`, templ.EscapeString(at.Format(time.RFC3339)), `">`,
				templ.EscapeString(at.Format("15:04")), `</time><span>`,
				templ.EscapeString(e.Title), `</span></li>`,
			); err != nil {
				return err
			}
		}
		return writeAll(w, `</ul></section>`)
	})
	return layout(fmt.Sprintf("Agenda · %s", u.Username), body)
}

func signinPage(errMsg string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeAll(w, `<h1>Sign in</h1>`); err != nil {
			return err
		}
		if errMsg != "" {
			if err := writeAll(w, `<p class="error">`, templ.EscapeString(errMsg), `</p>`); err != nil {
				return err
			}
		}
		return writeAll(w,
			`<form class="signin" method="post" action="/signin">`,
			`<input name="login" placeholder="Username or email" autocomplete="username" required>`,
			`<input name="password" type="password" placeholder="Password" autocomplete="current-password" required>`,
			`<button type="submit">Sign in</button></form>`,
		)
	})
	return layout("Sign in", body)
}
