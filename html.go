/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

//go:embed assets/*
var assets embed.FS

func serveHomePage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var page strings.Builder

		page.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		page.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		page.WriteString(getFavicon(cfg))
		page.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/replay/app.css">`, cfg.prefix))
		page.WriteString(`<title>werewolf-replay</title></head><body class="home">`)
		page.WriteString(`<form class="config-form" method="get" action="` + html.EscapeString(cfg.prefix) + `/replay">`)
		page.WriteString(`<h3>Game Configuration</h3>`)
		page.WriteString(fmt.Sprintf(`<label>Round <input type="number" name="round" min="1" value="%d"></label>`, cfg.round))
		page.WriteString(`<label>Players <select name="players">`)
		for n := minPlayers; n <= maxPlayers; n++ {
			selected := ""
			if n == cfg.players {
				selected = " selected"
			}
			page.WriteString(fmt.Sprintf(`<option value="%d"%s>%d</option>`, n, selected, n))
		}
		page.WriteString(`</select></label>`)
		page.WriteString(`<button type="submit">Watch</button></form></body></html>`)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(page.String()))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Home page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveAssets(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := "assets" + p.ByName("filepath")

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)

			return
		}

		_, err = writeCached(cfg, w, fname, data)
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /replay/

User-agent: GPTBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: CCBot
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
