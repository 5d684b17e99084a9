package v1

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/valyala/fasthttp"

	"sitebeam/internal/auth"
)

const liveKeepAliveInterval = 25 * time.Second

// LiveFeedHandler streams freshly ingested page views as server-sent
// events. EventSource cannot set an Authorization header, so the token
// is also accepted as a query parameter.
func (a *API) LiveFeedHandler(ctx *cartridge.Context) error {
	token := ctx.Query("token")
	if token == "" {
		header := ctx.Get("Authorization")
		if len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}
	}

	if _, err := auth.ValidateToken(a.cfg.PrivateKey, token); err != nil {
		return ctx.Status(http.StatusUnauthorized).JSON(map[string]interface{}{
			"error": "Invalid or expired token",
		})
	}

	sub := a.hub.Subscribe()

	ctx.Ctx.Set("Content-Type", "text/event-stream")
	ctx.Ctx.Set("Cache-Control", "no-cache")
	ctx.Ctx.Set("Connection", "keep-alive")

	ctx.Ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		keepAlive := time.NewTicker(liveKeepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case event, ok := <-sub.C:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: pageview\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					return
				}
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}
