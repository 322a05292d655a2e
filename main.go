package main

import (
	"log"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v2"

	"github.com/pdok/go-wfs-server/engine"
	"github.com/pdok/go-wfs-server/ogc/wfs/httpapi"
)

func main() {
	app := cli.NewApp()
	app.Name = "go-wfs-server"
	app.Usage = "OGC WFS 2.0 server, written in Go"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "host",
			Usage:    "bind host for the WFS server",
			Value:    "0.0.0.0",
			Required: false,
			EnvVars:  []string{"HOST"},
		},
		&cli.IntFlag{
			Name:     "port",
			Usage:    "bind port for the WFS server",
			Value:    8080,
			Required: false,
			EnvVars:  []string{"PORT"},
		},
		&cli.IntFlag{
			Name:     "debug-port",
			Usage:    "bind port for debug server (disabled by default), do not expose this port publicly",
			Value:    -1,
			Required: false,
			EnvVars:  []string{"DEBUG_PORT"},
		},
		&cli.IntFlag{
			Name:     "shutdown-delay",
			Usage:    "delay (in seconds) before initiating graceful shutdown (e.g. useful in k8s to allow ingress controller to update their endpoints list)",
			Value:    0,
			Required: false,
			EnvVars:  []string{"SHUTDOWN_DELAY"},
		},
		&cli.StringFlag{
			Name:     "config-file",
			Usage:    "reference to YAML configuration file",
			Required: true,
			EnvVars:  []string{"CONFIG_FILE"},
		},
	}

	app.Action = func(c *cli.Context) error {
		log.Printf("%s - %s\n", app.Name, app.Usage)

		address := net.JoinHostPort(c.String("host"), strconv.Itoa(c.Int("port")))
		debugPort := c.Int("debug-port")
		shutdownDelay := c.Int("shutdown-delay")
		configFile := c.String("config-file")

		e := engine.NewEngine(configFile)
		defer e.Datastore.Close()

		router := newRouter(e)

		return e.Start(address, router, debugPort, shutdownDelay)
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newRouter(e *engine.Engine) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	handler := httpapi.NewHandler(e)
	router.Handle("/wfs", handler)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		engine.SafeWrite(w.Write, []byte("OK"))
	})

	return router
}
