// Package engine carries the ambient, non-WFS-specific machinery: config
// loading, process bootstrap of the process-wide registries and datastore,
// and graceful HTTP server startup/shutdown.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdok/go-wfs-server/ogc/wfs/datasources"
	"github.com/pdok/go-wfs-server/ogc/wfs/datasources/geopackage"
	"github.com/pdok/go-wfs-server/ogc/wfs/datasources/postgis"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/storedquery"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

const shutdownTimeout = 5 * time.Second

// Engine bundles the process-wide, read-mostly state a WFS request handler
// needs: the feature-type and function registries, the stored query
// registry, and the datastore backing all of them.
type Engine struct {
	Config *Config

	Registry      *xsd.Registry
	Functions     *fes.FunctionRegistry
	StoredQueries *storedquery.Registry
	Datastore     datasources.Datastore
}

// NewEngine loads configFile, builds every registered feature type, and
// opens the configured datastore.
func NewEngine(configFile string) *Engine {
	config := ReadConfigFile(configFile)
	return NewEngineWithConfig(config)
}

// NewEngineWithConfig builds an Engine from an already-parsed Config.
func NewEngineWithConfig(config *Config) *Engine {
	policy := config.OgcAPI.CRSPolicy()

	registry := xsd.NewRegistry()
	var featureTypes []*xsd.FeatureType
	for _, fc := range config.OgcAPI.FeatureTypes {
		ft, err := fc.BuildFeatureType(policy)
		if err != nil {
			log.Fatalf("failed to build feature type %s: %v", fc.LocalName, err)
		}
		registry.Register(ft)
		featureTypes = append(featureTypes, ft)
	}

	functions := fes.NewFunctionRegistry()
	storedQueries := storedquery.NewRegistry()

	store := newDatastore(config.OgcAPI, featureTypes)

	return &Engine{
		Config:        config,
		Registry:      registry,
		Functions:     functions,
		StoredQueries: storedQueries,
		Datastore:     store,
	}
}

func newDatastore(cfg OgcAPIWfs, featureTypes []*xsd.FeatureType) datasources.Datastore {
	switch {
	case cfg.GeoPackage != nil:
		return geopackage.NewGeoPackage(*cfg.GeoPackage, featureTypes)
	case cfg.PostGIS != nil:
		return postgis.NewPostGIS(*cfg.PostGIS)
	default:
		log.Fatal("configuration must declare exactly one datastore backend (geopackage or postgis)")
		return nil
	}
}

// Start binds the main WFS server on address, and (when debugPort > 0) a
// pprof debug server on localhost, shutting both down gracefully on
// SIGINT/SIGTERM/SIGQUIT.
func (e *Engine) Start(address string, router *chi.Mux, debugPort int, shutdownDelay int) error {
	if debugPort > 0 {
		go func() {
			debugAddress := fmt.Sprintf("localhost:%d", debugPort)
			debugRouter := chi.NewRouter()
			debugRouter.Use(middleware.Logger)
			debugRouter.Mount("/debug", middleware.Profiler())
			if err := startServer("debug server", debugAddress, 0, debugRouter); err != nil {
				log.Fatalf("debug server failed %v", err)
			}
		}()
	}

	return startServer("main server", address, shutdownDelay, router)
}

func startServer(name string, address string, shutdownDelay int, router *chi.Mux) error {
	server := http.Server{
		Addr:    address,
		Handler: router,

		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // streaming GetFeature responses have no fixed upper bound, per spec §5's timeout note
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		log.Printf("%s listening on %s", name, address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to shutdown %s: %v", name, err)
		}
	}()

	<-ctx.Done()
	stop()

	if shutdownDelay > 0 {
		log.Printf("stop signal received, initiating shutdown of %s after %d seconds delay", name, shutdownDelay)
		time.Sleep(time.Duration(shutdownDelay) * time.Second)
	}
	log.Printf("shutting down %s gracefully", name)

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(timeoutCtx)
}

// SafeWrite executes write while logging (not panicking on) a failed write,
// used by every handler pushing a ChunkIterator's bytes to the response body.
func SafeWrite(write func([]byte) (int, error), body []byte) {
	if _, err := write(body); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
