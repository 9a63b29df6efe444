// Package profiling exposes opt-in pprof and Pyroscope continuous profiling.
//
//	ENABLE_PROFILING=true             pprof on localhost:$PPROF_PORT (6060)
//	ENABLE_CONTINUOUS_PROFILING=true  push to $PYROSCOPE_SERVER_URL
package profiling

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	"time"

	"github.com/grafana/pyroscope-go"

	"github.com/nordicstoday/nordics-today/infrastructure/config"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
)

// Start enables whichever profilers the environment asks for and returns a
// function that stops them.
func Start(service, version string, log logger.Logger) (stop func(), err error) {
	var stops []func()

	if config.ParseBool(os.Getenv("ENABLE_PROFILING")) {
		stops = append(stops, startPprof(log))
	}

	if config.ParseBool(os.Getenv("ENABLE_CONTINUOUS_PROFILING")) {
		p, perr := startPyroscope(service, version)
		if perr != nil {
			err = perr
		} else {
			log.Info("Continuous profiling started", logger.String("application", "nordics."+service))
			stops = append(stops, func() { _ = p.Stop() })
		}
	}

	return func() {
		for _, s := range stops {
			s()
		}
	}, err
}

func startPprof(log logger.Logger) func() {
	port := os.Getenv("PPROF_PORT")
	if port == "" {
		port = "6060"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Loopback only.
	srv := &http.Server{Addr: "localhost:" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("pprof listening", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("pprof server stopped", logger.Error(err))
		}
	}()
	return func() { _ = srv.Close() }
}

func startPyroscope(service, version string) (*pyroscope.Profiler, error) {
	server := os.Getenv("PYROSCOPE_SERVER_URL")
	if server == "" {
		server = "http://pyroscope:4040"
	}
	env := os.Getenv("PYROSCOPE_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	host, _ := os.Hostname()

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: "nordics." + service,
		ServerAddress:   server,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
		Tags: map[string]string{
			"environment": env,
			"version":     version,
			"hostname":    host,
			"go_version":  runtime.Version(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	return p, nil
}
