package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/vipnode/commutator/commutator/ws"
	"github.com/vipnode/commutator/commutator/ws/gobwas"
	"github.com/vipnode/commutator/commutator/ws/gorilla"
	"github.com/vipnode/commutator/store"
	badgerStore "github.com/vipnode/commutator/store/badger"
	"github.com/vipnode/commutator/store/memory"
	"golang.org/x/crypto/acme/autocert"
)

// findDataDir returns a valid data dir, will create it if it doesn't
// exist.
func findDataDir(overridePath string) (string, error) {
	path := overridePath
	if path == "" {
		path = xdg.New("vipnode", "commutator").DataHome()
	}
	err := os.MkdirAll(path, 0700)
	return path, err
}

func openStore(driver string, dataDir string) (store.Store, error) {
	switch driver {
	case "memory":
		return memory.New(), nil
	case "persist", "badger":
		dir, err := findDataDir(dataDir)
		if err != nil {
			return nil, err
		}
		s, err := badgerStore.OpenDir(dir)
		if err != nil {
			return nil, ErrExplain{err, fmt.Sprintf("Failed to open the badger store in %q. Is another server using it? Use --datadir to pick another path.", dir)}
		}
		logger.Infof("Persistent store using badger backend: %s", dir)
		return s, nil
	}
	return nil, ErrExplain{fmt.Errorf("unknown storage driver: %q", driver), "Use --store=memory or --store=badger."}
}

func newUpgrader(impl string, allowOrigin string) (ws.Upgrader, error) {
	switch impl {
	case "gorilla":
		return &gorilla.Upgrader{AllowOrigin: allowOrigin}, nil
	case "gobwas":
		return &gobwas.Upgrader{AllowOrigin: allowOrigin}, nil
	}
	return nil, ErrExplain{fmt.Errorf("unknown websocket implementation: %q", impl), "Use --ws=gorilla or --ws=gobwas."}
}

// newServer builds the HTTP handler for the serve command.
func newServer(options Options, st store.Store) (*server, error) {
	upgrader, err := newUpgrader(options.Serve.WS, options.Serve.AllowOrigin)
	if err != nil {
		return nil, err
	}
	handler := &server{
		ws:        upgrader,
		header:    http.Header{},
		serviceID: options.Serve.Service,
		service:   &demo{store: st, rateLimit: options.Serve.RateLimit},
	}
	if options.Serve.AllowOrigin != "" {
		handler.header.Set("Access-Control-Allow-Origin", options.Serve.AllowOrigin)
	}
	return handler, nil
}

func runServe(options Options) error {
	st, err := openStore(options.Serve.Store, options.Serve.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	handler, err := newServer(options, st)
	if err != nil {
		return err
	}

	if options.Serve.TLSHost != "" {
		if !strings.HasSuffix(options.Serve.Bind, ":443") {
			logger.Warningf("Ignoring --bind value (%q) because it's not 443 and --tlshost is set.", options.Serve.Bind)
		}
		logger.Infof("Starting server (version %s), acquiring ACME certificate and listening on: wss://%s", Version, options.Serve.TLSHost)
		err := http.Serve(autocert.NewListener(options.Serve.TLSHost), handler)
		if strings.HasSuffix(err.Error(), "bind: permission denied") {
			err = ErrExplain{err, "Serving with autocert requires CAP_NET_BIND_SERVICE capability permission to bind on low-numbered ports. See: https://superuser.com/questions/710253/allow-non-root-process-to-bind-to-port-80-and-443/892391"}
		}
		return err
	}
	logger.Infof("Starting server (version %s), listening on: ws://%s", Version, options.Serve.Bind)
	return http.ListenAndServe(options.Serve.Bind, handler)
}
