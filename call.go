package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vipnode/commutator/commutator"
	"github.com/vipnode/commutator/commutator/ws"
	"github.com/vipnode/commutator/commutator/ws/gobwas"
	"github.com/vipnode/commutator/commutator/ws/gorilla"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

func dial(ctx context.Context, impl string, url string, origin string) (ws.Conn, error) {
	switch impl {
	case "gorilla":
		conn, err := gorilla.Dial(ctx, url, origin)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "gobwas":
		conn, err := gobwas.Dial(ctx, url, origin)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, ErrExplain{fmt.Errorf("unknown websocket implementation: %q", impl), "Use --ws=gorilla or --ws=gobwas."}
}

func parseParams(raw string) (json.RawMessage, error) {
	if raw == "" {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, ErrExplain{errors.New("invalid params"), `Params must be JSON. Remember to quote strings: '"hello"'.`}
	}
	return json.RawMessage(raw), nil
}

// formatResult renders a raw JSON result in the requested output format.
func formatResult(result json.RawMessage, format string) ([]byte, error) {
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	switch format {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, result, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case "yaml":
		var v interface{}
		if err := json.Unmarshal(result, &v); err != nil {
			return nil, err
		}
		return yaml.Marshal(v)
	}
	return nil, ErrExplain{fmt.Errorf("unknown output format: %q", format), "Use --output=json or --output=yaml."}
}

func runCall(options Options, out io.Writer) error {
	params, err := parseParams(options.Call.Args.Params)
	if err != nil {
		return err
	}
	timeout, err := time.ParseDuration(options.Call.Timeout)
	if err != nil {
		return ErrExplain{err, `Failed to parse the --timeout value. Try using a value like "10s" or "1m".`}
	}
	// Fail on a bad format before calling anything.
	if _, err := formatResult(nil, options.Call.Output); err != nil {
		return err
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := dial(ctx, options.Call.WS, options.Call.URL, options.Call.Origin)
	if err != nil {
		var explainErr ErrExplain
		if errors.As(err, &explainErr) {
			return err
		}
		return ErrExplain{err, fmt.Sprintf("Failed to connect to the server: %q", options.Call.URL)}
	}
	defer conn.Close()

	c, err := commutator.New(commutator.Options{
		ServiceID: options.Call.Service,
		Target:    conn,
	})
	if err != nil {
		return err
	}
	defer c.Destroy()

	// The server may call back into these while serving our call.
	if _, err := c.ExposeReceiver("", &DemoService{}, commutator.Logging(logger.Debugf)); err != nil {
		return err
	}

	callCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(callCtx)

	var result json.RawMessage
	g.Go(func() error {
		err := conn.Serve()
		if gctx.Err() != nil {
			// Closed once the call was over.
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer conn.Close()
		defer stop()
		logger.Debugf("Calling %s on %s", options.Call.Args.FuncName, options.Call.URL)
		return c.Call(gctx, &result, options.Call.Args.FuncName, params)
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrExplain{err, fmt.Sprintf("No response within %s. Is %q exposed by the server? Try a longer --timeout.", timeout, options.Call.Args.FuncName)}
		}
		return err
	}

	formatted, err := formatResult(result, options.Call.Output)
	if err != nil {
		return err
	}
	_, err = out.Write(formatted)
	return err
}
