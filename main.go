package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/OpenPeeDeeP/xdg"
	flags "github.com/jessevdk/go-flags"
	"github.com/vipnode/commutator/commutator"
)

// Version of the binary, assigned during build.
var Version string = "dev"

// Options contains the flag options
type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose logging."`
	Version bool   `long:"version" description:"Print version and exit."`
	Config  string `long:"config" description:"INI file with default flag values. (default: config.ini in the XDG config home)"`

	Serve struct {
		Bind        string  `long:"bind" description:"Address and port to listen on." default:"0.0.0.0:8080"`
		Service     string  `long:"service" description:"Service id that namespaces messages on each connection." default:"commutator"`
		AllowOrigin string  `long:"allow-origin" description:"Browser origin allowed to connect, or * for any."`
		WS          string  `long:"ws" description:"Websocket implementation. (gorilla|gobwas)" default:"gorilla"`
		Store       string  `long:"store" description:"Storage driver for the kv functions. (memory|badger)" default:"memory"`
		DataDir     string  `long:"datadir" description:"Path for the badger store. (default: $XDG_DATA_HOME/commutator)"`
		TLSHost     string  `long:"tlshost" description:"Acquire an ACME TLS certificate for this host and listen on :443."`
		RateLimit   float64 `long:"rate-limit" description:"Calls per second allowed on each connection, 0 to disable." default:"20"`
	} `command:"serve" description:"Serve the demo functions to websocket clients."`

	Call struct {
		URL     string `long:"url" description:"Websocket URL of the server." default:"ws://127.0.0.1:8080/"`
		Service string `long:"service" description:"Service id that namespaces messages on the connection." default:"commutator"`
		Origin  string `long:"origin" description:"Origin header to send with the handshake."`
		WS      string `long:"ws" description:"Websocket implementation. (gorilla|gobwas)" default:"gorilla"`
		Output  string `long:"output" description:"Result format. (json|yaml)" default:"json"`
		Timeout string `long:"timeout" description:"Give up waiting for the result after this long, 0 to wait forever." default:"10s"`

		Args struct {
			FuncName string `positional-arg-name:"func" description:"Name of the remote function." required:"yes"`
			Params   string `positional-arg-name:"params" description:"JSON encoded params."`
		} `positional-args:"yes"`
	} `command:"call" description:"Call a remote function and print the result."`
}

const callUsage = `Examples:
* Add two numbers:
  $ commutator call add '{"a": 2, "b": 3}'

* Store a value, then read it back as YAML:
  $ commutator call kv.set '{"key": "greeting", "value": {"text": "hi"}}'
  $ commutator call --output=yaml kv.get '{"key": "greeting"}'

* Have the server call back into the local echo function:
  $ commutator call callback '{"funcName": "echo", "params": "hello"}'
`

// findConfig returns the config file to load: the --config flag if given,
// otherwise config.ini in the XDG config home if it exists.
func findConfig(args []string) string {
	pre := struct {
		Config string `long:"config"`
	}{}
	flags.NewParser(&pre, flags.IgnoreUnknown).ParseArgs(args)
	if pre.Config != "" {
		return pre.Config
	}
	return xdg.New("vipnode", "commutator").QueryConfig("config.ini")
}

func subcommand(cmd string, options Options) error {
	switch cmd {
	case "serve":
		return runServe(options)
	case "call":
		return runCall(options, os.Stdout)
	}
	return nil
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)

	if path := findConfig(os.Args[1:]); path != "" {
		if err := flags.NewIniParser(parser).ParseFile(path); err != nil {
			exit(1, "failed to load config %q: %s\n", path, err)
		}
	}

	p, err := parser.Parse()
	if err != nil {
		if p == nil {
			fmt.Println(err)
		}
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp && parser.Active != nil {
			// Print additional usage help when run with --help
			switch parser.Active.Name {
			case "call":
				exit(0, callUsage)
			}
		}
		return
	}

	if options.Version {
		fmt.Println(Version)
		os.Exit(0)
	}

	setVerbosity(len(options.Verbose), os.Stderr)

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		exit(1, "\nMissing command.\n")
	}
	cmd := parser.Active.Name
	err = subcommand(cmd, options)
	if err == nil {
		return
	}

	if err == io.EOF {
		exit(3, "Connection closed.\n")
	}

	var remoteErr *commutator.RemoteError
	var decodeErr *commutator.DecodeError
	var explainErr ErrExplain
	var netErr net.Error
	switch {
	case errors.As(err, &explainErr):
		// All good.
	case errors.As(err, &remoteErr):
		err = ErrExplain{err, fmt.Sprintf(`The remote function failed with %s. Check the params, or run the server with -vvv for details.`, remoteErr.Name)}
	case errors.As(err, &decodeErr):
		err = ErrExplain{err, `Received a malformed message. Make sure both ends use the same --service and a compatible version.`}
	case errors.As(err, &netErr):
		err = ErrExplain{err, `Disconnected from server unexpectedly. Could be a connectivity issue or the server is down. Try again?`}
	default:
		err = ErrExplain{err, fmt.Sprintf(`Error type %T is missing an explanation. Please open an issue at https://github.com/vipnode/commutator`, err)}
	}

	exit(2, "%s failed: %s\n", cmd, err)
}

func exit(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(code)
}

// ErrExplain annotates an error with an explanation.
type ErrExplain struct {
	Cause       error
	Explanation string
}

func (err ErrExplain) Error() string {
	return fmt.Sprintf("%s\n -> %s", err.Cause, err.Explanation)
}

func (err ErrExplain) Unwrap() error {
	return err.Cause
}
