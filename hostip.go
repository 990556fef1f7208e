package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/monasticacademy/hostip/pkg/history"
	"github.com/monasticacademy/hostip/pkg/hostname"
	"github.com/monasticacademy/hostip/pkg/lookup"
)

const version = "0.3.0"

// exit codes
const (
	exitOK         = 0
	exitUsage      = 1
	exitResolution = 2
	exitFailure    = 3
)

type cliArgs struct {
	Targets []string `arg:"positional" placeholder:"URL-OR-HOSTNAME" help:"URL or hostname to resolve"`
	IPv4    bool     `arg:"-4,--ipv4" help:"print only IPv4 addresses"`
	IPv6    bool     `arg:"-6,--ipv6" help:"print only IPv6 addresses"`
	Verbose bool     `arg:"-v,--verbose" help:"log each step to stderr"`
	DB      string   `arg:"--db,env:HOSTIP_DB" placeholder:"PATH" help:"record lookups in this SQLite database"`
	History bool     `arg:"--history" help:"list recorded lookups"`
	Delete  *int64   `arg:"--delete" placeholder:"ID" help:"delete the recorded lookup with this ID"`
	Clear   bool     `arg:"--clear" help:"delete all recorded lookups"`
}

func (cliArgs) Description() string {
	return "hostip resolves a URL or hostname with the system resolver and prints its IP addresses, one per line"
}

func (cliArgs) Version() string {
	return "hostip " + version
}

func (a *cliArgs) historyOps() int {
	n := 0
	if a.History {
		n++
	}
	if a.Delete != nil {
		n++
	}
	if a.Clear {
		n++
	}
	return n
}

// validate checks the combinations of arguments that go-arg cannot express
func (a *cliArgs) validate() error {
	if a.IPv4 && a.IPv6 {
		return errors.New("--ipv4 and --ipv6 cannot be combined")
	}

	switch ops := a.historyOps(); {
	case ops > 1:
		return errors.New("--history, --delete and --clear cannot be combined")
	case ops == 1 && len(a.Targets) > 0:
		return errors.New("a history operation does not take a URL or hostname")
	case ops == 1 && a.DB == "":
		return errors.New("--db (or HOSTIP_DB) is required for history operations")
	case ops == 1:
		return nil
	}

	switch len(a.Targets) {
	case 0:
		return errors.New("a URL or hostname is required")
	case 1:
		return nil
	}
	return fmt.Errorf("expected exactly one URL or hostname, got %d", len(a.Targets))
}

func (a *cliArgs) family() lookup.Family {
	switch {
	case a.IPv4:
		return lookup.IPv4
	case a.IPv6:
		return lookup.IPv6
	}
	return lookup.AnyFamily
}

var isVerbose bool

func verbose(msg string) {
	if isVerbose {
		log.Print(msg)
	}
}

func verbosef(fmt string, parts ...interface{}) {
	if isVerbose {
		log.Printf(fmt, parts...)
	}
}

var (
	errorColor            = color.New(color.FgRed, color.Bold)
	errorOutput io.Writer = os.Stderr
)

func errorf(fmt string, parts ...interface{}) {
	if !strings.HasSuffix(fmt, "\n") {
		fmt += "\n"
	}
	errorColor.Fprintf(errorOutput, fmt, parts...)
}

// colorize turns on colored errors only when they go to a terminal
func colorize(w io.Writer) {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) && os.Getenv("NO_COLOR") == "" {
		errorColor.EnableColor()
	} else {
		errorColor.DisableColor()
	}
}

// formatOutput renders one address per line
func formatOutput(ips []net.IP) string {
	var b strings.Builder
	for _, ip := range ips {
		b.WriteString(ip.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// exitCode maps an error returned by execute to the process exit status
func exitCode(err error) int {
	var invalidErr *hostname.InvalidError
	var lookupErr *lookup.Error
	if errors.As(err, &invalidErr) || errors.As(err, &lookupErr) {
		return exitResolution
	}
	return exitFailure
}

// describe prefixes lookup errors so a missing host reads differently from a failed lookup
func describe(err error) string {
	var lookupErr *lookup.Error
	if !errors.As(err, &lookupErr) {
		return err.Error()
	}
	if lookupErr.NotFound() {
		return "host not found: " + err.Error()
	}
	return "lookup failed: " + err.Error()
}

func lookupTarget(ctx context.Context, args *cliArgs, stdout io.Writer, resolver lookup.Resolver) error {
	target := args.Targets[0]
	host, err := hostname.Normalize(target)
	if err != nil {
		return err
	}
	if host != target {
		verbosef("normalized %q to %v", target, host)
	}

	if isVerbose {
		servers, err := lookup.SystemNameservers(lookup.DefaultResolvConf)
		if err != nil {
			verbosef("could not list system nameservers: %v", err)
		} else {
			verbosef("system resolver uses nameservers %v", strings.Join(servers, ", "))
		}
	}

	verbosef("resolving %v (%v addresses)...", host, args.family())
	ips, err := lookup.Resolve(ctx, resolver, host, args.family())
	if err != nil {
		return err
	}
	verbosef("resolved %v to %v", host, ips)

	fmt.Fprint(stdout, formatOutput(ips))

	if args.DB == "" {
		return nil
	}

	var addrs []string
	for _, ip := range ips {
		addrs = append(addrs, ip.String())
	}
	return withStore(args.DB, func(store *history.Store) error {
		if err := store.Record(ctx, host, addrs); err != nil {
			return err
		}
		verbosef("recorded %d addresses in %v", len(addrs), args.DB)
		return nil
	})
}

func execute(ctx context.Context, args *cliArgs, stdout io.Writer, resolver lookup.Resolver) error {
	switch {
	case args.History:
		return withStore(args.DB, func(store *history.Store) error {
			return showHistory(ctx, store, stdout)
		})
	case args.Delete != nil:
		return withStore(args.DB, func(store *history.Store) error {
			return deleteRecord(ctx, store, *args.Delete, stdout)
		})
	case args.Clear:
		return withStore(args.DB, func(store *history.Store) error {
			return clearHistory(ctx, store, stdout)
		})
	}
	return lookupTarget(ctx, args, stdout, resolver)
}

// run parses argv, does the requested work and returns the exit status
func run(ctx context.Context, argv []string, stdout, stderr io.Writer, resolver lookup.Resolver) (code int) {
	log.SetOutput(stderr)
	log.SetFlags(0)
	errorOutput = stderr
	colorize(stderr)
	defer handlePanic(&code)

	var args cliArgs
	p, err := arg.NewParser(arg.Config{Program: "hostip"}, &args)
	if err != nil {
		errorf("error building argument parser: %v", err)
		return exitFailure
	}

	err = p.Parse(argv)
	switch {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(stdout)
		return exitOK
	case errors.Is(err, arg.ErrVersion):
		fmt.Fprintln(stdout, args.Version())
		return exitOK
	case err == nil:
		err = args.validate()
	}
	if err != nil {
		p.WriteUsage(stderr)
		errorf("error: %v", err)
		return exitUsage
	}

	isVerbose = args.Verbose
	defer func() { isVerbose = false }()

	err = execute(ctx, &args, stdout, resolver)
	if err != nil {
		errorf("%s", describe(err))
		return exitCode(err)
	}
	return exitOK
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, net.DefaultResolver))
}
