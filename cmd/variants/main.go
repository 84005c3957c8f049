package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	c := &cli{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	code := c.run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}

// cli holds the process streams so commands can be tested.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// interactive is true when stdin is a terminal
	interactive bool
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage(c.stderr)
		return 1
	}

	command, rest := args[0], args[1:]
	switch command {
	case "add":
		return c.add(ctx, rest)
	case "remove":
		return c.remove(ctx, rest)
	case "inspect":
		return c.inspect(rest)
	case "version":
		return c.version()
	case "help", "-h", "--help":
		printUsage(c.stdout)
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(c.stderr)
		return 1
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Image Variants")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: variants <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  add     -name NAME -sizes xs,sm [-original] FILE   Store variants of FILE")
	fmt.Fprintln(w, "  remove  -name NAME -sizes xs,sm [-original] [-y]   Delete stored variants")
	fmt.Fprintln(w, "  inspect FILE                                       Print image geometry")
	fmt.Fprintln(w, "  version                                            Print build information")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  STORAGE_DIR, STAGING_DIR, JPEG_QUALITY, JPEG_INTERLACE, CODEC_BACKEND,")
	fmt.Fprintln(w, "  VARIANT_WORKERS, RETAIN_UNCROPPED_UPLOAD, MAX_IMAGE_PIXELS,")
	fmt.Fprintln(w, "  METRICS_TEXTFILE, LOG_LEVEL")
}
