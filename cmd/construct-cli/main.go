// Command construct-cli parses or builds binary data against one of a
// small set of built-in format descriptions: a Go-composed Construct
// tree rather than an external schema file, so there is no schema path
// argument.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
)

func main() {
	var (
		mode   = flag.String("mode", "parse", "parse or build")
		format = flag.String("format", "tlv", "built-in format name: tlv")
		inPath = flag.String("in", "-", "input file, or - for stdin")
		debug  = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	spec, ok := formats[*format]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown format %q (known: %s)\n", *format, knownFormats())
		os.Exit(1)
	}

	data, err := readInput(*inPath)
	if err != nil {
		logger.Error("reading input", "error", err)
		os.Exit(1)
	}

	switch *mode {
	case "parse":
		if err := runParse(spec, data); err != nil {
			logger.Error("parse failed", "error", err)
			os.Exit(1)
		}
	case "build":
		if err := runBuild(spec, data); err != nil {
			logger.Error("build failed", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want parse or build)\n", *mode)
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return readAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func readAll(f *os.File) ([]byte, error) {
	buf, err := io.ReadAll(f)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf, nil
}

// runParse decodes data through spec and prints the result as JSON.
func runParse(spec construct.Construct, data []byte) error {
	v, err := construct.Parse(spec, data)
	if err != nil {
		return err
	}
	out := toJSONable(v)
	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}

// runBuild expects data to already be JSON (the inverse of runParse),
// decodes it into a Container, and writes the resulting bytes to
// stdout. runParse prints byte fields as hex, so every string value
// that is valid hex is decoded back into a []byte.
func runBuild(spec construct.Construct, data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("input is not valid JSON: %w", err)
	}
	obj := container.New()
	for k, v := range m {
		if str, ok := v.(string); ok {
			if b, err := hex.DecodeString(str); err == nil {
				v = b
			}
		}
		obj.Set(k, v)
	}
	built, err := construct.Build(spec, obj)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(built)
	return err
}

func toJSONable(v any) any {
	switch x := v.(type) {
	case *container.Container:
		m := make(map[string]any, len(x.Keys()))
		for _, k := range x.Keys() {
			fv, _ := x.Get(k)
			m[k] = toJSONable(fv)
		}
		return m
	case *container.ListContainer:
		out := make([]any, len(x.Items))
		for i, it := range x.Items {
			out[i] = toJSONable(it)
		}
		return out
	case []byte:
		return fmt.Sprintf("%x", x)
	default:
		return x
	}
}

func knownFormats() string {
	names := make([]string, 0, len(formats))
	for k := range formats {
		names = append(names, k)
	}
	return fmt.Sprint(names)
}
