package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ALH477/CREATE-IDTECH4-PROJECT/internal/sdb"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		exitIfErr(err)
	}
}

func exitIfErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func run(args []string) error {
	fs := flag.NewFlagSet("sdbpack", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: sdbpack [OPTIONS] INPUT_DIR OUTPUT.sdb\n")
		fs.PrintDefaults()
	}

	var (
		compress    = fs.Bool("compress", true, "Compress page payloads with Snappy")
		excludeDirs = fs.String("exclude-dirs", ".git,__pycache__,.DS_Store", "Comma-separated directory names to skip")
		excludeExts = fs.String("exclude-exts", ".bak,.tmp,.log", "Comma-separated file extensions to skip")
		resolve     = fs.String("resolve", "", "After packing, resolve this logical path and print its document ID")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("sdbpack: expected INPUT_DIR and OUTPUT.sdb")
	}
	inputDir := fs.Arg(0)
	outputPath := fs.Arg(1)

	opts := sdb.IngestOptions{
		UseCompression: *compress,
		ExcludeDirs:    splitCSV(*excludeDirs),
		ExcludeExts:    splitCSV(*excludeExts),
	}

	if err := sdb.PackDirectory(inputDir, opts, outputPath); err != nil {
		return fmt.Errorf("packing %s into %s: %w", inputDir, outputPath, err)
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", outputPath)

	if *resolve == "" {
		return nil
	}
	rc, err := sdb.OpenRead(outputPath, sdb.Options{UseCompression: *compress})
	if err != nil {
		return fmt.Errorf("reopening %s: %w", outputPath, err)
	}
	defer rc.Close()

	id, found, err := rc.Resolve(*resolve)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", *resolve, err)
	}
	if !found {
		return fmt.Errorf("no document for path %s", *resolve)
	}
	fmt.Fprintf(os.Stdout, "%s -> %s\n", *resolve, id)
	return nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
