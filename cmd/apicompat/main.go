// Package main checks that the API documentation stays backward compatible
// with the RealWorld contract, or with a previously published document.
package main

import (
	_ "embed"
	"flag"
	"fmt"
	"os"
	"strings"

	"conduit/docs"
)

//go:embed realworld.yml
var realWorldBaseline []byte

func main() {
	basePath := flag.String("base", "", "baseline OpenAPI document (default: the RealWorld contract)")
	revisionPath := flag.String("revision", "", "revision OpenAPI document (default: the compiled-in swagger doc)")
	flag.Parse()

	baseRaw := realWorldBaseline
	if strings.TrimSpace(*basePath) != "" {
		var err error
		if baseRaw, err = readFile(*basePath); err != nil {
			fail("failed to read base spec: %v", err)
		}
	}

	revisionRaw := []byte(docs.SwaggerInfo.ReadDoc())
	if strings.TrimSpace(*revisionPath) != "" {
		var err error
		if revisionRaw, err = readFile(*revisionPath); err != nil {
			fail("failed to read revision spec: %v", err)
		}
	}

	baseSpec, err := parseSpec(baseRaw)
	if err != nil {
		fail("failed to load base spec: %v", err)
	}
	revisionSpec, err := parseSpec(revisionRaw)
	if err != nil {
		fail("failed to load revision spec: %v", err)
	}

	issues := compare(baseSpec, revisionSpec)
	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}

	fmt.Printf("api compatibility check passed (%d paths)\n", len(baseSpec.paths))
}

func readFile(path string) ([]byte, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	return os.ReadFile(path)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
