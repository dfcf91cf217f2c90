package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// route is one method on one path, as "GET /articles".
type route struct {
	method, path string
}

func (r route) String() string { return strings.ToUpper(r.method) + " " + r.path }

// contract is what clients can rely on: the documented paths, the routes
// under them and the status codes each route documents.
type contract struct {
	paths  map[string]bool
	routes map[route][]string
}

func isOperation(key string) bool {
	switch key {
	case "get", "put", "post", "delete", "patch", "head", "options":
		return true
	}
	return false
}

// parseSpec reads a Swagger 2 or OpenAPI 3 document in YAML or JSON. Path
// level keys such as parameters are ignored.
func parseSpec(raw []byte) (contract, error) {
	var doc struct {
		Paths map[string]map[string]yaml.Node `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return contract{}, err
	}
	if doc.Paths == nil {
		return contract{}, errors.New("document has no paths")
	}

	c := contract{paths: make(map[string]bool), routes: make(map[route][]string)}
	for path, entries := range doc.Paths {
		for key, node := range entries {
			method := strings.ToLower(strings.TrimSpace(key))
			if !isOperation(method) {
				continue
			}
			var op struct {
				Responses map[string]yaml.Node `yaml:"responses"`
			}
			if err := node.Decode(&op); err != nil {
				return contract{}, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}
			codes := make([]string, 0, len(op.Responses))
			for code := range op.Responses {
				codes = append(codes, strings.ToUpper(strings.TrimSpace(code)))
			}
			c.paths[path] = true
			c.routes[route{method, path}] = codes
		}
	}
	return c, nil
}

// compare lists what base offers that revision no longer does, sorted.
func compare(base, revision contract) []string {
	var issues []string
	for path := range base.paths {
		if !revision.paths[path] {
			issues = append(issues, "removed path: "+path)
		}
	}
	for r, codes := range base.routes {
		if !revision.paths[r.path] {
			continue
		}
		kept, ok := revision.routes[r]
		if !ok {
			issues = append(issues, "removed operation: "+r.String())
			continue
		}
		for _, code := range codes {
			if !slices.Contains(kept, code) {
				issues = append(issues, fmt.Sprintf("removed response code: %s -> %s", r, code))
			}
		}
	}
	slices.Sort(issues)
	return issues
}
