// Package main checks that the generated API docs stay backward compatible
// with a previously published swagger document.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "stackit/docs"

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":    {},
	"put":    {},
	"post":   {},
	"delete": {},
	"patch":  {},
}

type operation struct {
	Responses map[string]struct{}
	Params    map[string]bool
}

type apiDoc struct {
	Paths map[string]map[string]operation
}

func main() {
	basePath := flag.String("base", "", "published swagger document (yaml or json)")
	revisionPath := flag.String("revision", "", "revision swagger document; defaults to the docs compiled into this binary")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(os.Stderr, "usage: apicompat -base <path> [-revision <path>]")
		os.Exit(2)
	}

	base, err := loadFile(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base doc: %v\n", err)
		os.Exit(1)
	}

	var revision apiDoc
	if *revisionPath != "" {
		revision, err = loadFile(*revisionPath)
	} else {
		var raw string
		if raw, err = swag.ReadDoc(); err == nil {
			revision, err = parseDoc([]byte(raw))
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load revision doc: %v\n", err)
		os.Exit(1)
	}

	issues := compare(base, revision)
	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}

	fmt.Printf("api compatibility check passed (%d paths)\n", len(base.Paths))
}

func loadFile(path string) (apiDoc, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return apiDoc{}, err
	}
	return parseDoc(raw)
}

// parseDoc reads a swagger 2.0 document. JSON is valid YAML, so both encodings work.
func parseDoc(raw []byte) (apiDoc, error) {
	var doc struct {
		Paths map[string]map[string]struct {
			Responses  map[string]any `yaml:"responses"`
			Parameters []struct {
				Name     string `yaml:"name"`
				In       string `yaml:"in"`
				Required bool   `yaml:"required"`
			} `yaml:"parameters"`
		} `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return apiDoc{}, err
	}
	if doc.Paths == nil {
		return apiDoc{}, errors.New("missing top-level paths field")
	}

	out := apiDoc{Paths: make(map[string]map[string]operation, len(doc.Paths))}
	for path, methods := range doc.Paths {
		ops := make(map[string]operation)
		for method, entry := range methods {
			method = strings.ToLower(strings.TrimSpace(method))
			if _, ok := supportedMethods[method]; !ok {
				continue
			}
			op := operation{
				Responses: make(map[string]struct{}, len(entry.Responses)),
				Params:    make(map[string]bool, len(entry.Parameters)),
			}
			for code := range entry.Responses {
				op.Responses[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
			}
			for _, p := range entry.Parameters {
				op.Params[p.In+":"+p.Name] = p.Required
			}
			ops[method] = op
		}
		if len(ops) > 0 {
			out.Paths[path] = ops
		}
	}
	return out, nil
}

// compare lists the changes in revision that would break a client of base:
// removed paths, operations or response codes, and parameters that became
// required.
func compare(base, revision apiDoc) []string {
	var issues []string

	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, fmt.Sprintf("removed path: %s", path))
			continue
		}

		for method, baseOp := range baseOps {
			op := strings.ToUpper(method) + " " + path
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s", op))
				continue
			}

			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s -> %s", op, strings.ToUpper(code)))
				}
			}
			for param, required := range revOp.Params {
				wasRequired, existed := baseOp.Params[param]
				if required && (!existed || !wasRequired) {
					issues = append(issues, fmt.Sprintf("new required parameter: %s -> %s", op, param))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}
