package extension

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dop251/goja"
	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/errors"
)

// entrypoints are the filenames checked, in order, for an extension's main
// module (§4.4: extensions are authored in TypeScript or JavaScript).
var entrypoints = []string{"main.ts", "main.tsx", "main.mts", "main.cts", "main.js", "main.mjs"}

// moduleSpecifier is the synthetic import extensions use to reach the host
// API, mirroring the `phylum` module name the original Deno runtime
// resolved to its own injected object.
const moduleSpecifier = "phylum"

// Runtime is one execution of an installed extension: a goja VM seeded
// with the `require("phylum")` host API and the extension's own argv.
type Runtime struct {
	vm   *goja.Runtime
	dir  string
	name string
}

// NewRuntime builds a Runtime for the extension installed at dir, wiring
// its manifest-declared permissions, the shared API client, and the CLI
// arguments passed after `phylum <name>`.
func NewRuntime(dir string, manifest *Manifest, apiClient APIClient, tokens Tokens, args []string) *Runtime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	phylum := newHostAPIObject(vm, manifest.Permissions, apiClient, tokens, args)

	// A minimal CommonJS shim: esbuild transpiles extension source to
	// CommonJS, so `require("phylum")` resolves here and nothing else is
	// importable. Extensions are single-entrypoint (§4.4), so this is the
	// full module graph the engine needs to support.
	require := func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).String()
		if spec != moduleSpecifier {
			panic(vm.NewTypeError("unresolvable import: " + spec))
		}
		return phylum
	}
	_ = vm.Set("require", require)

	return &Runtime{vm: vm, dir: dir, name: manifest.Name}
}

// Run locates, transpiles, and executes the extension's entrypoint. A
// thrown or denied host-API call surfaces as the returned error (§4.4:
// denied operations are never retried).
func (r *Runtime) Run(ctx context.Context) (err error) {
	entry, src, err := r.loadEntrypoint()
	if err != nil {
		return err
	}

	js, err := transpile(entry, src)
	if err != nil {
		return errors.Wrapf(err, "transpiling %s", entry)
	}

	program, err := goja.Compile(entry, js, false)
	if err != nil {
		return errors.Wrapf(err, "compiling %s", entry)
	}

	defer func() {
		if p := recover(); p != nil {
			if gojaErr, ok := p.(*goja.Exception); ok {
				err = errors.Errorf("extension %s: %s", r.name, gojaErr.Error())
				return
			}
			panic(p)
		}
	}()

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		_, runErr = r.vm.RunProgram(program)
	}()

	select {
	case <-ctx.Done():
		r.vm.Interrupt("cancelled")
		<-done
		return ctx.Err()
	case <-done:
		return runErr
	}
}

func (r *Runtime) loadEntrypoint() (path string, content []byte, err error) {
	for _, name := range entrypoints {
		candidate := filepath.Join(r.dir, name)
		data, readErr := os.ReadFile(candidate)
		if readErr == nil {
			return candidate, data, nil
		}
	}
	return "", nil, errors.Errorf("extension %s: no entrypoint (%v) found in %s", r.name, entrypoints, r.dir)
}

// transpile compiles TypeScript/modern JS down to CommonJS-flavored ES5+
// via esbuild, the same tool the original Rust runtime used for type
// stripping before handing source to its JS engine.
func transpile(path string, src []byte) (string, error) {
	loader := esbuild.LoaderJS
	switch filepath.Ext(path) {
	case ".ts", ".mts", ".cts":
		loader = esbuild.LoaderTS
	case ".tsx":
		loader = esbuild.LoaderTSX
	}

	result := esbuild.Transform(string(src), esbuild.TransformOptions{
		Loader:     loader,
		Format:     esbuild.FormatCommonJS,
		Target:     esbuild.ES2020,
		Sourcefile: path,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			msgs = append(msgs, m.Text)
		}
		return "", errors.New(joinMessages(msgs))
	}
	return string(result.Code), nil
}

func joinMessages(msgs []string) string {
	out := ""
	for i, m := range msgs {
		if i > 0 {
			out += "; "
		}
		out += m
	}
	return out
}
