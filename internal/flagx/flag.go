// Package flagx lets several flag sets share one command line.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// ConfigEnv names the environment variable consulted by ConfigPath when no
// config flag is given.
const ConfigEnv = "DONORLINK_CONFIG"

// Filter returns the subset of args that belongs to the named flags, in
// order, together with their values. Names are given without dashes and
// match both the -name and --name spellings, as "-name value" or
// "-name=value". A separate value is taken only if it does not start with
// a dash. Filtering stops at a bare "--".
func Filter(args []string, names ...string) []string {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	out := []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name, hasValue := flagName(arg)
		if !known[name] {
			continue
		}
		out = append(out, arg)
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, args[i])
		}
	}
	return out
}

// flagName strips the leading dashes of arg and any "=value" suffix.
// Arguments that are not flags yield "".
func flagName(arg string) (name string, hasValue bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", false
	}
	name = strings.TrimLeft(arg, "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		return name[:i], true
	}
	return name, false
}

// ConfigPath returns the JSON config file named by -c or -config in args,
// the last one winning. Without either flag it falls back to ConfigEnv.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(Filter(args, "c", "config"))

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	return path
}
