// Package resolver assembles the complete configuration record for one set
// of input facts: version, profiles and dependency table.
package resolver

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"jibconf/common"
	"jibconf/deps"
	"jibconf/merge"
	"jibconf/obj"
	"jibconf/profiles"
	"jibconf/version"
)

// ErrFacts is returned when the input facts cannot describe a target.
var ErrFacts = errors.New("invalid input facts")

const (
	FormatVersion = "1.1"
	Product       = "jdk"

	outputBasedir             = "build"
	configurationConfigureArg = "--with-conf-name="
	configurationMakeArg      = "CONF_NAME="
	srcBundleExcludes         = "./build webrev .hg */.hg */*/.hg */*/*/.hg"
	confBundleIncludes        = "*/conf/jib-profiles.* common/autoconf/version-numbers"
)

// Env holds the external collaborators of a resolution.
type Env struct {
	Versions *version.Resolver
	Lookup   obj.Lookup
	Probe    common.BrandProbe
	BuildID  func(obj.Facts) string
	Logger   *slog.Logger

	// VersionOverrides replace the major, minor, security and patch
	// components by position. Empty entries keep the file value.
	VersionOverrides []string
	// Overlays are generic value trees merged onto generated profiles by
	// name with merge.Trees. Unknown names add new profiles.
	Overlays map[string]any
}

// Resolve computes the output record for facts.
func Resolve(facts obj.Facts, env Env) (obj.Output, error) {
	logger := env.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if facts.TargetOS == "" || facts.TargetCPU == "" {
		return obj.Output{}, fmt.Errorf("resolver: %w: target_os and target_cpu are required", ErrFacts)
	}
	if env.Versions == nil {
		return obj.Output{}, fmt.Errorf("resolver: no version-numbers source configured")
	}
	facts = facts.Complete()
	logger.Debug("Resolving profiles.",
		"profile", facts.Profile, "target", facts.TargetPlatform, "build", facts.BuildPlatform)

	v, err := env.Versions.Resolve(env.VersionOverrides...)
	if err != nil {
		return obj.Output{}, fmt.Errorf("resolver: %w", err)
	}
	logger.Debug("Version resolved.", "version", v)

	c, err := common.Build(common.Params{
		Facts:   facts,
		Version: v,
		Lookup:  env.Lookup,
		BuildID: env.BuildID,
		Probe:   env.Probe,
		Logger:  logger,
	})
	if err != nil {
		return obj.Output{}, fmt.Errorf("resolver: %w", err)
	}

	ps, err := profiles.Generate(facts, c, env.Lookup)
	if err != nil {
		return obj.Output{}, fmt.Errorf("resolver: %w", err)
	}
	if len(env.Overlays) > 0 {
		if ps, err = applyOverlays(ps, env.Overlays); err != nil {
			return obj.Output{}, fmt.Errorf("resolver: %w", err)
		}
		logger.Debug("Profile overlays applied.", "count", len(env.Overlays))
	}
	logger.Debug("Profiles generated.", "count", len(ps))

	table, err := deps.Build(facts, c, env.Lookup)
	if err != nil {
		return obj.Output{}, fmt.Errorf("resolver: %w", err)
	}

	return obj.Output{
		FormatVersion:             FormatVersion,
		Organization:              "",
		Product:                   Product,
		Version:                   v,
		OutputBasedir:             outputBasedir,
		ConfigurationConfigureArg: configurationConfigureArg,
		ConfigurationMakeArg:      configurationMakeArg,
		SrcBundleExcludes:         srcBundleExcludes,
		ConfBundleIncludes:        confBundleIncludes,
		Profiles:                  ps,
		Dependencies:              table,
	}, nil
}

// applyOverlays merges each overlay tree onto the generated profile of the
// same name and re-runs the platform and make target passes, since an
// overlay may change either input.
func applyOverlays(ps map[string]obj.Profile, overlays map[string]any) (map[string]obj.Profile, error) {
	names := make([]string, 0, len(overlays))
	for name := range overlays {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]obj.Profile, len(ps)+len(overlays))
	for name, p := range ps {
		out[name] = p
	}
	for _, name := range names {
		var base any
		if p, ok := out[name]; ok {
			tree, err := profiles.ToTree(p)
			if err != nil {
				return nil, err
			}
			base = tree
		}
		merged, err := merge.Trees(base, overlays[name])
		if err != nil {
			return nil, fmt.Errorf("overlay %s: %w", name, err)
		}
		p, err := profiles.FromTree(merged)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: %w", name, err)
		}
		out[name] = p
	}
	return profiles.SynthesizeDefaultMakeTargets(profiles.CompletePlatformAttributes(out)), nil
}

//go:embed output.schema.json
var outputSchema []byte

const schemaURL = "output.schema.json"

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(outputSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// ValidateOutput checks out against the output record schema.
func ValidateOutput(out obj.Output) error {
	sch, err := compiled()
	if err != nil {
		return fmt.Errorf("resolver: compile output schema: %w", err)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("resolver: encode output: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("resolver: decode output: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("resolver: output does not match schema: %w", err)
	}
	return nil
}
