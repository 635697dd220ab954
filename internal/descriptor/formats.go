package descriptor

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/tidwall/jsonc"
	"sigs.k8s.io/yaml"
)

func parseYAML(_ string, data []byte) ([]byte, error) {
	out, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return out, nil
}

// parseJSONC accepts plain JSON as well as JSON with comments and trailing
// commas.
func parseJSONC(_ string, data []byte) ([]byte, error) {
	return jsonc.ToJSON(data), nil
}

// parseCUE evaluates a CUE file. The whole file is the descriptor and must
// be concrete; definitions and hidden fields are dropped from the output.
func parseCUE(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("evaluating CUE: %w", err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("exporting CUE: %w", err)
	}
	return out, nil
}
