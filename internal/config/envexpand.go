package config

import "os"

// expandEnv expands ${VAR} and $VAR references in YAML content using the
// standard library, exactly as the teacher's pkg/config.ExpandEnv does.
// Missing variables expand to empty string; validation catches any
// required field left empty by a missing variable.
func expandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
