package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

var (
	// tomlHeader matches a table or array-of-tables header line.
	tomlHeader = regexp.MustCompile(`^\s*(\[\[?)\s*([^\[\]]+?)\s*\]\]?\s*(#.*)?$`)

	// tomlVersion matches `version = "..."` and captures the key part, the quoted value and the rest.
	tomlVersion = regexp.MustCompile(`^(\s*version\s*=\s*)("(?:[^"\\]|\\.)*"|'[^']*')(.*)$`)
)

// cargoCodec handles the [package].version field of Cargo.toml.
type cargoCodec struct{}

func (cargoCodec) read(data []byte) (string, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: failed to parse %s: %w", domain.ErrProject, CargoFile, err)
	}

	pkg, ok := doc["package"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: could not find '[package].version' string in %s", domain.ErrProject, CargoFile)
	}
	version, ok := pkg["version"].(string)
	if !ok {
		return "", fmt.Errorf("%w: could not find '[package].version' string in %s", domain.ErrProject, CargoFile)
	}
	return version, nil
}

// replace rewrites the version line inside the [package] table, keeping its quoting and any
// trailing comment. The result is parsed again to confirm the new value landed.
func (c cargoCodec) replace(data []byte, version string) ([]byte, error) {
	if _, err := c.read(data); err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	section := ""
	replaced := false

	for i, line := range lines {
		if m := tomlHeader.FindStringSubmatch(line); m != nil {
			section = ""
			if m[1] == "[" {
				section = m[2]
			}
			continue
		}
		if section != "package" {
			continue
		}

		m := tomlVersion.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		quote := m[2][:1]
		lines[i] = m[1] + quote + version + quote + m[3]
		replaced = true
		break
	}

	if !replaced {
		return nil, fmt.Errorf("%w: could not locate the [package] version line in %s for an in-place update",
			domain.ErrProject, CargoFile)
	}

	updated := []byte(strings.Join(lines, "\n"))
	got, err := c.read(updated)
	if err != nil {
		return nil, err
	}
	if got != version {
		return nil, fmt.Errorf("%w: in-place update of %s produced version %q, expected %q",
			domain.ErrProject, CargoFile, got, version)
	}
	return updated, nil
}
