package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// packageJSONCodec handles the top-level "version" field of package.json.
type packageJSONCodec struct{}

func (packageJSONCodec) read(data []byte) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: failed to parse %s as a JSON object: %w", domain.ErrProject, PackageFile, err)
	}

	raw, ok := doc["version"]
	if !ok {
		return "", fmt.Errorf("%w: could not find top-level 'version' string in %s", domain.ErrProject, PackageFile)
	}

	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return "", fmt.Errorf("%w: could not find top-level 'version' string in %s", domain.ErrProject, PackageFile)
	}
	return version, nil
}

// replace swaps the bytes of the top-level version value, leaving indentation and key order untouched.
func (c packageJSONCodec) replace(data []byte, version string) ([]byte, error) {
	if _, err := c.read(data); err != nil {
		return nil, err
	}

	start, end, err := topLevelValueSpan(data, "version")
	if err != nil {
		return nil, err
	}

	quoted, err := json.Marshal(version)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode version %q: %w", domain.ErrProject, version, err)
	}

	updated := make([]byte, 0, len(data)-(end-start)+len(quoted))
	updated = append(updated, data[:start]...)
	updated = append(updated, quoted...)
	updated = append(updated, data[end:]...)
	return updated, nil
}

// topLevelValueSpan returns the byte offsets of the value of key in the root object.
// When the key repeats, the last occurrence wins, as it does for json.Unmarshal.
func topLevelValueSpan(data []byte, key string) (int, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: failed to parse %s: %w", domain.ErrProject, PackageFile, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return 0, 0, fmt.Errorf("%w: %s root is not a JSON object", domain.ErrProject, PackageFile)
	}

	var (
		start, end = -1, -1
		value      json.RawMessage
	)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return 0, 0, fmt.Errorf("%w: failed to parse %s: %w", domain.ErrProject, PackageFile, err)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return 0, 0, fmt.Errorf("%w: failed to parse %s: %w", domain.ErrProject, PackageFile, err)
		}

		if name, _ := keyTok.(string); name == key {
			end = int(dec.InputOffset())
			start = end - len(raw)
			value = raw
		}
	}

	if start < 0 || !bytes.Equal(data[start:end], value) {
		return 0, 0, fmt.Errorf("%w: could not find top-level '%s' string in %s", domain.ErrProject, key, PackageFile)
	}
	if data[start] != '"' {
		return 0, 0, fmt.Errorf("%w: top-level '%s' in %s is not a string", domain.ErrProject, key, PackageFile)
	}
	return start, end, nil
}
