package identity

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"countdowntodo-sync/internal/models"
)

// mappingFile is the on-disk layout of a seed file:
//
//	mappings:
//	  - app_id: com.tencent.mm
//	    canonical_name: WeChat
//	    category: Social
type mappingFile struct {
	Mappings []models.IdentityMapping `yaml:"mappings" toml:"mappings"`
}

// LoadFile parses a YAML (.yaml, .yml) or TOML (.toml) seed file.
func LoadFile(path string) ([]models.IdentityMapping, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(filepath.Ext(path), b)
}

func Parse(ext string, b []byte) ([]models.IdentityMapping, error) {
	var f mappingFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode yaml mappings: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(b), &f)
		if err != nil {
			return nil, fmt.Errorf("decode toml mappings: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode toml mappings: unknown key %s", undecoded[0])
		}
	default:
		return nil, fmt.Errorf("unsupported mapping file type %q", ext)
	}
	return Validate(f.Mappings)
}

// Validate trims every entry and rejects blank or duplicated identifiers.
func Validate(ms []models.IdentityMapping) ([]models.IdentityMapping, error) {
	seen := make(map[string]struct{}, len(ms))
	out := make([]models.IdentityMapping, 0, len(ms))
	for i, m := range ms {
		m.AppID = strings.TrimSpace(m.AppID)
		m.CanonicalName = strings.TrimSpace(m.CanonicalName)
		m.Category = strings.TrimSpace(m.Category)
		if m.AppID == "" {
			return nil, fmt.Errorf("mapping %d: app_id is required", i)
		}
		if m.CanonicalName == "" {
			return nil, fmt.Errorf("mapping %q: canonical_name is required", m.AppID)
		}
		if m.Category == "" {
			m.Category = models.Unclassified
		}
		if _, dup := seen[m.AppID]; dup {
			return nil, fmt.Errorf("mapping %q: duplicate app_id", m.AppID)
		}
		seen[m.AppID] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}
