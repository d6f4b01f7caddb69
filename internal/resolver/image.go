package resolver

import (
	"encoding/json"

	"hypeflow/internal/media"
)

// OffChainJSON is the subset of the Metaplex JSON standard the resolver reads.
type OffChainJSON struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	URI         string      `json:"uri"`
	Properties  *Properties `json:"properties"`
}

// Properties is the "properties" object of the JSON standard.
type Properties struct {
	Files []File `json:"files"`
	Image string `json:"image"`
}

// File is one "properties.files" entry. Some collections use url instead of uri.
type File struct {
	URI  string `json:"uri"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// UnmarshalJSON ignores entries that are not objects, such as bare strings.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw struct {
		Files []json.RawMessage `json:"files"`
		Image string            `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Image = raw.Image
	p.Files = p.Files[:0]
	for _, entry := range raw.Files {
		var f File
		if json.Unmarshal(entry, &f) == nil {
			p.Files = append(p.Files, f)
		}
	}
	return nil
}

// imageStrategy returns a raw image reference, or "" to defer to the next one.
type imageStrategy func(doc *OffChainJSON) string

var imageStrategies = []imageStrategy{
	func(doc *OffChainJSON) string { return doc.Image },
	func(doc *OffChainJSON) string {
		if doc.Properties == nil {
			return ""
		}
		for _, f := range doc.Properties.Files {
			uri := f.URI
			if uri == "" {
				uri = f.URL
			}
			if uri != "" && media.IsImageFile(uri, f.Type) {
				return uri
			}
		}
		return ""
	},
	func(doc *OffChainJSON) string {
		if doc.Properties == nil {
			return ""
		}
		return doc.Properties.Image
	},
	func(doc *OffChainJSON) string {
		if doc.URI == "" {
			return ""
		}
		return media.ArweavePath(doc.URI)
	},
}

// ExtractImage runs the image strategies in order and returns the first
// hit, cleaned to an HTTPS URL. Empty when no strategy matches.
func ExtractImage(doc *OffChainJSON) string {
	if doc == nil {
		return ""
	}
	for _, strategy := range imageStrategies {
		if raw := strategy(doc); raw != "" {
			return media.CleanImageURL(raw)
		}
	}
	return ""
}
