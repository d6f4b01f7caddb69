// Package media normalizes NFT image URLs and proxies image bytes for
// hosts that browsers cannot load directly.
package media

import (
	"path"
	"strings"
)

const (
	ipfsGateway    = "https://ipfs.io/ipfs/"
	arweaveGateway = "https://arweave.net"
)

// CleanImageURL rewrites storage-scheme and relative URLs to HTTPS gateways.
// Empty input yields empty output; other URLs are returned unchanged.
func CleanImageURL(raw string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "ipfs://"):
		return ipfsGateway + strings.TrimPrefix(raw, "ipfs://")
	case strings.HasPrefix(raw, "ar://"):
		return arweaveGateway + "/" + strings.TrimPrefix(raw, "ar://")
	case strings.HasPrefix(raw, "/"):
		return arweaveGateway + raw
	default:
		return raw
	}
}

// ArweavePath builds a gateway URL from a bare Arweave transaction path.
func ArweavePath(p string) string {
	return arweaveGateway + "/" + strings.TrimPrefix(p, "/")
}

var imageMIMETypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// IsImageFile reports whether a metadata file entry looks like a still
// image, either by declared MIME type or by URI extension.
func IsImageFile(uri, mimeType string) bool {
	if imageMIMETypes[strings.ToLower(mimeType)] {
		return true
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(uri, ext) {
			return true
		}
	}
	return false
}

var contentTypesByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// ContentType picks the response content type: the upstream header when it
// names an image, else one inferred from the URL extension, else image/jpeg.
func ContentType(header, rawURL string) string {
	if strings.HasPrefix(header, "image/") {
		return header
	}
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if ct, ok := contentTypesByExt[strings.ToLower(path.Ext(u))]; ok {
		return ct
	}
	return "image/jpeg"
}
