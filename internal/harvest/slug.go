package harvest

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"sync"
)

const maxSlugLen = 100

// Slug derives the deterministic, filesystem-safe persistence key for a URL.
// It is total: every input yields a slug. Normalization lowercases the scheme
// and host, drops query strings and fragments, trims trailing slashes, and
// keys on the final path segment minus its extension. Runes outside [a-z0-9]
// map to underscores (runs collapse), so unicode segments degrade to their
// ASCII skeleton. Inputs that leave no usable segment, and unparseable
// inputs, fall back to a hash of the normalized string. Oversized slugs are
// truncated with a hash suffix to stay unique.
func Slug(raw string) string {
	normalized := normalize(raw)

	segment := path.Base(normalized)
	if u, err := url.Parse(normalized); err == nil && u.Path != "" {
		segment = path.Base(strings.TrimRight(u.Path, "/"))
	}
	if ext := path.Ext(segment); ext != "" && len(ext) <= 6 {
		segment = strings.TrimSuffix(segment, ext)
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(segment) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	slug := strings.Trim(b.String(), "_")

	if slug == "" || slug == "_" {
		return "u_" + shortHash(normalized)
	}
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen] + "_" + shortHash(normalized)
	}
	return slug
}

func normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// SlugIndex detects slug collisions within one campaign. Claim records the
// URL under its slug and fails if a different URL already owns it.
type SlugIndex struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewSlugIndex returns an empty index.
func NewSlugIndex() *SlugIndex {
	return &SlugIndex{seen: make(map[string]string)}
}

// Claim returns the slug for url, or a SlugCollisionError when another URL
// normalizes to the same slug.
func (ix *SlugIndex) Claim(url string) (string, error) {
	slug := Slug(url)
	norm := normalize(url)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if existing, ok := ix.seen[slug]; ok && existing != norm {
		return "", &SlugCollisionError{Slug: slug, URL: url, Existing: existing}
	}
	ix.seen[slug] = norm
	return slug, nil
}
