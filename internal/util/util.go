// Package util provides content hashing and resume front matter parsing.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"
)

var ErrNoFrontMatter = errors.New("invalid front matter format")

// FrontMatter is the optional TOML block at the top of a resume, delimited by
// "%%%" lines:
//
//	%%%
//	title = "Backend Engineer"
//	author = "Jane Doe"
//	tags = ["go", "postgres"]
//	%%%
type FrontMatter struct {
	Title    string   `toml:"title"`
	Author   string   `toml:"author"`
	Tags     []string `toml:"tags"`
	Language string   `toml:"language"`

	// Number of bytes of the normalized, left-trimmed input taken by the block.
	Consumed int `toml:"-"`
}

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

func GetFrontMatter(md []byte) (*FrontMatter, error) {
	md = normalize(md)

	delimiter := []byte("%%%")

	if len(md) < 2*len(delimiter) {
		return nil, ErrNoFrontMatter
	}

	first := bytes.Index(md[:len(delimiter)+1], delimiter)
	if first == -1 {
		return nil, ErrNoFrontMatter
	}

	second := bytes.Index(md[first+len(delimiter):], delimiter)
	if second == -1 {
		return nil, ErrNoFrontMatter
	}

	end := second + 2*len(delimiter) + 1
	if end > len(md) {
		return nil, ErrNoFrontMatter
	}

	frontMatter := md[len(delimiter) : end-len(delimiter)-1]

	info := &FrontMatter{}
	if _, err := toml.Decode(string(frontMatter), info); err != nil {
		return nil, fmt.Errorf("failed to decode front matter: %w", err)
	}

	if info.Language == "" {
		info.Language = "en"
	}

	tags := info.Tags[:0]
	for _, tag := range info.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	info.Tags = tags

	info.Consumed = end
	return info, nil
}

// StripFrontMatter returns the markdown body without its front matter block.
// Input without a valid block is returned unchanged.
func StripFrontMatter(md []byte) []byte {
	info, err := GetFrontMatter(md)
	if err != nil {
		return md
	}
	return normalize(md)[info.Consumed:]
}

func normalize(md []byte) []byte {
	md = markdown.NormalizeNewlines(md)
	return bytes.TrimLeft(md, "\n \t\r")
}
