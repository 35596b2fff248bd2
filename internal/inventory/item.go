package inventory

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// itemNamespace scopes name-based item UUIDs so they never collide with
// identifiers minted elsewhere.
var itemNamespace = uuid.MustParse("6f1c8a52-2d0e-5b7a-9c33-1e0f4b8d2a61")

// Item is one scanned icon file. Items are immutable after NewItem.
type Item struct {
	ID          string
	DisplayName string
	Path        string
	// RelPath is the slash-separated path below the scan root.
	RelPath string
	Content []byte
	Size    int64
	Digest  string
}

// NewItem derives identity fields from the scan-relative path and content.
// relPath falls back to displayName when empty.
func NewItem(displayName, path, relPath string, content []byte) Item {
	if relPath == "" {
		relPath = displayName
	}
	return Item{
		ID:          ItemID(relPath, content),
		DisplayName: displayName,
		Path:        path,
		RelPath:     relPath,
		Content:     content,
		Size:        int64(len(content)),
		Digest:      Digest(content),
	}
}

// ItemID is a version 5 UUID over name and content. Renaming a file or
// editing it yields a new ID; re-scanning an unchanged tree does not. The
// name is the scan-relative path so equal files in sibling folders stay
// distinct.
func ItemID(name string, content []byte) string {
	data := make([]byte, 0, len(name)+1+len(content))
	data = append(data, name...)
	data = append(data, 0)
	data = append(data, content...)
	return uuid.NewSHA1(itemNamespace, data).String()
}

// Digest returns the lowercase hex SHA-256 of content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Index maps item IDs to positions in items.
func Index(items []Item) map[string]int {
	out := make(map[string]int, len(items))
	for i, item := range items {
		out[item.ID] = i
	}
	return out
}
