package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EntityType identifies which kind of site entity a media asset belongs to.
type EntityType string

const (
	EntityTraining   EntityType = "training"
	EntityInstructor EntityType = "instructor"
	EntityEvent      EntityType = "event"
)

func (e EntityType) Valid() bool {
	switch e {
	case EntityTraining, EntityInstructor, EntityEvent:
		return true
	}
	return false
}

// MediaType determines per-entity count limits and placement.
// Cover is a singleton per entity.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
	MediaCover MediaType = "cover"
)

func (m MediaType) Valid() bool {
	switch m {
	case MediaPhoto, MediaVideo, MediaCover:
		return true
	}
	return false
}

// EntityRef is the (entityType, entityId) pair media assets attach to.
type EntityRef struct {
	Type EntityType
	ID   int64
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%d", r.Type, r.ID)
}

// Media is one stored asset family attached to an entity.
type Media struct {
	ID           int64      `db:"id" json:"id"`
	EntityType   EntityType `db:"entity_type" json:"entity_type"`
	EntityID     int64      `db:"entity_id" json:"entity_id"`
	MediaType    MediaType  `db:"media_type" json:"media_type"`
	URL          string     `db:"url" json:"url"`
	ThumbnailURL *string    `db:"thumbnail_url" json:"thumbnail_url"`
	OriginalName string     `db:"original_name" json:"original_name"`
	MimeType     string     `db:"mime_type" json:"mime_type"`
	FileSize     int64      `db:"file_size" json:"file_size"`
	Width        *int       `db:"width" json:"width"`
	Height       *int       `db:"height" json:"height"`
	DisplayOrder int        `db:"display_order" json:"display_order"`
	Variants     VariantSet `db:"variants" json:"variants"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Crop is a rectangle in source-pixel coordinates of the original image.
type Crop struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the rectangle should be ignored.
func (c Crop) Empty() bool {
	return c.Width <= 0 || c.Height <= 0
}

// Asset is the leaf descriptor of the variant tree: one physical object in
// storage with its public address.
type Asset struct {
	URL    string `json:"url"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Rendition is a transcoded video output.
type Rendition struct {
	Asset
	Resolution string `json:"resolution"`
	Codec      string `json:"codec"`
}

// VariantSet is the full tree of derived assets for one upload. It is stored
// as JSON alongside the media row and walked only by deletion, which needs
// every storage key the upload produced.
type VariantSet struct {
	Kind       string           `json:"kind,omitempty"` // "image" or "video"
	Original   *Asset           `json:"original,omitempty"`
	Large      *Asset           `json:"large,omitempty"`
	Medium     *Asset           `json:"medium,omitempty"`
	Thumbnail  *Asset           `json:"thumbnail,omitempty"`
	Poster     *Asset           `json:"poster,omitempty"`
	Formats    map[string]Asset `json:"formats,omitempty"`
	Renditions []Rendition      `json:"renditions,omitempty"`
	Duration   float64          `json:"duration,omitempty"` // seconds, video only
}

// StorageKeys walks the tree and returns every referenced storage key,
// de-duplicated, in traversal order.
func (v VariantSet) StorageKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(a *Asset) {
		if a == nil || a.Key == "" || seen[a.Key] {
			return
		}
		seen[a.Key] = true
		keys = append(keys, a.Key)
	}

	add(v.Original)
	add(v.Large)
	add(v.Medium)
	add(v.Thumbnail)
	add(v.Poster)
	for _, a := range v.Formats {
		add(&a)
	}
	for _, r := range v.Renditions {
		add(&r.Asset)
	}
	return keys
}

// IsZero reports whether no variant was recorded.
func (v VariantSet) IsZero() bool {
	return v.Original == nil && v.Large == nil && v.Medium == nil &&
		v.Thumbnail == nil && v.Poster == nil &&
		len(v.Formats) == 0 && len(v.Renditions) == 0
}

// Value implements driver.Valuer so the set round-trips through a JSON column.
func (v VariantSet) Value() (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variants: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *VariantSet) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = VariantSet{}
		return nil
	case []byte:
		return json.Unmarshal(s, v)
	case string:
		return json.Unmarshal([]byte(s), v)
	default:
		return fmt.Errorf("unsupported variants column type %T", src)
	}
}
