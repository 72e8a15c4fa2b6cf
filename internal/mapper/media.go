package mapper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// MediaKind selects the image or video column family.
type MediaKind string

// Media kinds.
const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// mediaColumns lists, per kind, the canonical array column, the
// array-or-string column, and the legacy single-value columns in priority
// order.
type mediaColumns struct {
	canonical string
	mixed     string
	legacy    []string
}

var columnsByKind = map[MediaKind]mediaColumns{
	KindImage: {
		canonical: ColImages,
		mixed:     "image",
		legacy:    []string{ColImageURL, "main_image", "thumbnail_url"},
	},
	KindVideo: {
		canonical: ColVideos,
		mixed:     "video",
		legacy:    []string{ColVideoURL, "video_tour_url", "virtual_tour_url"},
	},
}

// source is one media entry as found in a record, before ids and order
// are assigned.
type source struct {
	id      string
	url     string
	caption string
	primary *bool
}

// strategy tries one shape of media field. It reports false when the shape
// is absent, letting the next strategy run.
type strategy func(rec types.Record, cols mediaColumns, log logging.Logger) ([]source, bool)

// strategies run in order; the first that reports presence wins.
var strategies = []strategy{
	fromCanonical,
	fromMixed,
	fromLegacy,
}

// extractMedia returns the media of kind held by rec. It never fails; a
// record without media yields an empty, non-nil slice.
func extractMedia(rec types.Record, propertyID string, kind MediaKind, log logging.Logger) []types.Media {
	cols := columnsByKind[kind]
	for _, try := range strategies {
		if found, ok := try(rec, cols, log); ok {
			return buildMedia(propertyID, kind, found)
		}
	}
	return []types.Media{}
}

// fromCanonical reads the canonical array column. An empty array counts as
// present and yields no media.
func fromCanonical(rec types.Record, cols mediaColumns, log logging.Logger) ([]source, bool) {
	v, ok := rec[cols.canonical]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString {
		arr, ok := parseJSONArray(s, cols.canonical, log)
		if !ok {
			return nil, false
		}
		v = arr
	}
	return sourcesFromArray(v)
}

// fromMixed reads the array-or-string column: a JSON array, a JSON-encoded
// array, or a single URL. A string that fails to parse as JSON is a URL.
func fromMixed(rec types.Record, cols mediaColumns, log logging.Logger) ([]source, bool) {
	v, ok := rec[cols.mixed]
	if !ok || v == nil {
		return nil, false
	}
	s, isString := v.(string)
	if !isString {
		return sourcesFromArray(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, "[") {
		arr, ok := parseJSONArray(s, cols.mixed, log)
		if !ok {
			return []source{{url: s}}, true
		}
		return sourcesFromArray(arr)
	}
	return []source{{url: s}}, true
}

// fromLegacy returns the first non-empty legacy single-value column.
func fromLegacy(rec types.Record, cols mediaColumns, _ logging.Logger) ([]source, bool) {
	for _, col := range cols.legacy {
		if url := stringField(rec, col); url != "" {
			return []source{{url: url}}, true
		}
	}
	return nil, false
}

func parseJSONArray(s, column string, log logging.Logger) ([]any, bool) {
	var arr []any
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		log.Debug("malformed media json", logging.Fields{"column": column, "error": err.Error()})
		return nil, false
	}
	return arr, true
}

// sourcesFromArray accepts arrays of URL strings and of descriptor objects.
// Elements of any other shape, and descriptors without a URL, are skipped.
func sourcesFromArray(v any) ([]source, bool) {
	var items []any
	switch arr := v.(type) {
	case []any:
		items = arr
	case []string:
		for _, s := range arr {
			items = append(items, s)
		}
	case []map[string]any:
		for _, m := range arr {
			items = append(items, m)
		}
	case []types.Media:
		out := make([]source, 0, len(arr))
		for _, m := range arr {
			primary := m.IsPrimary
			out = append(out, source{id: m.ID, url: m.URL, caption: m.Caption, primary: &primary})
		}
		return out, true
	default:
		return nil, false
	}

	out := make([]source, 0, len(items))
	for _, item := range items {
		switch e := item.(type) {
		case string:
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, source{url: e})
			}
		case map[string]any:
			rec := types.Record(e)
			url := stringField(rec, "url", "src", "path")
			if url == "" {
				continue
			}
			src := source{
				id:      stringField(rec, "id"),
				url:     url,
				caption: stringField(rec, "caption", "alt"),
			}
			if p, ok := boolField(rec, "is_primary", "isPrimary", "primary"); ok {
				src.primary = &p
			}
			out = append(out, src)
		}
	}
	return out, true
}

// buildMedia assigns ids, order and the primary flag. The first entry is
// primary unless the source marks another one.
func buildMedia(propertyID string, kind MediaKind, found []source) []types.Media {
	out := make([]types.Media, len(found))
	marked := -1
	for i, s := range found {
		if s.primary != nil && *s.primary && marked < 0 {
			marked = i
		}
	}
	if marked < 0 && len(found) > 0 {
		marked = 0
	}
	for i, s := range found {
		id := s.id
		if id == "" {
			id = MediaID(propertyID, kind, i, s.url)
		}
		out[i] = types.Media{
			ID:        id,
			URL:       s.url,
			IsPrimary: i == marked,
			Order:     i,
			Caption:   s.caption,
		}
	}
	return out
}

// MediaID derives the stable synthetic id of a media entry.
func MediaID(propertyID string, kind MediaKind, index int, url string) string {
	name := strings.Join([]string{propertyID, string(kind), strconv.Itoa(index), url}, "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// mediaRecord converts media to the canonical column representation.
func mediaRecord(media []types.Media) []any {
	out := make([]any, len(media))
	for i, m := range media {
		entry := map[string]any{
			"id":         m.ID,
			"url":        m.URL,
			"is_primary": m.IsPrimary,
			"order":      m.Order,
		}
		if m.Caption != "" {
			entry["caption"] = m.Caption
		}
		out[i] = entry
	}
	return out
}

// primaryURL returns the URL written to the legacy single-value column, or
// nil when there is no media.
func primaryURL(media []types.Media) any {
	if len(media) == 0 {
		return nil
	}
	for _, m := range media {
		if m.IsPrimary {
			return m.URL
		}
	}
	return media[0].URL
}
