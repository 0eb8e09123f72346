package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Record is one matching document. Records are immutable once persisted.
type Record struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Keywords  []string  `json:"keywords,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
}

// legacyLayouts covers naive ISO-8601 timestamps without a zone offset.
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and naive ISO-8601 forms (read as local time).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON also accepts the older field names link, data and trecho.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw struct {
		URL       string   `json:"url"`
		Link      string   `json:"link"`
		Timestamp string   `json:"timestamp"`
		Data      string   `json:"data"`
		Keywords  []string `json:"keywords"`
		Keyword   string   `json:"keyword"`
		Excerpt   string   `json:"excerpt"`
		Trecho    string   `json:"trecho"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.URL = firstNonEmpty(raw.URL, raw.Link)
	r.Excerpt = firstNonEmpty(raw.Excerpt, raw.Trecho)
	r.Keywords = raw.Keywords
	if len(r.Keywords) == 0 && raw.Keyword != "" {
		r.Keywords = []string{raw.Keyword}
	}
	r.Timestamp = time.Time{}
	if ts := firstNonEmpty(raw.Timestamp, raw.Data); ts != "" {
		t, err := ParseTimestamp(ts)
		if err != nil {
			return err
		}
		r.Timestamp = t
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// SortRecords orders by timestamp descending; ties keep URL ascending.
func SortRecords(rs []Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].Timestamp.Equal(rs[j].Timestamp) {
			return rs[i].Timestamp.After(rs[j].Timestamp)
		}
		return rs[i].URL < rs[j].URL
	})
}

// Merge returns prior plus added, sorted. Neither input is modified.
func Merge(prior, added []Record) []Record {
	out := make([]Record, 0, len(prior)+len(added))
	out = append(out, prior...)
	out = append(out, added...)
	SortRecords(out)
	return out
}

// key identifies a record for backends that de-duplicate on insert.
func (r Record) key() string {
	return r.Timestamp.UTC().Format(time.RFC3339Nano) + "\x00" + r.URL
}
