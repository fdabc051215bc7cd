// Package ingest is the boundary where loosely shaped post records become
// domain.Post values. Everything downstream relies on its normalization.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"trendlens/internal/domain"
)

// Record is one decoded post record. Unknown keys are ignored.
type Record map[string]any

// Unknown is the default for missing author and platform labels.
const Unknown = "unknown"

// DefaultCounters are the top-level record keys read as engagement counters.
// Other top-level keys, such as followers_count, are ignored.
var DefaultCounters = []string{"retweet_count", "favorite_count", "upvotes", "likes", "shares", "replies", "reposts"}

type options struct {
	counters map[string]struct{}
}

// Option configures normalization.
type Option func(*options)

// WithCounters replaces the set of top-level counter keys. An empty list
// keeps DefaultCounters.
func WithCounters(names []string) Option {
	return func(o *options) {
		if len(names) > 0 {
			o.counters = keySet(names)
		}
	}
}

func keySet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func newOptions(opts []Option) options {
	o := options{counters: keySet(DefaultCounters)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Normalize converts a record into a Post. now is used when created_at is absent.
func Normalize(rec Record, now time.Time, opts ...Option) (domain.Post, error) {
	return normalize(rec, now, newOptions(opts))
}

func normalize(rec Record, now time.Time, o options) (domain.Post, error) {
	p := domain.Post{
		Author:     Unknown,
		Platform:   Unknown,
		Engagement: map[string]int64{},
	}

	text, err := stringField(rec, "text")
	if err != nil {
		return domain.Post{}, err
	}
	if strings.TrimSpace(text) == "" {
		return domain.Post{}, domain.InvalidArgument("text is required")
	}
	p.Text = text

	if p.ID, err = stringField(rec, "id"); err != nil {
		return domain.Post{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for key, dst := range map[string]*string{"author": &p.Author, "platform": &p.Platform, "sentiment": &p.Sentiment, "keyword": &p.Keyword} {
		v, err := stringField(rec, key)
		if err != nil {
			return domain.Post{}, err
		}
		if v != "" {
			*dst = v
		}
	}

	p.CreatedAt = now
	if raw, ok := rec["created_at"]; ok && raw != nil {
		if p.CreatedAt, err = parseTime(raw); err != nil {
			return domain.Post{}, err
		}
	}

	for key := range o.counters {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		n, err := counter(key, raw)
		if err != nil {
			return domain.Post{}, err
		}
		p.Engagement[key] = n
	}
	if raw, ok := rec["engagement"]; ok && raw != nil {
		nested, ok := asMap(raw)
		if !ok {
			return domain.Post{}, domain.InvalidArgument("engagement must be a mapping of counters, got %T", raw)
		}
		for key, v := range nested {
			n, err := counter(key, v)
			if err != nil {
				return domain.Post{}, err
			}
			p.Engagement[key] = n
		}
	}
	return p, nil
}

// Posts normalizes every record, failing on the first invalid one.
func Posts(recs []Record, now time.Time, opts ...Option) ([]domain.Post, error) {
	o := newOptions(opts)
	posts := make([]domain.Post, 0, len(recs))
	for i, rec := range recs {
		p, err := normalize(rec, now, o)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing Z means UTC and a
// value without zone is read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if strings.HasSuffix(v, "Z") || strings.HasSuffix(v, "z") {
		v = v[:len(v)-1] + "+00:00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &domain.TimestampError{Value: s}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return ParseTimestamp(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, &domain.TimestampError{Value: v.String(), Err: err}
		}
		return unixSeconds(f), nil
	case float64:
		return unixSeconds(v), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return time.Time{}, &domain.TimestampError{Value: fmt.Sprint(raw)}
}

func unixSeconds(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func stringField(rec Record, key string) (string, error) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return "", nil
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", domain.InvalidArgument("%s must be a string, got %T", key, raw)
}

func counter(key string, raw any) (int64, error) {
	var n int64
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, domain.InvalidArgument("%s must be an integer, got %s", key, v)
		}
		n = i
	case int:
		n = int64(v)
	case int64:
		n = v
	case uint64:
		n = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, domain.InvalidArgument("%s must be an integer, got %v", key, v)
		}
		n = int64(v)
	default:
		return 0, domain.InvalidArgument("%s must be an integer, got %T", key, raw)
	}
	if n < 0 {
		return 0, domain.InvalidArgument("%s must be >= 0, got %d", key, n)
	}
	return n, nil
}

func asMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case Record:
		return v, true
	}
	return nil, false
}
