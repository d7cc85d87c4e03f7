package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Message is one chat entry as returned by POST /messages/chat.
// The service reports the author as "sender" and omits the recipient;
// Normalize fills From/To from the pair the conversation was fetched for.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Index     int       `json:"index"`
	From      string    `json:"from_address,omitempty"`
	To        string    `json:"to_address,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
	IsRead    bool      `json:"is_read"`
	IsDeleted bool      `json:"is_deleted"`
	IsMedia   bool      `json:"is_media"`
}

// Key is the identity used to de-duplicate messages: the explicit id when
// present, otherwise (from, to, timestamp). Rows with no author also carry
// their row index, so anonymous messages in the same instant stay apart.
func (m Message) Key() string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	ts := "0"
	if t := m.Timestamp.Time(); !t.IsZero() {
		ts = strconv.FormatInt(t.UnixNano(), 10)
	}
	key := strings.ToLower(m.From) + "|" + strings.ToLower(m.To) + "|" + ts
	if m.From == "" {
		key += "|#" + strconv.Itoa(m.Index)
	}
	return key
}

// FromMe reports whether account authored the message
func (m Message) FromMe(account string) bool {
	return strings.EqualFold(m.From, account)
}

// Normalize canonicalizes the author and recipient. a and b are the two
// participants of the conversation the message was fetched for.
func (m Message) Normalize(a, b string) Message {
	if m.From == "" {
		m.From = m.Sender
	}
	if c, err := CanonicalAddress(m.From); err == nil {
		m.From = c
	}
	if m.To == "" {
		switch {
		case strings.EqualFold(m.From, a):
			m.To = b
		case strings.EqualFold(m.From, b):
			m.To = a
		}
	}
	if c, err := CanonicalAddress(m.To); err == nil {
		m.To = c
	}
	return m
}

// Merge returns the union of the given lists de-duplicated by Key and sorted
// ascending by timestamp. Earlier lists win on duplicate keys. Ties on the
// timestamp are broken by Key so the result does not depend on input order.
func Merge(lists ...[]Message) []Message {
	seen := make(map[string]struct{})
	var out []Message
	for _, list := range lists {
		for _, msg := range list {
			k := msg.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, msg)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Timestamp.Time(), out[j].Timestamp.Time()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// Timestamp accepts unix seconds (what the contract stores) or an RFC 3339 string
type Timestamp struct {
	t time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp { return Timestamp{t: t} }

// Time returns the wrapped time
func (ts Timestamp) Time() time.Time { return ts.t }

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.t.IsZero() {
		return []byte("0"), nil
	}
	return []byte(strconv.FormatInt(ts.t.Unix(), 10)), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		ts.t = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			ts.t = unixOrZero(secs)
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		ts.t = t
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if secs, err := n.Int64(); err == nil {
		ts.t = unixOrZero(secs)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", data, err)
	}
	secs := math.Floor(f)
	ts.t = time.Unix(int64(secs), int64(math.Round((f-secs)*1e9)))
	return nil
}

func unixOrZero(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
