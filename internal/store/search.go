package store

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const snippetRadius = 32

// SearchMessages matches message bodies containing query, case-insensitively
// for ASCII. A non-empty peer restricts the search to one thread.
func (db *DB) SearchMessages(query, peer string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT ` + messageColumns + ` FROM messages WHERE body LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(query) + "%"}
	if peer != "" {
		q += " AND (from_jid = ? OR to_jid = ?)"
		args = append(args, peer, peer)
	}
	q += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := scanMessage(rows, &r.Message); err != nil {
			return nil, err
		}
		r.Snippet = snippet(r.Message.Body, query)
		results = append(results, r)
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet marks the first match with << >> and trims the body around it.
func snippet(body, query string) string {
	i := strings.Index(strings.ToLower(body), strings.ToLower(query))
	if i < 0 {
		return body
	}
	start := max(i-snippetRadius, 0)
	for start > 0 && !utf8.RuneStart(body[start]) {
		start--
	}
	end := min(i+len(query)+snippetRadius, len(body))
	for end < len(body) && !utf8.RuneStart(body[end]) {
		end++
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(body[start:i])
	b.WriteString("<<")
	b.WriteString(body[i : i+len(query)])
	b.WriteString(">>")
	b.WriteString(body[i+len(query) : end])
	if end < len(body) {
		b.WriteString("...")
	}
	return b.String()
}
