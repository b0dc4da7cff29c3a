// Package transcript parses exported chat history text into structured
// records. Only a small closed set of export layouts is supported; the
// timestamp is carried forward as the raw captured string since
// downstream consumers only need relative ordering.
package transcript

import (
	"errors"
	"regexp"
	"strings"
)

// Record is one parsed transcript line.
type Record struct {
	Timestamp string
	Sender    string
	Text      string
}

// ErrNoRecords is returned when no line matches any supported layout.
var ErrNoRecords = errors.New("no records found in transcript")

// Line grammars, tried in order; the first match wins.
var lineGrammars = []*regexp.Regexp{
	// Full export line: 2024/01/15(月) 14:30:25 田中太郎 こんにちは！元気？
	regexp.MustCompile(`^(\d{4}/\d{2}/\d{2}\([月火水木金土日]\)\s\d{2}:\d{2}:\d{2})\s(\S+)\s(.+)$`),
	// Short form: 14:30 田中太郎 こんにちは
	regexp.MustCompile(`^(\d{2}:\d{2})\s(\S+)\s(.+)$`),
	// Tab-delimited: timestamp<TAB>sender<TAB>text
	regexp.MustCompile(`^([^\t]+)\t([^\t]+)\t(.+)$`),
}

// Parse splits raw into lines and matches each against the supported
// grammars. Lines matching no grammar are skipped silently; an input
// producing zero records fails with ErrNoRecords.
func Parse(raw string) ([]Record, error) {
	var records []Record
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if rec, ok := parseLine(line); ok {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

func parseLine(line string) (Record, bool) {
	for _, grammar := range lineGrammars {
		m := grammar.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return Record{
			Timestamp: m[1],
			Sender:    m[2],
			Text:      m[3],
		}, true
	}
	return Record{}, false
}
