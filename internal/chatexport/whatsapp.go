package chatexport

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// [DD/MM/YYYY, HH:MM:SS] Name: text
	bracketHeader = regexp.MustCompile(`^\[(\d{1,2}/\d{1,2}/\d{4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?)\]\s+([^:]+?):\s*(.*)$`)
	// DD/MM/YYYY, HH:MM - Name: text  and  DD/MM/YYYY HH:MM - Name: text
	dashHeader = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?)\s*-\s*([^:]+?):\s*(.*)$`)
	// any dated line, used to recognize system notices
	datedLine = regexp.MustCompile(`^\[?\d{1,2}/\d{1,2}/\d{4},?\s+\d{1,2}:\d{2}`)
)

type mediaMarker struct {
	pattern *regexp.Regexp
	media   MediaType
}

var mediaMarkers = []mediaMarker{
	{regexp.MustCompile(`(?i)<\s*(media omitted|médias omis|image omitted|photo omitted|image absente)\s*>`), MediaPhoto},
	{regexp.MustCompile(`(?i)<\s*(video omitted|vidéo omise|vidéo absente)\s*>|vidéo omise|video omitted`), MediaVideo},
	{regexp.MustCompile(`(?i)<\s*(audio omitted|audio omis|audio absent)\s*>`), MediaVoice},
	{regexp.MustCompile(`(?i)<\s*(document omitted|document omis)\s*>|document omis|document omitted`), MediaDocument},
	{regexp.MustCompile(`(?i)<\s*(sticker omitted|sticker omis)\s*>`), MediaAttachment},
}

var invisible = strings.NewReplacer("\u200e", "", "\u200f", "", "\ufeff", "", "\u202f", " ")

func parseWhatsApp(r io.Reader) ([]Message, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		msgs    []Message
		current *Message
	)
	flush := func() {
		if current != nil {
			current.Content = strings.TrimSpace(current.Content)
			msgs = append(msgs, *current)
			current = nil
		}
	}

	for sc.Scan() {
		line := strings.TrimSpace(invisible.Replace(sc.Text()))
		if line == "" {
			continue
		}

		m := bracketHeader.FindStringSubmatch(line)
		if m == nil {
			m = dashHeader.FindStringSubmatch(line)
		}
		if m == nil {
			if datedLine.MatchString(line) {
				// system notice such as "Messages are end-to-end encrypted"
				flush()
				continue
			}
			if current != nil {
				current.Content += "\n" + line
			}
			continue
		}

		ts, err := whatsAppTime(m[1], m[2])
		if err != nil {
			if current != nil {
				current.Content += "\n" + line
			}
			continue
		}

		flush()
		current = &Message{
			Sender:    strings.TrimSpace(m[3]),
			Content:   strings.TrimSpace(m[4]),
			Timestamp: ts,
			Type:      TypeText,
		}
		applyMediaMarker(current)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read whatsapp export: %w", err)
	}
	flush()
	return msgs, nil
}

func applyMediaMarker(m *Message) {
	for _, mk := range mediaMarkers {
		if mk.pattern.MatchString(m.Content) {
			m.Type = TypeMedia
			m.MediaType = mk.media
			m.Content = strings.TrimSpace(mk.pattern.ReplaceAllString(m.Content, ""))
			return
		}
	}
}

func whatsAppTime(date, clock string) (time.Time, error) {
	dp := strings.Split(date, "/")
	if len(dp) != 3 {
		return time.Time{}, fmt.Errorf("bad date %q", date)
	}
	day, err1 := strconv.Atoi(dp[0])
	month, err2 := strconv.Atoi(dp[1])
	year, err3 := strconv.Atoi(dp[2])
	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("bad date %q", date)
	}

	cp := strings.Split(clock, ":")
	vals := [3]int{}
	for i, part := range cp {
		v, err := strconv.Atoi(part)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad time %q", clock)
		}
		vals[i] = v
	}
	if vals[0] > 23 || vals[1] > 59 || vals[2] > 59 {
		return time.Time{}, fmt.Errorf("bad time %q", clock)
	}
	return time.Date(year, time.Month(month), day, vals[0], vals[1], vals[2], 0, time.UTC), nil
}
