package chatexport

import "time"

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Summary struct {
	TotalMessages  int            `json:"total_messages"`
	TotalMedia     int            `json:"total_media"`
	Participants   []string       `json:"participants"`
	PerParticipant map[string]int `json:"per_participant"`
	DateRange      *DateRange     `json:"date_range,omitempty"`
}

// Summarize counts messages and participants. Participants are listed in
// order of first appearance.
func Summarize(msgs []Message) Summary {
	s := Summary{
		TotalMessages:  len(msgs),
		Participants:   []string{},
		PerParticipant: make(map[string]int),
	}
	for _, m := range msgs {
		if _, ok := s.PerParticipant[m.Sender]; !ok {
			s.Participants = append(s.Participants, m.Sender)
		}
		s.PerParticipant[m.Sender]++
		if m.Type == TypeMedia {
			s.TotalMedia++
		}

		if s.DateRange == nil {
			s.DateRange = &DateRange{Start: m.Timestamp, End: m.Timestamp}
			continue
		}
		if m.Timestamp.Before(s.DateRange.Start) {
			s.DateRange.Start = m.Timestamp
		}
		if m.Timestamp.After(s.DateRange.End) {
			s.DateRange.End = m.Timestamp
		}
	}
	return s
}
