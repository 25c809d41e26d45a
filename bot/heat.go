package bot

import "time"

// Heat grades how "alive" the conversation around a message is. It blends
// recency, proximity to the last @-mention and message density; a message
// directly following a mention gets a bonus.
type Heat struct {
	Score            float64
	Recency          float64
	MentionProximity float64
	MessageDensity   float64
	AfterMention     bool
}

// IsHot reports whether the conversation is active enough to consider a
// proactive reply on heat alone.
func (h Heat) IsHot() bool {
	return h.Score >= 0.5
}

// CalculateHeat computes the heat of a message.
//
//	now: time of the current message
//	lastMention: time of the last @-mention of the bot (zero if never)
//	recentTimes: timestamps of recent messages, oldest first
//	sinceLastMessage: gap to the previous message
//	afterMention: message directly follows an @-mention
func CalculateHeat(now time.Time, lastMention time.Time, recentTimes []time.Time, sinceLastMessage time.Duration, afterMention bool) Heat {
	h := Heat{AfterMention: afterMention}

	switch {
	case sinceLastMessage < 30*time.Second:
		h.Recency = 1.0
	case sinceLastMessage < time.Minute:
		h.Recency = 0.8
	case sinceLastMessage < 5*time.Minute:
		h.Recency = 0.5
	}

	if !lastMention.IsZero() {
		switch sinceMention := now.Sub(lastMention); {
		case sinceMention < 2*time.Minute:
			h.MentionProximity = 1.0
		case sinceMention < 5*time.Minute:
			h.MentionProximity = 0.7
		case sinceMention < 10*time.Minute:
			h.MentionProximity = 0.4
		}
	}

	h.MessageDensity = densityScore(recentTimes)

	bonus := 0.0
	if afterMention {
		bonus = 0.3
	}
	h.Score = h.Recency*0.4 + h.MentionProximity*0.3 + h.MessageDensity*0.2 + bonus
	if h.Score > 1.0 {
		h.Score = 1.0
	}
	return h
}

// densityScore grades the average gap between the last few messages.
func densityScore(recentTimes []time.Time) float64 {
	if len(recentTimes) < 2 {
		return 0.5
	}
	tail := recentTimes
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	var total time.Duration
	for i := 1; i < len(tail); i++ {
		total += tail[i].Sub(tail[i-1])
	}
	avg := total / time.Duration(len(tail)-1)
	switch {
	case avg < 30*time.Second:
		return 1.0
	case avg < time.Minute:
		return 0.8
	case avg < 2*time.Minute:
		return 0.6
	default:
		return 0.3
	}
}
