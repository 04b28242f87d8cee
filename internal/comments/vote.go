package comments

import "github.com/UkralStul/fanfic-archive-service/internal/domain"

// HideThreshold - число дизлайков, начиная с которого комментарий скрывается.
const HideThreshold = 10

// Counters - состояние голосования комментария.
type Counters struct {
	Upvotes   int
	Downvotes int
	Hidden    bool
}

// Transition отменяет предыдущий голос и применяет новый.
// Счетчики не опускаются ниже нуля, Hidden всегда пересчитывается
// из текущего числа дизлайков.
func Transition(c Counters, prev, next domain.VoteType) Counters {
	switch prev {
	case domain.VoteUp:
		c.Upvotes--
	case domain.VoteDown:
		c.Downvotes--
	}

	switch next {
	case domain.VoteUp:
		c.Upvotes++
	case domain.VoteDown:
		c.Downvotes++
	}

	c.Upvotes = max(c.Upvotes, 0)
	c.Downvotes = max(c.Downvotes, 0)
	c.Hidden = c.Downvotes >= HideThreshold
	return c
}

func countersOf(c *domain.Comment) Counters {
	return Counters{Upvotes: c.Upvotes, Downvotes: c.Downvotes, Hidden: c.IsHidden}
}

func (c Counters) applyTo(comment *domain.Comment) {
	comment.Upvotes = c.Upvotes
	comment.Downvotes = c.Downvotes
	comment.IsHidden = c.Hidden
}
