package loop

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"loopbot/apperror"
	"loopbot/handler"
	"loopbot/model"
	"loopbot/vote"
)

func (h *Handler) voteCommand(s handler.Session, m *discordgo.MessageCreate, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		h.reply(s, m.ChannelID, "❌ Usage: reply to a submission and do `"+h.Config.Prefix+"vote <1-10>`.")
		return
	}
	score, err := strconv.Atoi(fields[0])
	if err != nil {
		h.reply(s, m.ChannelID, "❌ Usage: reply to a submission and do `"+h.Config.Prefix+"vote <1-10>`.")
		return
	}
	if err := vote.ValidateScore(model.VoteGraded, score); err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}

	var direct, fallback string
	if m.MessageReference != nil {
		direct = m.MessageReference.MessageID
	}
	if direct == "" {
		fallback = h.latestBotPost(s, m)
	}

	sub, err := h.Votes.ResolveSubmissionFor(direct, fallback)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	if sub == nil {
		if direct == "" {
			h.reply(s, m.ChannelID, "❌ Please reply to a submission message to cast your vote.")
		} else {
			h.reply(s, m.ChannelID, "❌ That message is not recognized as a submission.")
		}
		return
	}

	v, err := h.Votes.CastVote(sub.ID, m.Author.ID, model.VoteGraded, score, h.Now())
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	h.publish("vote", voteEvent(v))
	h.reply(s, m.ChannelID, fmt.Sprintf("✅ Your vote of %d on submission #%d has been recorded.", score, sub.ID))
}

// latestBotPost returns the newest bot message before m in the channel, used
// when a vote does not reply to anything.
func (h *Handler) latestBotPost(s handler.Session, m *discordgo.MessageCreate) string {
	botID := h.BotID()
	if botID == "" {
		return ""
	}
	recent, err := s.ChannelMessages(m.ChannelID, 20, m.ID, "", "")
	if err != nil {
		log.Printf("Error loading recent messages in %s: %v", m.ChannelID, err)
		return ""
	}
	for _, msg := range recent {
		if msg.Author != nil && msg.Author.ID == botID {
			return msg.ID
		}
	}
	return ""
}

func (h *Handler) isVotingChannel(channelID string) bool {
	ch := h.Config.Channels
	return channelID != "" && (channelID == ch.Submissions || channelID == ch.VotingHall)
}

func isVoteEmoji(name string) bool {
	return name == emojiThumbsUp || name == emojiStar
}

// ReactionAdd casts a unit vote for 👍 or ⭐ on a submission.
func (h *Handler) ReactionAdd(s handler.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == h.BotID() || !h.isVotingChannel(r.ChannelID) || !isVoteEmoji(r.Emoji.Name) {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}

	sub, err := h.Votes.ResolveSubmissionFor(r.MessageID, "")
	if err != nil {
		log.Printf("Error resolving submission for message %s: %v", r.MessageID, err)
		return
	}
	if sub == nil {
		return
	}

	v, err := h.Votes.CastVote(sub.ID, r.UserID, model.VoteUnit, 1, h.Now())
	switch {
	case err == nil:
		h.publish("vote", voteEvent(v))
	case apperror.IsKind(err, apperror.ErrDuplicate, apperror.ErrWindowClosed):
		// Reactions are silent; a second emoji or a late reaction changes nothing.
	default:
		log.Printf("Error recording reaction vote on submission %d by %s: %v", sub.ID, r.UserID, err)
	}
}

// ReactionRemove retracts the unit vote of a removed 👍 or ⭐.
func (h *Handler) ReactionRemove(s handler.Session, r *discordgo.MessageReactionRemove) {
	if r.UserID == h.BotID() || !h.isVotingChannel(r.ChannelID) || !isVoteEmoji(r.Emoji.Name) {
		return
	}
	sub, err := h.Votes.ResolveSubmissionFor(r.MessageID, "")
	if err != nil {
		log.Printf("Error resolving submission for message %s: %v", r.MessageID, err)
		return
	}
	if sub == nil {
		return
	}
	if err := h.Votes.RetractVote(sub.ID, r.UserID, 1); err != nil {
		log.Printf("Error retracting vote on submission %d by %s: %v", sub.ID, r.UserID, err)
		return
	}
	h.publish("vote_retracted", map[string]any{"submission_id": sub.ID, "voter_id": r.UserID})
}

func voteEvent(v *model.Vote) map[string]any {
	return map[string]any{
		"submission_id": v.SubmissionID,
		"voter_id":      v.VoterID,
		"kind":          string(v.Kind),
		"score":         v.Score,
		"cast_at":       v.CastAt,
	}
}
