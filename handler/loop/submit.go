package loop

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"loopbot/apperror"
	"loopbot/handler"
	"loopbot/model"
	"loopbot/storage"
	"loopbot/submission"
	"loopbot/utils"
)

// source is the chat message a submission is taken from.
type source struct {
	authorID    string
	messageID   string
	content     string
	attachments []*discordgo.MessageAttachment
}

func (h *Handler) submitCommand(s handler.Session, m *discordgo.MessageCreate, args string) {
	src, err := h.resolveSource(s, m, args)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	h.handleSubmission(s, m.ChannelID, src)
}

// resolveSource picks what !submit refers to: the replied-to message, a linked
// message, this message's own link or file, or the author's latest file upload.
func (h *Handler) resolveSource(s handler.Session, m *discordgo.MessageCreate, args string) (*source, error) {
	author := m.Author.ID

	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		target := m.ReferencedMessage
		if target == nil {
			channelID := ref.ChannelID
			if channelID == "" {
				channelID = m.ChannelID
			}
			var err error
			target, err = s.ChannelMessage(channelID, ref.MessageID)
			if err != nil {
				return nil, apperror.NotFound("Could not load the message you replied to.")
			}
		}
		if target.Author == nil {
			return nil, apperror.NotFound("Could not load the message you replied to.")
		}
		if err := submission.CheckOwnership(author, target.Author.ID); err != nil {
			return nil, err
		}
		return &source{authorID: author, messageID: target.ID, content: target.Content, attachments: target.Attachments}, nil
	}

	if fields := strings.Fields(args); len(fields) > 0 && utils.IsDiscordMessageURL(fields[0]) {
		info, err := utils.ResolveOwnPost(s, fields[0], m.GuildID, author)
		if err != nil {
			return nil, err
		}
		return &source{authorID: author, messageID: info.MessageID, content: info.Content, attachments: info.Files}, nil
	}

	if len(m.Attachments) > 0 || strings.TrimSpace(args) != "" {
		return &source{authorID: author, messageID: m.ID, content: args, attachments: m.Attachments}, nil
	}

	recent, err := s.ChannelMessages(m.ChannelID, 10, m.ID, "", "")
	if err != nil {
		log.Printf("Error loading recent messages in %s: %v", m.ChannelID, err)
	}
	for _, prev := range recent {
		if prev.Author != nil && prev.Author.ID == author && len(prev.Attachments) > 0 {
			return &source{authorID: author, messageID: prev.ID, content: prev.Content, attachments: prev.Attachments}, nil
		}
	}
	return nil, apperror.Validation("Please provide a link or attach a file to submit.")
}

func (h *Handler) passiveSubmission(s handler.Session, m *discordgo.MessageCreate) {
	if len(m.Attachments) == 0 && strings.TrimSpace(m.Content) == "" {
		return
	}
	log.Printf("Passive submission by %s | MsgID: %s", m.Author.ID, m.ID)
	h.handleSubmission(s, m.ChannelID, &source{
		authorID:    m.Author.ID,
		messageID:   m.ID,
		content:     m.Content,
		attachments: m.Attachments,
	})
}

func requestFor(src *source) submission.Request {
	req := submission.Request{AuthorID: src.authorID, SourceRef: src.messageID}
	body, tags := submission.ParseContent(src.content)
	req.Tags = tags
	if len(src.attachments) > 0 {
		req.Kind = model.SubmissionAttachment
		req.Payload = src.attachments[0].Filename
	} else {
		req.Kind = model.SubmissionLink
		req.Payload = body
	}
	return req
}

// handleSubmission records the submission, then posts it to the voting hall.
// A submission recorded earlier but never posted is posted now.
func (h *Handler) handleSubmission(s handler.Session, replyChannelID string, src *source) {
	hall := h.Config.Channels.VotingHall
	if hall == "" {
		h.reply(s, replyChannelID, "❌ Voting hall channel not found. Check configuration.")
		return
	}

	req := requestFor(src)
	req.Now = h.Now()
	res, err := h.Ledger.Submit(req)
	if res == nil {
		h.replyErr(s, replyChannelID, err)
		return
	}
	creditErr := err
	if creditErr != nil {
		// The submission is stored; only the point or streak update failed.
		log.Printf("Error crediting submission %d: %v", res.Submission.ID, creditErr)
	}

	sub := res.Submission
	if sub.Published() {
		h.reply(s, replyChannelID, fmt.Sprintf("⚠️ That message was already submitted as #%d.", sub.ID))
		return
	}

	var attachment *discordgo.MessageAttachment
	if sub.Kind == model.SubmissionAttachment && len(src.attachments) > 0 {
		attachment = src.attachments[0]
	}

	post := &discordgo.MessageSend{}
	var link string
	if attachment != nil {
		if file := h.downloadAttachment(sub, attachment); file != nil {
			post.Files = []*discordgo.File{{Name: file.Name, ContentType: file.ContentType, Reader: bytes.NewReader(file.Data)}}
		} else {
			link = attachment.URL
		}
	}
	post.Content = hallPostContent(sub, link)

	sent, err := s.ChannelMessageSendComplex(hall, post)
	if err != nil {
		log.Printf("Error posting submission %d to the voting hall: %v", sub.ID, err)
		h.reply(s, replyChannelID, fmt.Sprintf(
			"⚠️ Submission #%d was recorded but could not be posted to the voting hall. Submit the same message again to retry.", sub.ID))
		return
	}
	for _, emoji := range []string{emojiThumbsUp, emojiStar} {
		if err := s.MessageReactionAdd(hall, sent.ID, emoji); err != nil {
			log.Printf("Error adding %s to submission %d: %v", emoji, sub.ID, err)
		}
	}

	if err := h.Ledger.AttachPublicRef(sub, sent.ID); err != nil {
		h.replyErr(s, replyChannelID, err)
		return
	}

	if attachment != nil {
		h.mirrorAttachment(sub, attachment)
	}
	h.publish("submission", submissionEvent(sub))

	msg := fmt.Sprintf("✅ Submission #%d posted in <#%s>. Voting is now open.", sub.ID, hall)
	if res.Credited && creditErr == nil {
		msg += fmt.Sprintf(" 🔥 Streak: %d %s.", res.Streak.Current, pluralize(res.Streak.Current, "day"))
	}
	h.reply(s, replyChannelID, msg)
}

// hallPostContent renders the voting hall post. link is set only when the attachment
// could not be uploaded with the post.
func hallPostContent(sub *model.Submission, link string) string {
	var b strings.Builder
	switch sub.Kind {
	case model.SubmissionLink:
		fmt.Fprintf(&b, "📥 **Link Submission #%d from <@%s>:** %s", sub.ID, sub.AuthorID, sub.Payload)
	case model.SubmissionAttachment:
		fmt.Fprintf(&b, "📥 **File Submission #%d from <@%s>:**", sub.ID, sub.AuthorID)
	}
	if len(sub.Tags) > 0 {
		b.WriteString("  #" + strings.Join(sub.Tags, " #"))
	}
	if link != "" {
		b.WriteString("\n" + link)
	}
	return b.String()
}

// downloadAttachment fetches the attachment for re-upload, or returns nil to fall back to its URL.
func (h *Handler) downloadAttachment(sub *model.Submission, att *discordgo.MessageAttachment) *storage.File {
	if h.Files == nil {
		return nil
	}
	ctx, cancel := h.opContext()
	defer cancel()
	file, err := h.Files.Download(ctx, att.Filename, att.URL)
	if err != nil {
		log.Printf("⚠️ Posting submission %d as a link, download failed: %v", sub.ID, err)
		return nil
	}
	return file
}

func (h *Handler) mirrorAttachment(sub *model.Submission, att *discordgo.MessageAttachment) {
	if h.Mirror == nil {
		return
	}
	ctx, cancel := h.opContext()
	defer cancel()
	object, err := h.Mirror.MirrorAttachment(ctx, sub.AuthorID, att.Filename, att.URL)
	if err != nil {
		log.Printf("⚠️ Failed to mirror attachment of submission %d: %v", sub.ID, err)
		return
	}
	log.Printf("Mirrored attachment of submission %d to %s", sub.ID, object)
}

func submissionEvent(sub *model.Submission) map[string]any {
	return map[string]any{
		"submission_id": sub.ID,
		"author_id":     sub.AuthorID,
		"kind":          string(sub.Kind),
		"payload":       sub.Payload,
		"tags":          sub.Tags,
		"created_at":    sub.CreatedAt,
	}
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
