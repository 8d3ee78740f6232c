// Package moderation implements the enforcement workflow for classifier
// verdicts and the resolution of follow-up dismiss/kick actions.
package moderation

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ChatAPI is the slice of the Telegram API the moderation workflow needs.
// *bot.Bot satisfies it; tests substitute a fake.
type ChatAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
	RestrictChatMember(ctx context.Context, params *bot.RestrictChatMemberParams) (bool, error)
	BanChatMember(ctx context.Context, params *bot.BanChatMemberParams) (bool, error)
	GetChatAdministrators(ctx context.Context, params *bot.GetChatAdministratorsParams) ([]models.ChatMember, error)
}

// fullPermissions restores a member to an unrestricted state.
var fullPermissions = models.ChatPermissions{
	CanSendMessages:       true,
	CanSendAudios:         true,
	CanSendDocuments:      true,
	CanSendPhotos:         true,
	CanSendVideos:         true,
	CanSendVideoNotes:     true,
	CanSendVoiceNotes:     true,
	CanSendPolls:          true,
	CanSendOtherMessages:  true,
	CanAddWebPagePreviews: true,
	CanChangeInfo:         true,
	CanInviteUsers:        true,
	CanPinMessages:        true,
	CanManageTopics:       true,
}

// memberUserID extracts the user ID from a chat member entry, which Telegram
// returns as a tagged union.
func memberUserID(m models.ChatMember) (int64, bool) {
	switch {
	case m.Owner != nil && m.Owner.User != nil:
		return m.Owner.User.ID, true
	case m.Administrator != nil:
		return m.Administrator.User.ID, true
	case m.Member != nil && m.Member.User != nil:
		return m.Member.User.ID, true
	default:
		return 0, false
	}
}
