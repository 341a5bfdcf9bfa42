package engine

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// PermissionResult is the outcome of an access-rule evaluation. Denials
// are normal results, never errors.
type PermissionResult struct {
	Allowed bool
	Reason  string
}

// permissionBits is the closed set of permission names a command
// configuration may require. Names outside this set are skipped at
// evaluation time and rejected by the admin API at creation time.
var permissionBits = map[string]int64{
	"ADMINISTRATOR":         discordgo.PermissionAdministrator,
	"MANAGE_GUILD":          discordgo.PermissionManageServer,
	"MANAGE_CHANNELS":       discordgo.PermissionManageChannels,
	"MANAGE_ROLES":          discordgo.PermissionManageRoles,
	"MANAGE_MESSAGES":       discordgo.PermissionManageMessages,
	"MANAGE_WEBHOOKS":       discordgo.PermissionManageWebhooks,
	"MANAGE_NICKNAMES":      discordgo.PermissionManageNicknames,
	"KICK_MEMBERS":          discordgo.PermissionKickMembers,
	"BAN_MEMBERS":           discordgo.PermissionBanMembers,
	"MODERATE_MEMBERS":      discordgo.PermissionModerateMembers,
	"MENTION_EVERYONE":      discordgo.PermissionMentionEveryone,
	"SEND_MESSAGES":         discordgo.PermissionSendMessages,
	"EMBED_LINKS":           discordgo.PermissionEmbedLinks,
	"ATTACH_FILES":          discordgo.PermissionAttachFiles,
	"ADD_REACTIONS":         discordgo.PermissionAddReactions,
	"READ_MESSAGE_HISTORY":  discordgo.PermissionReadMessageHistory,
	"VIEW_CHANNEL":          discordgo.PermissionViewChannel,
	"VIEW_AUDIT_LOG":        discordgo.PermissionViewAuditLogs,
	"CREATE_INSTANT_INVITE": discordgo.PermissionCreateInstantInvite,
	"CHANGE_NICKNAME":       discordgo.PermissionChangeNickname,
	"USE_EXTERNAL_EMOJIS":   discordgo.PermissionUseExternalEmojis,
	"CONNECT":               discordgo.PermissionVoiceConnect,
	"SPEAK":                 discordgo.PermissionVoiceSpeak,
	"MUTE_MEMBERS":          discordgo.PermissionVoiceMuteMembers,
	"DEAFEN_MEMBERS":        discordgo.PermissionVoiceDeafenMembers,
	"MOVE_MEMBERS":          discordgo.PermissionVoiceMoveMembers,
}

// KnownPermission reports whether a permission name is part of the closed
// set. The admin API uses this to validate command configurations.
func KnownPermission(name string) bool {
	_, ok := permissionBits[name]
	return ok
}

// CheckPermissions evaluates a command's access rules against the caller.
// Rules run in a fixed order, short-circuiting on the first failure:
// channel restriction, denied roles, required roles, required permissions.
// Empty lists impose no restriction. Pure and deterministic.
func CheckPermissions(cmd *CachedCommand, cc *CommandContext) PermissionResult {
	if len(cmd.RequiredChannelIDs) > 0 && !contains(cmd.RequiredChannelIDs, cc.ChannelID) {
		return PermissionResult{Reason: "This command cannot be used in this channel."}
	}

	var roles []string
	if cc.Member != nil {
		roles = cc.Member.Roles
	}

	for _, denied := range cmd.DeniedRoleIDs {
		if contains(roles, denied) {
			return PermissionResult{Reason: "You do not have permission to use this command."}
		}
	}

	if len(cmd.RequiredRoleIDs) > 0 {
		held := false
		for _, required := range cmd.RequiredRoleIDs {
			if contains(roles, required) {
				held = true
				break
			}
		}
		if !held {
			return PermissionResult{Reason: "You do not have the required role to use this command."}
		}
	}

	for _, name := range cmd.RequiredPermissions {
		bit, ok := permissionBits[name]
		if !ok {
			continue
		}
		if cc.Permissions&bit == 0 {
			return PermissionResult{Reason: fmt.Sprintf("You need the %s permission to use this command.", name)}
		}
	}

	return PermissionResult{Allowed: true}
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
