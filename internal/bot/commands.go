package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/smilefoto/klicka/internal/syncer"
)

const (
	crewHelp = `Available commands:
/status <event> - Local counts and last sync/upload times
/missing <event> - Students not yet accounted for
/help - Show this message`

	adminHelp = `Available commands:
/status <event> - Local counts and last sync/upload times
/missing <event> - Students not yet accounted for
/sync <event> - Pull fresh reference data from the server
/upload <event> - Push all captured sessions to the server
/help - Show this message

Examples:
/status vt2026-eriksdal
/upload vt2026-eriksdal`
)

type commandHandler func(*tgbotapi.Message, string) error

func (b *Bot) routeCrewCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"start":   b.handleHelp,
		"help":    b.handleHelp,
		"status":  b.handleStatus,
		"missing": b.handleMissing,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) routeAdminCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"sync":   b.handleSync,
		"upload": b.handleUpload,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.reply(msg.Chat.ID, crewHelp)
		return
	}

	cmd := msg.Command()
	eventID := strings.TrimSpace(msg.CommandArguments())

	handler, found := b.routeCrewCommands(cmd)
	if !found {
		handler, found = b.routeAdminCommands(cmd)
		if found && !b.admins[msg.From.ID] {
			b.reply(msg.Chat.ID, "This command is for admins")
			return
		}
	}
	if !found {
		b.reply(msg.Chat.ID, crewHelp)
		return
	}

	if err := handler(msg, eventID); err != nil {
		logger.Error.Printf("Command /%s failed: %v", cmd, err)
		b.reply(msg.Chat.ID, fmt.Sprintf("Command failed: %v", err))
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message, _ string) error {
	if b.admins[msg.From.ID] {
		b.reply(msg.Chat.ID, adminHelp)
	} else {
		b.reply(msg.Chat.ID, crewHelp)
	}
	return nil
}

func (b *Bot) handleStatus(msg *tgbotapi.Message, eventID string) error {
	if eventID == "" {
		b.reply(msg.Chat.ID, "Usage: /status <event>")
		return nil
	}

	status, err := b.service.EventStatus(context.Background(), eventID)
	if err != nil {
		return err
	}

	name := status.EventName
	if name == "" {
		name = "(never synced)"
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"%s %s\nstudents: %d\nsessions: %d\nunphotographed: %d\nlast sync: %s\nlast upload: %s",
		eventID, name,
		status.Students, status.Sessions, status.Unphotographed,
		stamp(status.LastSync), stamp(status.LastUpload),
	))
	return nil
}

func (b *Bot) handleMissing(msg *tgbotapi.Message, eventID string) error {
	if eventID == "" {
		b.reply(msg.Chat.ID, "Usage: /missing <event>")
		return nil
	}

	rows, err := b.service.Finalizer.Rows(context.Background(), eventID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		b.reply(msg.Chat.ID, "Everyone is accounted for")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d students missing:\n", len(rows))
	for _, row := range rows {
		fmt.Fprintf(&sb, "%s (%s)\n", row.Name, row.Class)
	}
	b.reply(msg.Chat.ID, sb.String())
	return nil
}

func (b *Bot) handleSync(msg *tgbotapi.Message, eventID string) error {
	if eventID == "" {
		b.reply(msg.Chat.ID, "Usage: /sync <event>")
		return nil
	}

	if err := b.service.Syncer.SyncDown(context.Background(), eventID); err != nil {
		return err
	}
	b.reply(msg.Chat.ID, "Sync done")
	return nil
}

func (b *Bot) handleUpload(msg *tgbotapi.Message, eventID string) error {
	if eventID == "" {
		b.reply(msg.Chat.ID, "Usage: /upload <event>")
		return nil
	}

	result, err := b.service.Syncer.SyncUp(context.Background(), eventID)
	if err == syncer.ErrNothingToSend {
		b.reply(msg.Chat.ID, "Nothing to send")
		return nil
	}
	if err != nil {
		return err
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Server accepted %d sessions: %s", result.AcceptedCount, result.Summary))
	return nil
}

func stamp(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04")
}
