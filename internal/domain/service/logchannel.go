package service

import (
	"fmt"
	"strings"

	"github.com/theatro/theatro/pkg/logger/types"
	"go.uber.org/zap/zapcore"
	tele "gopkg.in/telebot.v3"
)

const logChannelFailure = "failed to send log to channel"

type logSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// LogChannel forwards log entries to a Telegram chat.
type LogChannel struct {
	sender logSender
	chat   *tele.Chat
	level  zapcore.Level
	logger *types.Logger
}

func NewLogChannel(sender logSender, chatID int64, level zapcore.Level, logger *types.Logger) *LogChannel {
	return &LogChannel{
		sender: sender,
		chat:   &tele.Chat{ID: chatID},
		level:  level,
		logger: logger,
	}
}

// Hook returns a log hook sending every entry at or above the channel level.
func (c *LogChannel) Hook() types.LogHook {
	return func(log types.Log) {
		if log.Level < c.level || strings.Contains(log.Message, logChannelFailure) {
			return
		}
		go func() {
			if _, err := c.sender.Send(c.chat, formatLog(log), tele.ModeHTML); err != nil {
				c.logger.Errorf("%s %d: %v", logChannelFailure, c.chat.ID, err)
			}
		}()
	}
}

func formatLog(log types.Log) string {
	return fmt.Sprintf(
		"<b>%s</b> [%s] %s\n<code>%s</code>\n%s",
		strings.ToUpper(log.Level.String()),
		log.LoggerName,
		log.Timestamp.Format("2006-01-02 15:04:05"),
		escapeHTML(log.Caller),
		escapeHTML(log.Message),
	)
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
