package bot

import (
	"strings"

	"github.com/mymmrac/telego"
)

// CommandParser парсит русские команды с префиксами !, . и /.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @botname у команды отбрасывается (/login@my_bot).
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}

// isEcho — ответ на чужое сообщение, означающий «присоединяюсь»:
// «+1», «+» или один только триггер.
func isEcho(text, trigger string) bool {
	text = strings.TrimSpace(text)
	return text == "+1" || text == "+" || (trigger != "" && strings.Trim(text, trigger+" ") == "" && strings.Contains(text, trigger))
}

// textMentions — пользователи без @username, упомянутые через выбор
// из списка (entity text_mention).
func textMentions(msg *telego.Message) []telego.User {
	var users []telego.User
	for _, e := range msg.Entities {
		if e.Type == "text_mention" && e.User != nil {
			users = append(users, *e.User)
		}
	}
	return users
}
