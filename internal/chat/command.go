package chat

import (
	"strings"
)

// CommandName identifies a parsed slash command.
type CommandName string

const (
	CommandLogout  CommandName = "/logout"
	CommandMsg     CommandName = "/msg"
	CommandList    CommandName = "/list"
	CommandUnknown CommandName = ""
)

// Command is the parsed form of a COMMAND message body.
type Command struct {
	Name   CommandName
	Target string
	Text   string
	Raw    string
}

// CommandError describes a command that was recognised but could not be
// parsed. Its message is meant to be shown to the user who issued it.
type CommandError struct {
	Command CommandName
	Reason  string
}

func (e *CommandError) Error() string {
	return string(e.Command) + ": " + e.Reason
}

// Usage returns the one-line help for a command.
func Usage(name CommandName) string {
	switch name {
	case CommandMsg:
		return "usage: /msg <username> <message>"
	case CommandList:
		return "usage: /list"
	case CommandLogout:
		return "usage: /logout"
	}
	return ""
}

// ParseCommand interprets a command body. Bodies that do not match any known
// command come back as CommandUnknown with a nil error.
func ParseCommand(body string) (Command, error) {
	raw := strings.TrimSpace(body)
	cmd := Command{Raw: raw}

	switch {
	case raw == string(CommandLogout):
		cmd.Name = CommandLogout
	case raw == string(CommandMsg) || strings.HasPrefix(raw, string(CommandMsg)+" "):
		cmd.Name = CommandMsg
		fields := strings.Fields(raw)
		if len(fields) < 2 {
			return cmd, &CommandError{Command: CommandMsg, Reason: "missing recipient; " + Usage(CommandMsg)}
		}
		if len(fields) < 3 {
			return cmd, &CommandError{Command: CommandMsg, Reason: "missing message text; " + Usage(CommandMsg)}
		}
		cmd.Target = fields[1]
		cmd.Text = strings.Join(fields[2:], " ")
	case strings.HasPrefix(raw, string(CommandList)):
		cmd.Name = CommandList
	default:
		cmd.Name = CommandUnknown
	}
	return cmd, nil
}
