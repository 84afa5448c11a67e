package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// aliases maps short command names onto their canonical form.
var aliases = map[string]string{
	"q":       "quit",
	"h":       "help",
	"s":       "sessions",
	"sess":    "sessions",
	"m":       "messages",
	"msg":     "messages",
	"chats":   "messages",
	"qu":      "queue",
	"st":      "stats",
	"health":  "stats",
	"new":     "create",
	"add":     "create",
	"rm":      "destroy",
	"delete":  "destroy",
	"find":    "search",
	"use":     "select",
	"sel":     "select",
	"qrcode":  "qr",
	"reload":  "refresh",
	"signout": "logout",
	"filter":  "status",
	"exit":    "quit",
	"?":       "help",
}

// ParseCommand parses a command string (without the leading ':'). The name
// is lower-cased and aliases are resolved.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if canonical, ok := aliases[cmd.Name]; ok {
		cmd.Name = canonical
	}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}
