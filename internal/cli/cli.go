package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandCall    Command = "call"
	CommandRecord  Command = "record"
	CommandStop    Command = "stop"
	CommandEnd     Command = "end"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandCall:    {},
	CommandRecord:  {},
	CommandStop:    {},
	CommandEnd:     {},
	CommandStatus:  {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command     Command
	ConfigPath  string
	CallerName  string
	CallerEmail string
	ShowHelp    bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--name":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--name requires a value")
			}
			parsed.CallerName = args[i]
		case "--email":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--email requires a value")
			}
			parsed.CallerEmail = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			if haveCommand {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			haveCommand = true
		}
	}

	if parsed.CallerName != "" && parsed.Command != CommandEnd {
		return Parsed{}, errors.New("--name is only valid with the end command")
	}
	if parsed.CallerEmail != "" && parsed.Command != CommandEnd {
		return Parsed{}, errors.New("--email is only valid with the end command")
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  call      Start a call and serve record/stop/end commands until it ends
  record    Begin recording the next utterance
  stop      Stop recording and exchange the utterance for a reply
  end       End the call: --name NAME [--email EMAIL]
  status    Print current call state
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/frontdesk/config.yaml)
  --name NAME     Caller name for the end command (required to end a call)
  --email EMAIL   Caller email for the end command
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
