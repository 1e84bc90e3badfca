package shell

const helpText = `Available commands:
  cd [directory]         - Change directory (default: $HOME)
  jobs                   - List background jobs
  kill [-s SIGNAL] job#  - Kill a background job (default SIGKILL)
  history [-c]           - List (or clear) recent commands
  help                   - Show this help
  exit [status]          - Exit the shell

Command lines:
  prog args | prog args  - Pipe stdout into the next stage
  < file, > file         - Redirect input of the first / output of the last stage
  ... &                  - Run in the background (must end the line)

History:
  !N                     - Repeat the N-th retained command
  !-N                    - Repeat the N-th most recent command
  !!                     - Repeat the previous command
`
