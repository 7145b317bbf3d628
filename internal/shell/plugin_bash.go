package shell

// BashPlugin sends a background heartbeat for $PWD after each command. The
// heartbeat command throttles repeats itself.
const BashPlugin = `# pulse shell hook, generated by 'pulse hook bash'
_pulse_precmd() {
  ( "$_pulse_bin" heartbeat --entity "$PWD" --language Terminal >/dev/null 2>&1 & )
}

PROMPT_COMMAND="_pulse_precmd${PROMPT_COMMAND:+;$PROMPT_COMMAND}"
`
