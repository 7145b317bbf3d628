package shell

// ZshPlugin sends a background heartbeat for $PWD before each prompt. The
// heartbeat command throttles repeats itself.
const ZshPlugin = `# pulse shell hook, generated by 'pulse hook zsh'
_pulse_precmd() {
  ( "$_pulse_bin" heartbeat --entity "$PWD" --language Terminal >/dev/null 2>&1 & )
}

autoload -Uz add-zsh-hook
add-zsh-hook precmd _pulse_precmd
`
