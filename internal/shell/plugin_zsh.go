package shell

// ZshEnv is written to the session's ZDOTDIR so that zsh still reads the
// user's own .zshenv. A ZDOTDIR chosen by that file is remembered for .zshrc.
const ZshEnv = `# wtg shell integration, generated for a single session
__wtg_zdotdir=$ZDOTDIR
ZDOTDIR=${WTG_ORIG_ZDOTDIR:-$HOME}
[ -f "$ZDOTDIR/.zshenv" ] && . "$ZDOTDIR/.zshenv"
export WTG_ORIG_ZDOTDIR=$ZDOTDIR
ZDOTDIR=$__wtg_zdotdir
unset __wtg_zdotdir
`

// ZshRC loads the user's .zshrc and registers preexec/precmd hooks that
// report command boundaries. ZDOTDIR is pointed back at the user's directory
// so nothing else in the session sees the generated one.
const ZshRC = `# wtg shell integration, generated for a single session
ZDOTDIR=${WTG_ORIG_ZDOTDIR:-$HOME}
unset WTG_ORIG_ZDOTDIR
[ -f "$ZDOTDIR/.zshrc" ] && . "$ZDOTDIR/.zshrc"

_wtg_preexec() {
  printf '\033]6973;A\007'
}
_wtg_precmd() {
  local s=$?
  printf '\033]6973;B\007'
  return $s
}
autoload -Uz add-zsh-hook
add-zsh-hook preexec _wtg_preexec
add-zsh-hook precmd _wtg_precmd
`
