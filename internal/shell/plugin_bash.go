package shell

// BashRC is the generated --rcfile for a recorded bash. It loads the user's
// own ~/.bashrc, then reports command boundaries: the DEBUG trap fires before
// the first simple command of each command line (it is re-armed at every
// prompt) and PROMPT_COMMAND fires before the next prompt is drawn.
// PROMPT_COMMAND disarms the trap first so an empty command line reports
// nothing.
const BashRC = `# wtg shell integration, generated for a single session
[ -f ~/.bashrc ] && . ~/.bashrc

__wtg_armed=
__wtg_preexec() {
  [ -n "$__wtg_armed" ] || return 0
  [ -n "$COMP_LINE" ] && return 0
  case $BASH_COMMAND in __wtg_*) return 0 ;; esac
  __wtg_armed=
  printf '\033]6973;A\007'
  return 0
}
__wtg_disarm() {
  local s=$?
  __wtg_armed=
  return $s
}
__wtg_precmd() {
  local s=$?
  printf '\033]6973;B\007'
  __wtg_armed=1
  return $s
}
trap '__wtg_preexec' DEBUG
PROMPT_COMMAND="__wtg_disarm; ${PROMPT_COMMAND:+$PROMPT_COMMAND; }__wtg_precmd"
`
