package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/alecthomas/kong"
	"github.com/samber/lo"
)

// CompletionCmd generates shell completions
type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)"`
}

// completionPath is one command path, e.g. "watches__list", with the
// words that may follow it.
type completionPath struct {
	Key         string
	Subcommands string
	Flags       string
}

type completionEnum struct {
	Token string
	// Long is empty for short flags.
	Long   string
	Values string
}

type completionData struct {
	Paths []completionPath
	Enums []completionEnum
	// Root lists top-level commands and global long flags for fish.
	Root      []string
	RootFlags []string
}

// Run executes the completion command. The script is derived from the
// parsed kong model so it never drifts from the real commands.
func (c *CompletionCmd) Run(globals *Globals, ctx *kong.Context) error {
	var model *kong.Node
	if ctx != nil && ctx.Model != nil {
		model = ctx.Model.Node
	}
	tmpl, ok := completionTemplates[c.Shell]
	if !ok {
		return fmt.Errorf("unsupported shell: %s", c.Shell)
	}
	return tmpl.Execute(globals.Stdout, buildCompletionData(model))
}

func buildCompletionData(model *kong.Node) completionData {
	data := completionData{}
	if model == nil {
		data.Paths = []completionPath{{}}
		return data
	}

	enums := map[string][]string{}
	var walk func(n *kong.Node, path []string)
	walk = func(n *kong.Node, path []string) {
		children := lo.Filter(n.Children, func(ch *kong.Node, _ int) bool {
			return ch != nil && ch.Type == kong.CommandNode && !ch.Hidden
		})
		subs := lo.FlatMap(children, func(ch *kong.Node, _ int) []string {
			return append([]string{ch.Name}, ch.Aliases...)
		})

		var flags []string
		for _, group := range n.AllFlags(true) {
			for _, f := range group {
				tokens := flagTokens(f)
				flags = append(flags, tokens...)
				if values := splitEnum(f.Enum); len(values) > 0 {
					for _, t := range tokens {
						// global flags are seen first and win
						if _, seen := enums[t]; !seen {
							enums[t] = values
						}
					}
				}
			}
		}

		subs, flags = sortedWords(subs), sortedWords(flags)
		data.Paths = append(data.Paths, completionPath{
			Key:         strings.Join(path, "__"),
			Subcommands: strings.Join(subs, " "),
			Flags:       strings.Join(flags, " "),
		})
		if len(path) == 0 {
			data.Root = subs
			data.RootFlags = lo.FilterMap(flags, func(f string, _ int) (string, bool) {
				return strings.TrimPrefix(f, "--"), strings.HasPrefix(f, "--")
			})
		}
		for _, ch := range children {
			walk(ch, append(append([]string(nil), path...), ch.Name))
		}
	}
	walk(model, nil)

	sort.Slice(data.Paths, func(i, j int) bool { return data.Paths[i].Key < data.Paths[j].Key })
	for _, token := range sortedWords(lo.Keys(enums)) {
		e := completionEnum{Token: token, Values: strings.Join(enums[token], " ")}
		if strings.HasPrefix(token, "--") {
			e.Long = strings.TrimPrefix(token, "--")
		}
		data.Enums = append(data.Enums, e)
	}
	return data
}

func flagTokens(f *kong.Flag) []string {
	if f == nil {
		return nil
	}
	tokens := []string{"--" + f.Name}
	if f.Short != 0 {
		tokens = append(tokens, "-"+string(f.Short))
	}
	for _, a := range f.Aliases {
		tokens = append(tokens, "--"+a)
	}
	return tokens
}

func splitEnum(raw string) []string {
	return lo.Compact(lo.Map(strings.Split(raw, ","), func(v string, _ int) string {
		return strings.TrimSpace(v)
	}))
}

func sortedWords(words []string) []string {
	out := lo.Uniq(lo.Compact(lo.Map(words, func(w string, _ int) string {
		return strings.TrimSpace(w)
	})))
	sort.Strings(out)
	return out
}

const targetGlob = "/dev/ttyUSB* /dev/ttyACM* /dev/tty.usb*"

var completionTemplates = map[string]*template.Template{
	"bash": template.Must(template.New("bash").Parse(bashCompletion)),
	"zsh":  template.Must(template.New("zsh").Parse(zshCompletion)),
	"fish": template.Must(template.New("fish").Parse(fishCompletion)),
}

const bashCompletion = `# termdbg bash completion script
# Add to ~/.bashrc or ~/.bash_profile:
#   eval "$(termdbg completion bash)"

_termdbg_words() {
    case "$1" in
{{- range .Paths}}
        "{{.Key}}") subcommands="{{.Subcommands}}"; flags="{{.Flags}}"; return 0 ;;
{{- end}}
    esac
    return 1
}

_termdbg_completions() {
    local cur prev words cword
    _init_completion || return

    local cmdpath="" candidate="" subcommands="" flags="" i
    for ((i=1; i < cword; i++)); do
        [[ -z "${words[i]}" || "${words[i]}" == -* ]] && continue
        candidate="${candidate:+${candidate}__}${words[i]}"
        _termdbg_words "${candidate}" && cmdpath="${candidate}" || break
    done

    case "${prev}" in
        -t|--target)
            COMPREPLY=($(compgen -W "$(ls ` + targetGlob + ` 2>/dev/null) tcp:// serial:// exec:// ws://" -- "${cur}"))
            return
            ;;
{{- range .Enums}}
        {{.Token}})
            COMPREPLY=($(compgen -W "{{.Values}}" -- "${cur}"))
            return
            ;;
{{- end}}
    esac

    _termdbg_words "${cmdpath}"
    if [[ "${cur}" == -* ]]; then
        COMPREPLY=($(compgen -W "${flags}" -- "${cur}"))
    elif [[ -n "${subcommands}" ]]; then
        COMPREPLY=($(compgen -W "${subcommands}" -- "${cur}"))
    fi
}

complete -F _termdbg_completions termdbg
`

const zshCompletion = `#compdef termdbg
# termdbg zsh completion script
# Add to ~/.zshrc:
#   eval "$(termdbg completion zsh)"

_termdbg_words() {
  case "$1" in
{{- range .Paths}}
    "{{.Key}}") subcommands=({{.Subcommands}}); flags=({{.Flags}}); return 0;;
{{- end}}
  esac
  return 1
}

_termdbg() {
  local cur="${words[CURRENT]}" prev="${words[CURRENT-1]}"
  local cmdpath="" candidate="" i
  local -a subcommands flags targets

  for ((i=2; i < CURRENT; i++)); do
    [[ -z "${words[i]}" || "${words[i]}" == -* ]] && continue
    candidate="${candidate:+${candidate}__}${words[i]}"
    if _termdbg_words "${candidate}"; then
      cmdpath="${candidate}"
    else
      break
    fi
  done

  case "${prev}" in
    -t|--target)
      targets=(${(f)"$(ls ` + targetGlob + ` 2>/dev/null)"} tcp:// serial:// exec:// ws://)
      _describe 'target' targets
      return
      ;;
{{- range .Enums}}
    {{.Token}})
      _values '{{.Token}}' {{.Values}}
      return
      ;;
{{- end}}
  esac

  _termdbg_words "${cmdpath}"
  if [[ "${cur}" == -* ]]; then
    compadd -- ${flags[@]}
  elif (( ${#subcommands[@]} > 0 )); then
    compadd -- ${subcommands[@]}
  fi
}

compdef _termdbg termdbg
`

const fishCompletion = `# termdbg fish completion script
# Add to ~/.config/fish/completions/termdbg.fish

complete -c termdbg -f
{{range .Root}}
complete -c termdbg -n "__fish_use_subcommand" -a "{{.}}"
{{- end}}
{{- range .RootFlags}}
complete -c termdbg -l {{.}}
{{- end}}
{{- range .Enums}}{{if .Long}}
complete -c termdbg -l {{.Long}} -xa "{{.Values}}"
{{- end}}{{end}}

complete -c termdbg -s t -l target -xa "(ls ` + targetGlob + ` 2>/dev/null; echo tcp://; echo serial://; echo exec://; echo ws://)"
`
