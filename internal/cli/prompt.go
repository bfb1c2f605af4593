package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// Keys accepted by PromptForDecision.
const (
	KeyJournal = "j"
	KeyArchive = "a"
	KeyDelete  = "d"
	KeyUndo    = "u"
	KeySkip    = "s"
	KeyDone    = "q"
)

// Prompter reads single-line answers from an input stream.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter over in/out (usually os.Stdin/os.Stdout).
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// PromptForDecision asks for one of j/a/d/u/s/q for the given photo and
// re-prompts on anything else. EOF answers KeyDone.
func (p *Prompter) PromptForDecision(label string) string {
	for {
		fmt.Fprintf(p.out, "%s [j]ournal [a]rchive [d]elete [u]ndo [s]kip [q]uit: ", label)

		input, err := p.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(input))
		switch answer {
		case KeyJournal, KeyArchive, KeyDelete, KeyUndo, KeySkip, KeyDone:
			return answer
		}
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Msg("Failed to read input, finishing session")
			}
			return KeyDone
		}
		fmt.Fprintf(p.out, "Unrecognized answer %q\n", answer)
	}
}

// Confirm asks a yes/no question. Anything but y/yes is no.
func (p *Prompter) Confirm(question string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	input, _ := p.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}
	return false
}
