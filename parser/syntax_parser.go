package parser

// SyntaxParser runs the tree-building Parser over the input and discards
// the resulting tree. It exists for the `parse` CLI mode, which only needs
// to know whether the input is grammatically valid.
type SyntaxParser struct {
	p *Parser
}

func NewSyntaxParser(src string) (*SyntaxParser, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	return &SyntaxParser{p: p}, nil
}

// CheckSyntax runs the tree-building parser and discards its result,
// returning only the first error (if any). A dedicated discard-as-you-go
// walk would duplicate the grammar; reusing Parse and dropping the AST
// keeps the two parsers from drifting out of sync.
func CheckSyntax(src string) error {
	_, err := Parse(src)
	return err
}

// Validate is the SyntaxParser's entry point.
func (sp *SyntaxParser) Validate() error {
	_, err := sp.p.parseProgram()
	return err
}
