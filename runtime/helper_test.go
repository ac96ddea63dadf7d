package runtime

// stubBlock is a minimal block for container and persistence tests.
type stubBlock struct {
	BaseBlock
	exec func(ctx *Context) (Outcome, error)
}

func newStub(kind, name string) *stubBlock {
	return &stubBlock{BaseBlock: NewBaseBlock(kind, name)}
}

func (b *stubBlock) Execute(ctx *Context) (Outcome, error) {
	if b.exec != nil {
		return b.exec(ctx)
	}
	return Outcome{"status": "success"}, nil
}
