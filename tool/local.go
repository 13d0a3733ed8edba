package tool

// LocalRepository sources a fixed, in-process list of tool descriptors —
// the direct-callable counterpart to MCPRepository.
type LocalRepository struct {
	name  string
	tools []*Descriptor
}

// NewLocalRepository returns a repository named name sourcing tools.
func NewLocalRepository(name string, tools ...*Descriptor) *LocalRepository {
	return &LocalRepository{name: name, tools: tools}
}

func (r *LocalRepository) Name() string { return r.name }

func (r *LocalRepository) Tools() ([]*Descriptor, error) {
	out := make([]*Descriptor, len(r.tools))
	copy(out, r.tools)
	return out, nil
}
