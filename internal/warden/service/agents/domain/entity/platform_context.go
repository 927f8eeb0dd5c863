package entity

// PlatformContext is an opaque bag of caller data (tenant, namespace,
// credentials) forwarded to tool execution. The core never interprets it.
type PlatformContext map[string]any

// Clone returns a deep copy. A nil context clones to nil.
func (p PlatformContext) Clone() PlatformContext {
	if p == nil {
		return nil
	}
	return PlatformContext(deepCopyMap(p))
}

// Merge returns a copy of p overlaid with other.
func (p PlatformContext) Merge(other PlatformContext) PlatformContext {
	if len(other) == 0 {
		return p.Clone()
	}
	out := p.Clone()
	if out == nil {
		out = make(PlatformContext, len(other))
	}
	for k, v := range other {
		out[k] = deepCopyValue(v)
	}
	return out
}

func (p PlatformContext) IsEmpty() bool { return len(p) == 0 }
