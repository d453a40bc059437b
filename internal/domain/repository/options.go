package repository

// Options are the per-call switches of Repository operations. Each
// operation starts from its own defaults and applies Option values on top.
type Options struct {
	Save           bool
	Track          bool
	ThrowIfMissing bool
	Includes       []string
}

type Option func(*Options)

// Apply returns defaults with opts applied in order.
func Apply(defaults Options, opts ...Option) Options {
	o := defaults
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithoutSave stages the change without committing it.
func WithoutSave() Option {
	return func(o *Options) { o.Save = false }
}

// WithoutTracking returns detached entities.
func WithoutTracking() Option {
	return func(o *Options) { o.Track = false }
}

// ThrowIfMissing turns an empty match into a NotFoundError.
func ThrowIfMissing() Option {
	return func(o *Options) { o.ThrowIfMissing = true }
}

// AllowMissing turns an empty match into a nil result.
func AllowMissing() Option {
	return func(o *Options) { o.ThrowIfMissing = false }
}

// Include eager-loads the named associations.
func Include(names ...string) Option {
	return func(o *Options) { o.Includes = append(o.Includes, names...) }
}
