package psf

// Option applies a configuration option to Create.
type Option func(*createOptions)

type createOptions struct {
	overwrite bool
	exclude   []string
}

// WithOverwrite lets Create replace an existing archive file.
func WithOverwrite() Option {
	return func(o *createOptions) {
		o.overwrite = true
	}
}

// WithExclude skips payload files matching any of the given glob patterns.
// Patterns match against the payload-relative path and against the base
// name, so "*.o" excludes object files anywhere in the tree.
func WithExclude(globs ...string) Option {
	return func(o *createOptions) {
		o.exclude = append(o.exclude, globs...)
	}
}
